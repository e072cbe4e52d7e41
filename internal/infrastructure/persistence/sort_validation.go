package persistence

import (
	"strings"
)

// ValidateSortOrder normalizes the sort direction to ASC or DESC, defaulting
// to ASC so listings read in schedule order.
func ValidateSortOrder(orderDir string) string {
	if strings.EqualFold(strings.TrimSpace(orderDir), "desc") {
		return "DESC"
	}
	return "ASC"
}

// ValidateSortField checks the sort field against an allowlist. The default is
// returned for anything unknown so a caller-supplied column name never reaches
// the ORDER BY clause raw.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// InstallmentSortFields contains allowed sort fields for installments
var InstallmentSortFields = map[string]bool{
	"due_date":           true,
	"installment_number": true,
	"amount_due":         true,
	"created_at":         true,
	"status":             true,
}
