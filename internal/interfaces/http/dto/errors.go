package dto

import "net/http"

// General error codes
const (
	ErrCodeInternal   = "INTERNAL"
	ErrCodeBadRequest = "BAD_REQUEST"
)

// statusByCode maps domain error codes to HTTP status codes. Codes without an
// entry fall through the INVALID_ prefix rule and then default to 500, so an
// unmapped domain error is loud rather than silently a 400.
var statusByCode = map[string]int{
	ErrCodeBadRequest: http.StatusBadRequest,
	"INVALID_INPUT":   http.StatusBadRequest,
	"EMPTY_BATCH":     http.StatusBadRequest,

	"NOT_FOUND":         http.StatusNotFound,
	"INVOICE_NOT_FOUND": http.StatusNotFound,
	"NO_ACTIVE_PLAN":    http.StatusNotFound,

	"ALREADY_EXISTS":       http.StatusConflict,
	"PLAN_EXISTS":          http.StatusConflict,
	"CONCURRENCY_CONFLICT": http.StatusConflict,

	"OVERPAYMENT":              http.StatusUnprocessableEntity,
	"CANCELLATION_NOT_ALLOWED": http.StatusUnprocessableEntity,
	"PLAN_EXCEEDS_OBLIGATION":  http.StatusUnprocessableEntity,
	"INVALID_STATE":            http.StatusUnprocessableEntity,

	"GOLD_PRICE_UNAVAILABLE": http.StatusServiceUnavailable,

	ErrCodeInternal: http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for a domain error code
func GetHTTPStatus(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	if len(code) > 8 && code[:8] == "INVALID_" {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
