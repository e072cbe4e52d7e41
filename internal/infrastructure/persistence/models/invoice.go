package models

import (
	"github.com/goldbooks/backend/internal/domain/installment"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceModel is the minimal invoice projection the installment engine needs:
// the obligation it divides into a plan and the denormalized remaining balance
// it keeps in sync on payments. The invoicing context owns every other field.
type InvoiceModel struct {
	TenantAggregateModel
	InvoiceNumber   string           `gorm:"type:varchar(50);not null;uniqueIndex:idx_invoice_tenant_number,priority:2"`
	Kind            installment.Kind `gorm:"type:varchar(20);not null"`
	TotalAmount     decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	RemainingAmount decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	CustomerID      *uuid.UUID       `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}
