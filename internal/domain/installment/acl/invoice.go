package acl

import (
	"context"

	"github.com/goldbooks/backend/internal/domain/installment"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Obligation is the invoicing context's answer to "how much does this invoice
// owe, and in what unit". Total carries currency for GENERAL invoices and
// grams for GOLD ones.
type Obligation struct {
	InvoiceID uuid.UUID
	Kind      installment.Kind
	Total     decimal.Decimal
	Remaining decimal.Decimal
}

// InvoiceGateway is the only path through which the engine reads or affects
// invoices. ApplyPaymentDelta keeps the invoice's denormalized remaining
// balance in sync after a payment; the engine never mutates any other
// invoice field.
type InvoiceGateway interface {
	GetObligation(ctx context.Context, tenantID, invoiceID uuid.UUID) (*Obligation, error)
	// ApplyPaymentDelta decrements the invoice's remaining balance (or
	// remaining gold weight) by the given amount. Negative deltas restore
	// balance, e.g. on forced plan cancellation of paid installments.
	ApplyPaymentDelta(ctx context.Context, tenantID, invoiceID uuid.UUID, delta decimal.Decimal) error
}
