package persistence

import (
	"context"
	"errors"

	"github.com/goldbooks/backend/internal/domain/installment/acl"
	"github.com/goldbooks/backend/internal/domain/shared"
	"github.com/goldbooks/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormInvoiceGateway implements acl.InvoiceGateway against the local invoices
// table. The engine only ever reads the obligation and adjusts the remaining
// balance; everything else on the invoice belongs to the invoicing context.
type GormInvoiceGateway struct {
	db *gorm.DB
}

// NewGormInvoiceGateway creates a new GormInvoiceGateway
func NewGormInvoiceGateway(db *gorm.DB) *GormInvoiceGateway {
	return &GormInvoiceGateway{db: db}
}

// GetObligation returns the invoice's total and remaining obligation
func (g *GormInvoiceGateway) GetObligation(ctx context.Context, tenantID, invoiceID uuid.UUID) (*acl.Obligation, error) {
	var model models.InvoiceModel
	if err := g.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, invoiceID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewDomainError("INVOICE_NOT_FOUND", "Invoice not found")
		}
		return nil, err
	}

	return &acl.Obligation{
		InvoiceID: model.ID,
		Kind:      model.Kind,
		Total:     model.TotalAmount,
		Remaining: model.RemainingAmount,
	}, nil
}

// ApplyPaymentDelta decrements the invoice's remaining balance atomically.
// The floor at zero absorbs rounding drift between the invoice's denormalized
// remaining and the installment-level truth.
func (g *GormInvoiceGateway) ApplyPaymentDelta(ctx context.Context, tenantID, invoiceID uuid.UUID, delta decimal.Decimal) error {
	result := g.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("tenant_id = ? AND id = ?", tenantID, invoiceID).
		Updates(map[string]interface{}{
			"remaining_amount": gorm.Expr("GREATEST(remaining_amount - ?, 0)", delta),
			"version":          gorm.Expr("version + 1"),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError("INVOICE_NOT_FOUND", "Invoice not found")
	}
	return nil
}
