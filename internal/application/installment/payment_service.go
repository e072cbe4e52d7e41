package installment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goldbooks/backend/internal/domain/installment"
	"github.com/goldbooks/backend/internal/domain/installment/acl"
	"github.com/goldbooks/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// defaultMaxRetries bounds the reload-and-retry loop around the version-checked
// write. Contention on a single installment is short-lived, so a handful of
// attempts is enough; exhaustion surfaces as CONCURRENCY_CONFLICT.
const defaultMaxRetries = 3

// PaymentService records payments against installments. Concurrency control is
// optimistic: the aggregate is loaded, mutated, and written back with a version
// check, and a lost race reloads and re-validates against the fresh state. The
// no-overpayment invariant therefore holds under concurrent writers without
// row locks.
type PaymentService struct {
	repo       installment.Repository
	invoices   acl.InvoiceGateway
	goldPrice  acl.GoldPriceProvider
	logger     *zap.Logger
	maxRetries int
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	repo installment.Repository,
	invoices acl.InvoiceGateway,
	goldPrice acl.GoldPriceProvider,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		repo:       repo,
		invoices:   invoices,
		goldPrice:  goldPrice,
		logger:     logger,
		maxRetries: defaultMaxRetries,
	}
}

// RecordPaymentRequest represents a request to apply one payment
type RecordPaymentRequest struct {
	TenantID      uuid.UUID
	InstallmentID uuid.UUID
	Amount        decimal.Decimal
	Method        installment.PaymentMethod
	Reference     string
	Notes         string
	RecordedBy    *uuid.UUID
}

// RecordPaymentResult is the outcome of a recorded payment: the updated
// installment, the payment record that was appended, and the invoice's
// outstanding balance after the write.
type RecordPaymentResult struct {
	Installment *installment.Installment   `json:"installment"`
	Payment     *installment.PaymentRecord `json:"payment"`
	Balance     *OutstandingBalance        `json:"balance"`
}

// RecordPayment applies a payment to an installment and keeps the invoice's
// denormalized remaining balance in sync. For gold installments the per-gram
// price is read once, before the write loop, and snapshotted into the payment
// record.
func (s *PaymentService) RecordPayment(ctx context.Context, req RecordPaymentRequest) (*RecordPaymentResult, error) {
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}

	// The price snapshot has to exist before the first apply attempt; reading
	// it inside the retry loop would let two attempts of one payment carry
	// different valuations.
	var price *decimal.Decimal
	first, err := s.repo.FindByIDForTenant(ctx, req.TenantID, req.InstallmentID)
	if err != nil {
		return nil, err
	}
	if first.Kind == installment.KindGold {
		p, err := s.goldPrice.CurrentPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read gold price: %w", err)
		}
		price = &p
	}

	inst := first
	var record *installment.PaymentRecord
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			inst, err = s.repo.FindByIDForTenant(ctx, req.TenantID, req.InstallmentID)
			if err != nil {
				return nil, err
			}
		}

		record, err = inst.ApplyPayment(installment.PaymentInput{
			Amount:         req.Amount,
			Method:         req.Method,
			Reference:      req.Reference,
			Notes:          req.Notes,
			RecordedBy:     req.RecordedBy,
			PriceAtPayment: price,
		})
		if err != nil {
			return nil, err
		}

		err = s.repo.SaveWithLock(ctx, inst)
		if err == nil {
			break
		}
		if !errors.Is(err, shared.ErrConcurrencyConflict) {
			return nil, fmt.Errorf("failed to save installment: %w", err)
		}
		if attempt+1 >= s.maxRetries {
			s.logger.Warn("payment retries exhausted",
				zap.String("installment_id", req.InstallmentID.String()),
				zap.Int("attempts", attempt+1))
			return nil, shared.ErrConcurrencyConflict
		}
		s.logger.Debug("payment lost version race, retrying",
			zap.String("installment_id", req.InstallmentID.String()),
			zap.Int("attempt", attempt+1))
	}

	if err := s.invoices.ApplyPaymentDelta(ctx, req.TenantID, inst.InvoiceID, req.Amount); err != nil {
		// The installment write already committed; the invoice's denormalized
		// balance is repairable from installments, so log and continue.
		s.logger.Error("failed to apply payment delta to invoice",
			zap.String("invoice_id", inst.InvoiceID.String()),
			zap.Error(err))
	}

	balance, err := s.computeBalance(ctx, req.TenantID, inst.InvoiceID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("payment recorded",
		zap.String("installment_id", inst.ID.String()),
		zap.String("invoice_id", inst.InvoiceID.String()),
		zap.String("amount", req.Amount.String()),
		zap.String("status", inst.Status.String()))

	return &RecordPaymentResult{
		Installment: inst,
		Payment:     record,
		Balance:     balance,
	}, nil
}

func (s *PaymentService) computeBalance(ctx context.Context, tenantID, invoiceID uuid.UUID) (*OutstandingBalance, error) {
	installments, err := s.repo.FindByInvoice(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	return ComputeOutstandingBalance(invoiceID, installments, time.Now()), nil
}
