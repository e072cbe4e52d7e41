package installment

import (
	"context"
	"errors"

	"github.com/goldbooks/backend/internal/domain/installment"
	"github.com/goldbooks/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// bulkConcurrency caps how many installments are paid in parallel
const bulkConcurrency = 8

// BulkPaymentService applies a batch of payments in one call. Items targeting
// different installments run concurrently; items targeting the same
// installment are applied sequentially in request order, so a batch never
// races against itself on the version column.
type BulkPaymentService struct {
	payments *PaymentService
	logger   *zap.Logger
}

// NewBulkPaymentService creates a new BulkPaymentService
func NewBulkPaymentService(payments *PaymentService, logger *zap.Logger) *BulkPaymentService {
	return &BulkPaymentService{
		payments: payments,
		logger:   logger,
	}
}

// BulkPaymentItem is one payment in a batch
type BulkPaymentItem struct {
	InstallmentID uuid.UUID                 `json:"installment_id"`
	Amount        decimal.Decimal           `json:"amount"`
	Method        installment.PaymentMethod `json:"method,omitempty"`
	Reference     string                    `json:"reference,omitempty"`
	Notes         string                    `json:"notes,omitempty"`
}

// BulkPaymentItemResult is the per-item outcome, at the same index as the
// request item it answers. Rejected overpayments carry MaxAcceptable so the
// caller can split and retry without parsing the message.
type BulkPaymentItemResult struct {
	InstallmentID uuid.UUID                  `json:"installment_id"`
	Success       bool                       `json:"success"`
	Kind          installment.Kind           `json:"kind,omitempty"`
	Status        installment.Status         `json:"status,omitempty"`
	Remaining     *decimal.Decimal           `json:"remaining,omitempty"`
	Payment       *installment.PaymentRecord `json:"payment,omitempty"`
	ErrorCode     string                     `json:"error_code,omitempty"`
	ErrorMessage  string                     `json:"error_message,omitempty"`
	MaxAcceptable *decimal.Decimal           `json:"max_acceptable,omitempty"`
}

// BulkPaymentRequest represents a batch of payments
type BulkPaymentRequest struct {
	TenantID   uuid.UUID
	RecordedBy *uuid.UUID
	Items      []BulkPaymentItem
}

// BulkPaymentResult summarizes a processed batch. The totals come from
// successful items only and are kept per unit: TotalAmountProcessed sums the
// currency payments, TotalWeightProcessed the gold ones in grams.
type BulkPaymentResult struct {
	Results              []BulkPaymentItemResult `json:"results"`
	SuccessCount         int                     `json:"success_count"`
	FailureCount         int                     `json:"failure_count"`
	TotalAmountProcessed decimal.Decimal         `json:"total_amount_processed"`
	TotalWeightProcessed decimal.Decimal         `json:"total_weight_processed"`
}

// ProcessBulk applies every item of the batch. Failures are isolated: one
// rejected item never rolls back or blocks the others, and the result slice
// preserves request order so callers can match outcomes by index.
func (s *BulkPaymentService) ProcessBulk(ctx context.Context, req BulkPaymentRequest) (*BulkPaymentResult, error) {
	if len(req.Items) == 0 {
		return nil, shared.NewDomainError("EMPTY_BATCH", "Bulk payment requires at least one item")
	}

	results := make([]BulkPaymentItemResult, len(req.Items))

	// Items for the same installment form one sequential lane keyed by ID.
	lanes := make(map[uuid.UUID][]int)
	order := make([]uuid.UUID, 0, len(req.Items))
	for idx, item := range req.Items {
		if _, seen := lanes[item.InstallmentID]; !seen {
			order = append(order, item.InstallmentID)
		}
		lanes[item.InstallmentID] = append(lanes[item.InstallmentID], idx)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bulkConcurrency)
	for _, id := range order {
		indices := lanes[id]
		g.Go(func() error {
			for _, idx := range indices {
				results[idx] = s.processItem(gctx, req.TenantID, req.RecordedBy, req.Items[idx])
			}
			return nil
		})
	}
	// Lane workers never return errors; failures live in the per-item results.
	_ = g.Wait()

	out := &BulkPaymentResult{
		Results:              results,
		TotalAmountProcessed: decimal.Zero,
		TotalWeightProcessed: decimal.Zero,
	}
	for _, r := range results {
		if !r.Success {
			out.FailureCount++
			continue
		}
		out.SuccessCount++
		if r.Payment == nil {
			continue
		}
		if r.Kind == installment.KindGold {
			out.TotalWeightProcessed = out.TotalWeightProcessed.Add(r.Payment.Amount)
		} else {
			out.TotalAmountProcessed = out.TotalAmountProcessed.Add(r.Payment.Amount)
		}
	}

	s.logger.Info("bulk payments processed",
		zap.Int("items", len(req.Items)),
		zap.Int("succeeded", out.SuccessCount),
		zap.Int("failed", out.FailureCount))

	return out, nil
}

func (s *BulkPaymentService) processItem(ctx context.Context, tenantID uuid.UUID, recordedBy *uuid.UUID, item BulkPaymentItem) BulkPaymentItemResult {
	res, err := s.payments.RecordPayment(ctx, RecordPaymentRequest{
		TenantID:      tenantID,
		InstallmentID: item.InstallmentID,
		Amount:        item.Amount,
		Method:        item.Method,
		Reference:     item.Reference,
		Notes:         item.Notes,
		RecordedBy:    recordedBy,
	})
	if err != nil {
		failure := BulkPaymentItemResult{
			InstallmentID: item.InstallmentID,
			Success:       false,
			ErrorCode:     ErrorCode(err),
			ErrorMessage:  err.Error(),
		}
		var overErr *installment.OverpaymentError
		if errors.As(err, &overErr) {
			max := overErr.MaxAcceptable
			failure.MaxAcceptable = &max
		}
		return failure
	}

	remaining := res.Installment.Remaining()
	return BulkPaymentItemResult{
		InstallmentID: item.InstallmentID,
		Success:       true,
		Kind:          res.Installment.Kind,
		Status:        res.Installment.Status,
		Remaining:     &remaining,
		Payment:       res.Payment,
	}
}
