package installment

import (
	"context"
	"fmt"
	"time"

	"github.com/goldbooks/backend/internal/domain/installment"
	"github.com/goldbooks/backend/internal/domain/installment/acl"
	"github.com/goldbooks/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PlanService creates and cancels installment plans. A plan is the full set of
// installments generated for one invoice; an invoice holds at most one active
// plan at a time.
type PlanService struct {
	repo     installment.Repository
	invoices acl.InvoiceGateway
	logger   *zap.Logger
}

// NewPlanService creates a new PlanService
func NewPlanService(repo installment.Repository, invoices acl.InvoiceGateway, logger *zap.Logger) *PlanService {
	return &PlanService{
		repo:     repo,
		invoices: invoices,
		logger:   logger,
	}
}

// CreatePlanRequest represents a request to generate an installment plan.
// Total is optional: when zero, the invoice's remaining obligation is used.
// Places overrides the split precision in decimal places; nil keeps the kind
// default (2 for currency, 3 for gold weight). Zero suits currencies without
// subunits.
type CreatePlanRequest struct {
	TenantID     uuid.UUID
	InvoiceID    uuid.UUID
	Total        decimal.Decimal
	Count        int
	StartDate    time.Time
	IntervalDays int
	InterestRate *decimal.Decimal
	Places       *int32
	CreatedBy    *uuid.UUID
}

// CreatePlan validates the invoice's obligation, builds the schedule, and
// persists all installments in one batch. The invoice's kind decides the unit
// and the default split precision.
func (s *PlanService) CreatePlan(ctx context.Context, req CreatePlanRequest) ([]*installment.Installment, error) {
	obligation, err := s.invoices.GetObligation(ctx, req.TenantID, req.InvoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve invoice obligation: %w", err)
	}

	exists, err := s.repo.HasActivePlan(ctx, req.TenantID, req.InvoiceID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("PLAN_EXISTS", "Invoice already has an active installment plan")
	}

	total := req.Total
	if total.IsZero() {
		total = obligation.Remaining
	}
	if total.GreaterThan(obligation.Remaining) {
		return nil, shared.NewDomainError("PLAN_EXCEEDS_OBLIGATION",
			fmt.Sprintf("Plan total %s exceeds remaining obligation %s", total, obligation.Remaining))
	}

	places := int32(-1)
	if req.Places != nil {
		places = *req.Places
	}

	installments, err := installment.BuildPlan(installment.PlanParams{
		TenantID:     req.TenantID,
		InvoiceID:    req.InvoiceID,
		Kind:         obligation.Kind,
		Total:        total,
		Count:        req.Count,
		StartDate:    req.StartDate,
		IntervalDays: req.IntervalDays,
		InterestRate: req.InterestRate,
		Places:       places,
	})
	if err != nil {
		return nil, err
	}

	if req.CreatedBy != nil {
		for _, inst := range installments {
			inst.CreatedBy = req.CreatedBy
		}
	}

	if err := s.repo.CreateBatch(ctx, installments); err != nil {
		return nil, fmt.Errorf("failed to persist installment plan: %w", err)
	}

	s.logger.Info("installment plan created",
		zap.String("invoice_id", req.InvoiceID.String()),
		zap.String("kind", string(obligation.Kind)),
		zap.Int("count", len(installments)),
		zap.String("total", total.String()))

	return installments, nil
}

// CancelPlanRequest represents a request to cancel an invoice's open
// installments. Force allows cancelling installments that already received
// payments; the collected amounts stay on record.
type CancelPlanRequest struct {
	TenantID  uuid.UUID
	InvoiceID uuid.UUID
	Reason    string
	Force     bool
}

// CancelPlanResult summarizes a plan cancellation
type CancelPlanResult struct {
	InvoiceID      uuid.UUID       `json:"invoice_id"`
	CancelledCount int             `json:"cancelled_count"`
	WaivedAmount   decimal.Decimal `json:"waived_amount"`
}

// CancelPlan cancels every open installment of the invoice. The whole plan is
// checked before any write, so a partially paid installment without the force
// flag rejects the request with nothing cancelled. Already PAID installments
// are untouched.
func (s *PlanService) CancelPlan(ctx context.Context, req CancelPlanRequest) (*CancelPlanResult, error) {
	if req.Reason == "" {
		return nil, shared.NewDomainError("INVALID_REASON", "Cancel reason is required")
	}

	installments, err := s.repo.FindByInvoice(ctx, req.TenantID, req.InvoiceID)
	if err != nil {
		return nil, err
	}

	open := make([]*installment.Installment, 0, len(installments))
	for idx := range installments {
		inst := &installments[idx]
		if inst.Status.IsTerminal() {
			continue
		}
		if inst.AmountPaid.GreaterThan(decimal.Zero) && !req.Force {
			return nil, installment.NewCancellationNotAllowedError(inst.ID, inst.AmountPaid)
		}
		open = append(open, inst)
	}
	if len(open) == 0 {
		return nil, shared.NewDomainError("NO_ACTIVE_PLAN", "Invoice has no open installments to cancel")
	}

	waived := decimal.Zero
	for _, inst := range open {
		if err := inst.Cancel(req.Reason, req.Force); err != nil {
			return nil, err
		}
		waived = waived.Add(inst.Remaining())
		if err := s.repo.SaveWithLock(ctx, inst); err != nil {
			return nil, fmt.Errorf("failed to cancel installment %d: %w", inst.InstallmentNumber, err)
		}
	}

	s.logger.Info("installment plan cancelled",
		zap.String("invoice_id", req.InvoiceID.String()),
		zap.Int("cancelled", len(open)),
		zap.Bool("force", req.Force))

	return &CancelPlanResult{
		InvoiceID:      req.InvoiceID,
		CancelledCount: len(open),
		WaivedAmount:   waived,
	}, nil
}
