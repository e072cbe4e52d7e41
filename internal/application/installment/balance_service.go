package installment

import (
	"context"
	"sort"
	"time"

	"github.com/goldbooks/backend/internal/domain/installment"
	"github.com/goldbooks/backend/internal/domain/installment/acl"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OutstandingBalance is the aggregated view of one invoice's plan. Cancelled
// installments are excluded from the due and paid sums: their obligation is
// waived and counting them would overstate the debt.
type OutstandingBalance struct {
	InvoiceID         uuid.UUID        `json:"invoice_id"`
	Kind              installment.Kind `json:"kind,omitempty"`
	TotalInstallments int              `json:"total_installments"`
	PendingCount      int              `json:"pending_count"`
	PaidCount         int              `json:"paid_count"`
	OverdueCount      int              `json:"overdue_count"`
	CancelledCount    int              `json:"cancelled_count"`
	TotalDue          decimal.Decimal  `json:"total_due"`
	TotalPaid         decimal.Decimal  `json:"total_paid"`
	Outstanding       decimal.Decimal  `json:"outstanding"`
	OverdueAmount     decimal.Decimal  `json:"overdue_amount"`
	IsFullyPaid       bool             `json:"is_fully_paid"`
	NextDueNumber     int              `json:"next_due_number,omitempty"`
	NextDueDate       *time.Time       `json:"next_due_date,omitempty"`
	NextDueAmount     *decimal.Decimal `json:"next_due_amount,omitempty"`
}

// ComputeOutstandingBalance folds an invoice's installments into a balance
// view. It is a pure function over already-loaded aggregates; OverdueAmount
// sums the remaining of everything past due at the given instant, whether or
// not the sweeper has flipped its status yet.
func ComputeOutstandingBalance(invoiceID uuid.UUID, installments []installment.Installment, now time.Time) *OutstandingBalance {
	b := &OutstandingBalance{
		InvoiceID:         invoiceID,
		TotalInstallments: len(installments),
		TotalDue:          decimal.Zero,
		TotalPaid:         decimal.Zero,
		Outstanding:       decimal.Zero,
		OverdueAmount:     decimal.Zero,
	}

	var nextDue *installment.Installment
	for idx := range installments {
		inst := &installments[idx]
		if b.Kind == "" {
			b.Kind = inst.Kind
		}

		switch inst.Status {
		case installment.StatusPending:
			b.PendingCount++
		case installment.StatusPaid:
			b.PaidCount++
		case installment.StatusOverdue:
			b.OverdueCount++
		case installment.StatusCancelled:
			b.CancelledCount++
			continue
		}

		b.TotalDue = b.TotalDue.Add(inst.AmountDue)
		b.TotalPaid = b.TotalPaid.Add(inst.AmountPaid)

		if inst.Status.IsTerminal() {
			continue
		}

		remaining := inst.Remaining()
		b.Outstanding = b.Outstanding.Add(remaining)
		if inst.IsOverdueAt(now) {
			b.OverdueAmount = b.OverdueAmount.Add(remaining)
		}
		if nextDue == nil || inst.DueDate.Before(nextDue.DueDate) {
			nextDue = inst
		}
	}

	b.IsFullyPaid = b.Outstanding.IsZero() && b.PendingCount == 0 && b.OverdueCount == 0
	if nextDue != nil {
		b.NextDueNumber = nextDue.InstallmentNumber
		due := nextDue.DueDate
		b.NextDueDate = &due
		amount := nextDue.Remaining()
		b.NextDueAmount = &amount
	}

	return b
}

// PaymentHistoryEntry is one payment in an invoice's chronological payment
// trail, with the invoice-level balance remaining after it was applied.
type PaymentHistoryEntry struct {
	InstallmentID     uuid.UUID                 `json:"installment_id"`
	InstallmentNumber int                       `json:"installment_number"`
	PaymentID         uuid.UUID                 `json:"payment_id"`
	Amount            decimal.Decimal           `json:"amount"`
	PriceAtPayment    *decimal.Decimal          `json:"price_at_payment,omitempty"`
	Method            installment.PaymentMethod `json:"method"`
	Reference         string                    `json:"reference,omitempty"`
	Notes             string                    `json:"notes,omitempty"`
	PaidAt            time.Time                 `json:"paid_at"`
	RecordedBy        *uuid.UUID                `json:"recorded_by,omitempty"`
	RemainingAfter    decimal.Decimal           `json:"remaining_after"`
}

// PaymentHistory is the full payment trail of an invoice
type PaymentHistory struct {
	InvoiceID    uuid.UUID             `json:"invoice_id"`
	Entries      []PaymentHistoryEntry `json:"entries"`
	TotalPaid    decimal.Decimal       `json:"total_paid"`
	PaymentCount int                   `json:"payment_count"`
}

// BalanceService answers balance and history queries for an invoice's plan
type BalanceService struct {
	repo     installment.Repository
	invoices acl.InvoiceGateway
}

// NewBalanceService creates a new BalanceService
func NewBalanceService(repo installment.Repository, invoices acl.InvoiceGateway) *BalanceService {
	return &BalanceService{repo: repo, invoices: invoices}
}

// GetOutstandingBalance aggregates the invoice's installments into a balance
// view. An invoice without a plan has no installments to fold, so IsFullyPaid
// falls back to the invoice's own remaining obligation.
func (s *BalanceService) GetOutstandingBalance(ctx context.Context, tenantID, invoiceID uuid.UUID) (*OutstandingBalance, error) {
	installments, err := s.repo.FindByInvoice(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}

	balance := ComputeOutstandingBalance(invoiceID, installments, time.Now())
	if len(installments) == 0 {
		obligation, err := s.invoices.GetObligation(ctx, tenantID, invoiceID)
		if err != nil {
			return nil, err
		}
		balance.Kind = obligation.Kind
		balance.IsFullyPaid = obligation.Remaining.IsZero()
	}
	return balance, nil
}

// GetPaymentHistory flattens every payment record across the invoice's
// installments into one list ordered by payment time, oldest first, with a
// running invoice-level remaining after each entry. Payments on cancelled
// installments stay in the trail; history is append-only.
func (s *BalanceService) GetPaymentHistory(ctx context.Context, tenantID, invoiceID uuid.UUID) (*PaymentHistory, error) {
	installments, err := s.repo.FindByInvoice(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}

	totalDue := decimal.Zero
	entries := make([]PaymentHistoryEntry, 0)
	for idx := range installments {
		inst := &installments[idx]
		if inst.Status != installment.StatusCancelled {
			totalDue = totalDue.Add(inst.AmountDue)
		}
		for _, p := range inst.Payments {
			entries = append(entries, PaymentHistoryEntry{
				InstallmentID:     inst.ID,
				InstallmentNumber: inst.InstallmentNumber,
				PaymentID:         p.ID,
				Amount:            p.Amount,
				PriceAtPayment:    p.PriceAtPayment,
				Method:            p.Method,
				Reference:         p.Reference,
				Notes:             p.Notes,
				PaidAt:            p.PaidAt,
				RecordedBy:        p.RecordedBy,
			})
		}
	}

	sort.SliceStable(entries, func(a, b int) bool {
		return entries[a].PaidAt.Before(entries[b].PaidAt)
	})

	paid := decimal.Zero
	for i := range entries {
		paid = paid.Add(entries[i].Amount)
		entries[i].RemainingAfter = totalDue.Sub(paid)
		if entries[i].RemainingAfter.IsNegative() {
			entries[i].RemainingAfter = decimal.Zero
		}
	}

	return &PaymentHistory{
		InvoiceID:    invoiceID,
		Entries:      entries,
		TotalPaid:    paid,
		PaymentCount: len(entries),
	}, nil
}
