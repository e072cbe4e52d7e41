package installment

import (
	"context"
	"testing"
	"time"

	"github.com/goldbooks/backend/internal/domain/installment"
	"github.com/goldbooks/backend/internal/domain/installment/acl"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestComputeOutstandingBalance_MixedStatuses(t *testing.T) {
	tenantID := uuid.New()
	invoiceID := uuid.New()
	now := time.Now()

	rows := buildTestPlan(t, tenantID, invoiceID, 4)
	// #1 fully paid, #2 partially paid and overdue, #3 pending, #4 cancelled.
	rows[0].Status = installment.StatusPaid
	rows[0].AmountPaid = decimal.NewFromInt(100)
	rows[1].Status = installment.StatusOverdue
	rows[1].AmountPaid = decimal.NewFromInt(30)
	rows[1].DueDate = now.AddDate(0, 0, -10)
	rows[3].Status = installment.StatusCancelled

	b := ComputeOutstandingBalance(invoiceID, rows, now)

	assert.Equal(t, 4, b.TotalInstallments)
	assert.Equal(t, 1, b.PaidCount)
	assert.Equal(t, 1, b.OverdueCount)
	assert.Equal(t, 1, b.PendingCount)
	assert.Equal(t, 1, b.CancelledCount)
	// Cancelled row contributes nothing to the sums.
	assert.True(t, b.TotalDue.Equal(decimal.NewFromInt(300)))
	assert.True(t, b.TotalPaid.Equal(decimal.NewFromInt(130)))
	assert.True(t, b.Outstanding.Equal(decimal.NewFromInt(170)))
	assert.True(t, b.OverdueAmount.Equal(decimal.NewFromInt(70)))
	assert.False(t, b.IsFullyPaid)
}

func TestComputeOutstandingBalance_NextDueIsEarliestOpen(t *testing.T) {
	tenantID := uuid.New()
	invoiceID := uuid.New()

	rows := buildTestPlan(t, tenantID, invoiceID, 3)
	rows[0].Status = installment.StatusPaid
	rows[0].AmountPaid = decimal.NewFromInt(100)

	b := ComputeOutstandingBalance(invoiceID, rows, time.Now())

	assert.Equal(t, 2, b.NextDueNumber)
	require.NotNil(t, b.NextDueDate)
	assert.True(t, b.NextDueDate.Equal(rows[1].DueDate))
	require.NotNil(t, b.NextDueAmount)
	assert.True(t, b.NextDueAmount.Equal(decimal.NewFromInt(100)))
}

func TestComputeOutstandingBalance_AllSettled(t *testing.T) {
	tenantID := uuid.New()
	invoiceID := uuid.New()

	rows := buildTestPlan(t, tenantID, invoiceID, 2)
	rows[0].Status = installment.StatusPaid
	rows[0].AmountPaid = decimal.NewFromInt(100)
	rows[1].Status = installment.StatusCancelled

	b := ComputeOutstandingBalance(invoiceID, rows, time.Now())

	assert.True(t, b.IsFullyPaid)
	assert.True(t, b.Outstanding.IsZero())
	assert.Nil(t, b.NextDueDate)
}

func TestComputeOutstandingBalance_Empty(t *testing.T) {
	// The pure fold alone; BalanceService layers the invoice's own
	// obligation on top when the slice is empty.
	b := ComputeOutstandingBalance(uuid.New(), nil, time.Now())

	assert.Equal(t, 0, b.TotalInstallments)
	assert.True(t, b.IsFullyPaid)
	assert.True(t, b.Outstanding.IsZero())
}

func TestGetOutstandingBalance(t *testing.T) {
	repo := new(MockInstallmentRepository)
	svc := NewBalanceService(repo, new(MockInvoiceGateway))

	tenantID := uuid.New()
	invoiceID := uuid.New()
	rows := buildTestPlan(t, tenantID, invoiceID, 2)

	repo.On("FindByInvoice", mock.Anything, tenantID, invoiceID).Return(rows, nil)

	b, err := svc.GetOutstandingBalance(context.Background(), tenantID, invoiceID)

	require.NoError(t, err)
	assert.True(t, b.TotalDue.Equal(decimal.NewFromInt(200)))
	assert.Equal(t, 2, b.PendingCount)
}

func TestGetOutstandingBalance_UnplannedInvoiceFollowsObligation(t *testing.T) {
	// No installments exist yet, so fully-paid is decided by the invoice's
	// own remaining balance, not by the empty fold.
	tests := []struct {
		name        string
		remaining   int64
		isFullyPaid bool
	}{
		{"open obligation", 5000, false},
		{"settled invoice", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockInstallmentRepository)
			invoices := new(MockInvoiceGateway)
			svc := NewBalanceService(repo, invoices)

			tenantID := uuid.New()
			invoiceID := uuid.New()

			repo.On("FindByInvoice", mock.Anything, tenantID, invoiceID).
				Return([]installment.Installment{}, nil)
			invoices.On("GetObligation", mock.Anything, tenantID, invoiceID).
				Return(&acl.Obligation{
					InvoiceID: invoiceID,
					Kind:      installment.KindGeneral,
					Total:     decimal.NewFromInt(5000),
					Remaining: decimal.NewFromInt(tt.remaining),
				}, nil)

			b, err := svc.GetOutstandingBalance(context.Background(), tenantID, invoiceID)

			require.NoError(t, err)
			assert.Equal(t, 0, b.TotalInstallments)
			assert.Equal(t, installment.KindGeneral, b.Kind)
			assert.Equal(t, tt.isFullyPaid, b.IsFullyPaid)
			assert.True(t, b.Outstanding.IsZero())
		})
	}
}

func TestGetPaymentHistory_OrderedWithRunningRemaining(t *testing.T) {
	repo := new(MockInstallmentRepository)
	svc := NewBalanceService(repo, new(MockInvoiceGateway))

	tenantID := uuid.New()
	invoiceID := uuid.New()
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	rows := buildTestPlan(t, tenantID, invoiceID, 2)
	// Payments deliberately attached out of chronological order across
	// installments; the trail must come back sorted by payment time.
	rows[1].AmountPaid = decimal.NewFromInt(60)
	rows[1].Payments = installment.PaymentRecords{{
		ID: uuid.New(), Amount: decimal.NewFromInt(60),
		Method: installment.MethodCash, PaidAt: base.AddDate(0, 0, 2),
	}}
	rows[0].AmountPaid = decimal.NewFromInt(100)
	rows[0].Status = installment.StatusPaid
	rows[0].Payments = installment.PaymentRecords{
		{ID: uuid.New(), Amount: decimal.NewFromInt(40), Method: installment.MethodCash, PaidAt: base},
		{ID: uuid.New(), Amount: decimal.NewFromInt(60), Method: installment.MethodCard, PaidAt: base.AddDate(0, 0, 5)},
	}

	repo.On("FindByInvoice", mock.Anything, tenantID, invoiceID).Return(rows, nil)

	history, err := svc.GetPaymentHistory(context.Background(), tenantID, invoiceID)

	require.NoError(t, err)
	require.Equal(t, 3, history.PaymentCount)
	assert.True(t, history.TotalPaid.Equal(decimal.NewFromInt(160)))

	// Oldest first: 40 (inst 1), 60 (inst 2), 60 (inst 1).
	assert.True(t, history.Entries[0].Amount.Equal(decimal.NewFromInt(40)))
	assert.Equal(t, 1, history.Entries[0].InstallmentNumber)
	assert.Equal(t, 2, history.Entries[1].InstallmentNumber)
	assert.Equal(t, 1, history.Entries[2].InstallmentNumber)

	// Running remaining against the 200 total: 160, 100, 40.
	assert.True(t, history.Entries[0].RemainingAfter.Equal(decimal.NewFromInt(160)))
	assert.True(t, history.Entries[1].RemainingAfter.Equal(decimal.NewFromInt(100)))
	assert.True(t, history.Entries[2].RemainingAfter.Equal(decimal.NewFromInt(40)))
}

func TestGetPaymentHistory_EmptyPlan(t *testing.T) {
	repo := new(MockInstallmentRepository)
	svc := NewBalanceService(repo, new(MockInvoiceGateway))

	tenantID := uuid.New()
	invoiceID := uuid.New()

	repo.On("FindByInvoice", mock.Anything, tenantID, invoiceID).
		Return([]installment.Installment{}, nil)

	history, err := svc.GetPaymentHistory(context.Background(), tenantID, invoiceID)

	require.NoError(t, err)
	assert.Empty(t, history.Entries)
	assert.True(t, history.TotalPaid.IsZero())
}
