package installment

import (
	"context"
	"testing"

	"github.com/goldbooks/backend/internal/domain/installment"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newBulkService(repo *MockInstallmentRepository, invoices *MockInvoiceGateway) *BulkPaymentService {
	payments := NewPaymentService(repo, invoices, new(MockGoldPriceProvider), zap.NewNop())
	return NewBulkPaymentService(payments, zap.NewNop())
}

func TestProcessBulk_EmptyBatchRejected(t *testing.T) {
	svc := newBulkService(new(MockInstallmentRepository), new(MockInvoiceGateway))

	_, err := svc.ProcessBulk(context.Background(), BulkPaymentRequest{
		TenantID: uuid.New(),
	})

	assert.Equal(t, "EMPTY_BATCH", ErrorCode(err))
}

func TestProcessBulk_IsolatesFailures(t *testing.T) {
	repo := new(MockInstallmentRepository)
	invoices := new(MockInvoiceGateway)
	svc := newBulkService(repo, invoices)

	tenantID := uuid.New()
	good := newTestInstallment(t, tenantID, 1000)
	small := newTestInstallment(t, tenantID, 100)

	repo.On("FindByIDForTenant", mock.Anything, tenantID, good.ID).Return(good, nil)
	repo.On("FindByIDForTenant", mock.Anything, tenantID, small.ID).Return(small, nil)
	repo.On("SaveWithLock", mock.Anything, good).Return(nil)
	repo.On("FindByInvoice", mock.Anything, tenantID, good.InvoiceID).Return([]installment.Installment{*good}, nil)
	invoices.On("ApplyPaymentDelta", mock.Anything, tenantID, good.InvoiceID, mock.Anything).Return(nil)

	result, err := svc.ProcessBulk(context.Background(), BulkPaymentRequest{
		TenantID: tenantID,
		Items: []BulkPaymentItem{
			{InstallmentID: good.ID, Amount: decimal.NewFromInt(500)},
			{InstallmentID: small.ID, Amount: decimal.NewFromInt(500)}, // overpays
		},
	})

	require.NoError(t, err)
	require.Len(t, result.Results, 2)
	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, 1, result.FailureCount)

	assert.True(t, result.Results[0].Success)
	assert.Equal(t, good.ID, result.Results[0].InstallmentID)

	assert.False(t, result.Results[1].Success)
	assert.Equal(t, small.ID, result.Results[1].InstallmentID)
	assert.Equal(t, "OVERPAYMENT", result.Results[1].ErrorCode)
	assert.NotEmpty(t, result.Results[1].ErrorMessage)
	require.NotNil(t, result.Results[1].MaxAcceptable)
	assert.True(t, result.Results[1].MaxAcceptable.Equal(decimal.NewFromInt(100)))

	// Only the successful item contributes to the processed total.
	assert.True(t, result.TotalAmountProcessed.Equal(decimal.NewFromInt(500)))
	assert.True(t, result.TotalWeightProcessed.IsZero())
}

func TestProcessBulk_SplitsProcessedTotalsByKind(t *testing.T) {
	repo := new(MockInstallmentRepository)
	invoices := new(MockInvoiceGateway)
	gold := new(MockGoldPriceProvider)
	svc := NewBulkPaymentService(NewPaymentService(repo, invoices, gold, zap.NewNop()), zap.NewNop())

	tenantID := uuid.New()
	cash := newTestInstallment(t, tenantID, 1000)
	grams := newGoldTestInstallment(t, tenantID, "10.000")

	gold.On("CurrentPrice", mock.Anything).Return(decimal.RequireFromString("2450.50"), nil)
	for _, inst := range []*installment.Installment{cash, grams} {
		repo.On("FindByIDForTenant", mock.Anything, tenantID, inst.ID).Return(inst, nil)
		repo.On("SaveWithLock", mock.Anything, inst).Return(nil)
		repo.On("FindByInvoice", mock.Anything, tenantID, inst.InvoiceID).Return([]installment.Installment{*inst}, nil)
	}
	invoices.On("ApplyPaymentDelta", mock.Anything, tenantID, mock.Anything, mock.Anything).Return(nil)

	result, err := svc.ProcessBulk(context.Background(), BulkPaymentRequest{
		TenantID: tenantID,
		Items: []BulkPaymentItem{
			{InstallmentID: cash.ID, Amount: decimal.NewFromInt(400)},
			{InstallmentID: grams.ID, Amount: decimal.RequireFromString("2.500")},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, 2, result.SuccessCount)
	// Currency and grams never share a total.
	assert.True(t, result.TotalAmountProcessed.Equal(decimal.NewFromInt(400)))
	assert.True(t, result.TotalWeightProcessed.Equal(decimal.RequireFromString("2.500")))
	assert.Equal(t, installment.KindGeneral, result.Results[0].Kind)
	assert.Equal(t, installment.KindGold, result.Results[1].Kind)
}

func TestProcessBulk_SameInstallmentAppliedInOrder(t *testing.T) {
	repo := new(MockInstallmentRepository)
	invoices := new(MockInvoiceGateway)
	svc := newBulkService(repo, invoices)

	tenantID := uuid.New()
	inst := newTestInstallment(t, tenantID, 1000)

	// The two items hit the same installment, so they run sequentially on the
	// same aggregate instance and the second sees the first's effect.
	repo.On("FindByIDForTenant", mock.Anything, tenantID, inst.ID).Return(inst, nil)
	repo.On("SaveWithLock", mock.Anything, inst).Return(nil)
	repo.On("FindByInvoice", mock.Anything, tenantID, inst.InvoiceID).Return([]installment.Installment{*inst}, nil)
	invoices.On("ApplyPaymentDelta", mock.Anything, tenantID, inst.InvoiceID, mock.Anything).Return(nil)

	result, err := svc.ProcessBulk(context.Background(), BulkPaymentRequest{
		TenantID: tenantID,
		Items: []BulkPaymentItem{
			{InstallmentID: inst.ID, Amount: decimal.NewFromInt(400)},
			{InstallmentID: inst.ID, Amount: decimal.NewFromInt(600)},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, installment.StatusPending, result.Results[0].Status)
	assert.Equal(t, installment.StatusPaid, result.Results[1].Status)
	assert.True(t, inst.AmountPaid.Equal(decimal.NewFromInt(1000)))
}

func TestProcessBulk_SameInstallmentSecondOverpaymentFails(t *testing.T) {
	repo := new(MockInstallmentRepository)
	invoices := new(MockInvoiceGateway)
	svc := newBulkService(repo, invoices)

	tenantID := uuid.New()
	inst := newTestInstallment(t, tenantID, 1000)

	repo.On("FindByIDForTenant", mock.Anything, tenantID, inst.ID).Return(inst, nil)
	repo.On("SaveWithLock", mock.Anything, inst).Return(nil)
	repo.On("FindByInvoice", mock.Anything, tenantID, inst.InvoiceID).Return([]installment.Installment{*inst}, nil)
	invoices.On("ApplyPaymentDelta", mock.Anything, tenantID, inst.InvoiceID, mock.Anything).Return(nil)

	result, err := svc.ProcessBulk(context.Background(), BulkPaymentRequest{
		TenantID: tenantID,
		Items: []BulkPaymentItem{
			{InstallmentID: inst.ID, Amount: decimal.NewFromInt(800)},
			{InstallmentID: inst.ID, Amount: decimal.NewFromInt(800)},
		},
	})

	require.NoError(t, err)
	assert.True(t, result.Results[0].Success)
	assert.False(t, result.Results[1].Success)
	assert.Equal(t, "OVERPAYMENT", result.Results[1].ErrorCode)
	// The stored amount never exceeds the due amount.
	assert.True(t, inst.AmountPaid.Equal(decimal.NewFromInt(800)))
}

func TestProcessBulk_ManyInstallmentsAllSucceed(t *testing.T) {
	repo := new(MockInstallmentRepository)
	invoices := new(MockInvoiceGateway)
	svc := newBulkService(repo, invoices)

	tenantID := uuid.New()
	items := make([]BulkPaymentItem, 0, 20)
	for i := 0; i < 20; i++ {
		inst := newTestInstallment(t, tenantID, 100)
		repo.On("FindByIDForTenant", mock.Anything, tenantID, inst.ID).Return(inst, nil)
		repo.On("SaveWithLock", mock.Anything, inst).Return(nil)
		repo.On("FindByInvoice", mock.Anything, tenantID, inst.InvoiceID).Return([]installment.Installment{*inst}, nil)
		items = append(items, BulkPaymentItem{InstallmentID: inst.ID, Amount: decimal.NewFromInt(100)})
	}
	invoices.On("ApplyPaymentDelta", mock.Anything, tenantID, mock.Anything, mock.Anything).Return(nil)

	result, err := svc.ProcessBulk(context.Background(), BulkPaymentRequest{
		TenantID: tenantID,
		Items:    items,
	})

	require.NoError(t, err)
	assert.Equal(t, 20, result.SuccessCount)
	assert.Equal(t, 0, result.FailureCount)
	for idx, r := range result.Results {
		assert.Equal(t, items[idx].InstallmentID, r.InstallmentID, "result %d out of order", idx)
	}
}
