package installment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goldbooks/backend/internal/domain/installment"
	"github.com/goldbooks/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestInstallment(t *testing.T, tenantID uuid.UUID, due int64) *installment.Installment {
	t.Helper()
	inst, err := installment.NewInstallment(
		tenantID, uuid.New(), 1, installment.KindGeneral,
		decimal.NewFromInt(due), time.Now().AddDate(0, 0, 30))
	require.NoError(t, err)
	return inst
}

func newGoldTestInstallment(t *testing.T, tenantID uuid.UUID, grams string) *installment.Installment {
	t.Helper()
	inst, err := installment.NewInstallment(
		tenantID, uuid.New(), 1, installment.KindGold,
		decimal.RequireFromString(grams), time.Now().AddDate(0, 0, 30))
	require.NoError(t, err)
	return inst
}

func newPaymentService(repo *MockInstallmentRepository, invoices *MockInvoiceGateway, gold *MockGoldPriceProvider) *PaymentService {
	return NewPaymentService(repo, invoices, gold, zap.NewNop())
}

func TestRecordPayment_PartialPayment(t *testing.T) {
	repo := new(MockInstallmentRepository)
	invoices := new(MockInvoiceGateway)
	gold := new(MockGoldPriceProvider)
	svc := newPaymentService(repo, invoices, gold)

	tenantID := uuid.New()
	inst := newTestInstallment(t, tenantID, 1000)

	afterPayment := *inst
	afterPayment.AmountPaid = decimal.NewFromInt(400)

	repo.On("FindByIDForTenant", mock.Anything, tenantID, inst.ID).Return(inst, nil)
	repo.On("SaveWithLock", mock.Anything, inst).Return(nil)
	repo.On("FindByInvoice", mock.Anything, tenantID, inst.InvoiceID).Return([]installment.Installment{afterPayment}, nil)
	invoices.On("ApplyPaymentDelta", mock.Anything, tenantID, inst.InvoiceID, decimal.NewFromInt(400)).Return(nil)

	result, err := svc.RecordPayment(context.Background(), RecordPaymentRequest{
		TenantID:      tenantID,
		InstallmentID: inst.ID,
		Amount:        decimal.NewFromInt(400),
	})

	require.NoError(t, err)
	assert.Equal(t, installment.StatusPending, result.Installment.Status)
	assert.True(t, result.Installment.Remaining().Equal(decimal.NewFromInt(600)))
	assert.NotNil(t, result.Payment)
	assert.True(t, result.Balance.Outstanding.Equal(decimal.NewFromInt(600)))
	repo.AssertExpectations(t)
	invoices.AssertExpectations(t)
}

func TestRecordPayment_FullPaymentTransitionsToPaid(t *testing.T) {
	repo := new(MockInstallmentRepository)
	invoices := new(MockInvoiceGateway)
	svc := newPaymentService(repo, invoices, new(MockGoldPriceProvider))

	tenantID := uuid.New()
	inst := newTestInstallment(t, tenantID, 1000)

	settled := *inst
	settled.AmountPaid = decimal.NewFromInt(1000)
	settled.Status = installment.StatusPaid

	repo.On("FindByIDForTenant", mock.Anything, tenantID, inst.ID).Return(inst, nil)
	repo.On("SaveWithLock", mock.Anything, inst).Return(nil)
	repo.On("FindByInvoice", mock.Anything, tenantID, inst.InvoiceID).Return([]installment.Installment{settled}, nil)
	invoices.On("ApplyPaymentDelta", mock.Anything, tenantID, inst.InvoiceID, decimal.NewFromInt(1000)).Return(nil)

	result, err := svc.RecordPayment(context.Background(), RecordPaymentRequest{
		TenantID:      tenantID,
		InstallmentID: inst.ID,
		Amount:        decimal.NewFromInt(1000),
	})

	require.NoError(t, err)
	assert.Equal(t, installment.StatusPaid, result.Installment.Status)
	assert.NotNil(t, result.Installment.PaidAt)
	assert.True(t, result.Balance.IsFullyPaid)
}

func TestRecordPayment_OverpaymentRejectedWithoutWrite(t *testing.T) {
	repo := new(MockInstallmentRepository)
	svc := newPaymentService(repo, new(MockInvoiceGateway), new(MockGoldPriceProvider))

	tenantID := uuid.New()
	inst := newTestInstallment(t, tenantID, 1000)

	repo.On("FindByIDForTenant", mock.Anything, tenantID, inst.ID).Return(inst, nil)

	_, err := svc.RecordPayment(context.Background(), RecordPaymentRequest{
		TenantID:      tenantID,
		InstallmentID: inst.ID,
		Amount:        decimal.NewFromInt(1001),
	})

	var overErr *installment.OverpaymentError
	require.ErrorAs(t, err, &overErr)
	assert.True(t, overErr.MaxAcceptable.Equal(decimal.NewFromInt(1000)))
	repo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
}

func TestRecordPayment_NonPositiveAmountRejected(t *testing.T) {
	repo := new(MockInstallmentRepository)
	svc := newPaymentService(repo, new(MockInvoiceGateway), new(MockGoldPriceProvider))

	for _, amount := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-5)} {
		_, err := svc.RecordPayment(context.Background(), RecordPaymentRequest{
			TenantID:      uuid.New(),
			InstallmentID: uuid.New(),
			Amount:        amount,
		})
		assert.Equal(t, "INVALID_AMOUNT", ErrorCode(err))
	}
	repo.AssertNotCalled(t, "FindByIDForTenant", mock.Anything, mock.Anything, mock.Anything)
}

func TestRecordPayment_GoldSnapshotsPrice(t *testing.T) {
	repo := new(MockInstallmentRepository)
	invoices := new(MockInvoiceGateway)
	gold := new(MockGoldPriceProvider)
	svc := newPaymentService(repo, invoices, gold)

	tenantID := uuid.New()
	inst := newGoldTestInstallment(t, tenantID, "5.000")
	price := decimal.RequireFromString("2450.50")

	repo.On("FindByIDForTenant", mock.Anything, tenantID, inst.ID).Return(inst, nil)
	repo.On("SaveWithLock", mock.Anything, inst).Return(nil)
	repo.On("FindByInvoice", mock.Anything, tenantID, inst.InvoiceID).Return([]installment.Installment{*inst}, nil)
	gold.On("CurrentPrice", mock.Anything).Return(price, nil)
	invoices.On("ApplyPaymentDelta", mock.Anything, tenantID, inst.InvoiceID, mock.Anything).Return(nil)

	result, err := svc.RecordPayment(context.Background(), RecordPaymentRequest{
		TenantID:      tenantID,
		InstallmentID: inst.ID,
		Amount:        decimal.RequireFromString("2.000"),
	})

	require.NoError(t, err)
	require.NotNil(t, result.Payment.PriceAtPayment)
	assert.True(t, result.Payment.PriceAtPayment.Equal(price))
	gold.AssertNumberOfCalls(t, "CurrentPrice", 1)
}

func TestRecordPayment_GoldPriceUnavailable(t *testing.T) {
	repo := new(MockInstallmentRepository)
	gold := new(MockGoldPriceProvider)
	svc := newPaymentService(repo, new(MockInvoiceGateway), gold)

	tenantID := uuid.New()
	inst := newGoldTestInstallment(t, tenantID, "5.000")

	repo.On("FindByIDForTenant", mock.Anything, tenantID, inst.ID).Return(inst, nil)
	gold.On("CurrentPrice", mock.Anything).Return(decimal.Zero, errors.New("feed down"))

	_, err := svc.RecordPayment(context.Background(), RecordPaymentRequest{
		TenantID:      tenantID,
		InstallmentID: inst.ID,
		Amount:        decimal.NewFromInt(1),
	})

	assert.Error(t, err)
	repo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
}

func TestRecordPayment_RetriesOnVersionConflict(t *testing.T) {
	repo := new(MockInstallmentRepository)
	invoices := new(MockInvoiceGateway)
	svc := newPaymentService(repo, invoices, new(MockGoldPriceProvider))

	tenantID := uuid.New()
	stale := newTestInstallment(t, tenantID, 1000)
	fresh := *stale
	fresh.Payments = installment.PaymentRecords{}
	fresh.Version = stale.Version + 1

	repo.On("FindByIDForTenant", mock.Anything, tenantID, stale.ID).Return(stale, nil).Once()
	repo.On("SaveWithLock", mock.Anything, stale).Return(shared.ErrConcurrencyConflict).Once()
	repo.On("FindByIDForTenant", mock.Anything, tenantID, stale.ID).Return(&fresh, nil).Once()
	repo.On("SaveWithLock", mock.Anything, &fresh).Return(nil).Once()
	repo.On("FindByInvoice", mock.Anything, tenantID, stale.InvoiceID).Return([]installment.Installment{fresh}, nil)
	invoices.On("ApplyPaymentDelta", mock.Anything, tenantID, stale.InvoiceID, mock.Anything).Return(nil)

	result, err := svc.RecordPayment(context.Background(), RecordPaymentRequest{
		TenantID:      tenantID,
		InstallmentID: stale.ID,
		Amount:        decimal.NewFromInt(100),
	})

	require.NoError(t, err)
	assert.True(t, result.Installment.AmountPaid.Equal(decimal.NewFromInt(100)))
	repo.AssertExpectations(t)
}

func TestRecordPayment_RetriesExhausted(t *testing.T) {
	repo := new(MockInstallmentRepository)
	svc := newPaymentService(repo, new(MockInvoiceGateway), new(MockGoldPriceProvider))

	tenantID := uuid.New()
	inst := newTestInstallment(t, tenantID, 1000)

	// Every reload hands back a fresh copy and every write loses the race.
	repo.On("FindByIDForTenant", mock.Anything, tenantID, inst.ID).
		Return(inst, nil).Once()
	for i := 0; i < defaultMaxRetries-1; i++ {
		clone := *inst
		clone.Payments = installment.PaymentRecords{}
		repo.On("FindByIDForTenant", mock.Anything, tenantID, inst.ID).
			Return(&clone, nil).Once()
	}
	repo.On("SaveWithLock", mock.Anything, mock.Anything).Return(shared.ErrConcurrencyConflict)

	_, err := svc.RecordPayment(context.Background(), RecordPaymentRequest{
		TenantID:      tenantID,
		InstallmentID: inst.ID,
		Amount:        decimal.NewFromInt(100),
	})

	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	repo.AssertNumberOfCalls(t, "SaveWithLock", defaultMaxRetries)
}

func TestRecordPayment_NotFound(t *testing.T) {
	repo := new(MockInstallmentRepository)
	svc := newPaymentService(repo, new(MockInvoiceGateway), new(MockGoldPriceProvider))

	tenantID := uuid.New()
	id := uuid.New()
	repo.On("FindByIDForTenant", mock.Anything, tenantID, id).Return(nil, shared.ErrNotFound)

	_, err := svc.RecordPayment(context.Background(), RecordPaymentRequest{
		TenantID:      tenantID,
		InstallmentID: id,
		Amount:        decimal.NewFromInt(100),
	})

	assert.True(t, IsNotFound(err))
}

func TestRecordPayment_InvoiceDeltaFailureDoesNotFailPayment(t *testing.T) {
	repo := new(MockInstallmentRepository)
	invoices := new(MockInvoiceGateway)
	svc := newPaymentService(repo, invoices, new(MockGoldPriceProvider))

	tenantID := uuid.New()
	inst := newTestInstallment(t, tenantID, 1000)

	repo.On("FindByIDForTenant", mock.Anything, tenantID, inst.ID).Return(inst, nil)
	repo.On("SaveWithLock", mock.Anything, inst).Return(nil)
	repo.On("FindByInvoice", mock.Anything, tenantID, inst.InvoiceID).Return([]installment.Installment{*inst}, nil)
	invoices.On("ApplyPaymentDelta", mock.Anything, tenantID, inst.InvoiceID, mock.Anything).
		Return(errors.New("invoice service down"))

	result, err := svc.RecordPayment(context.Background(), RecordPaymentRequest{
		TenantID:      tenantID,
		InstallmentID: inst.ID,
		Amount:        decimal.NewFromInt(200),
	})

	require.NoError(t, err)
	assert.True(t, result.Installment.AmountPaid.Equal(decimal.NewFromInt(200)))
}
