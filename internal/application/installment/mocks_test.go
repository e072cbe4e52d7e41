package installment

import (
	"context"
	"time"

	"github.com/goldbooks/backend/internal/domain/installment"
	"github.com/goldbooks/backend/internal/domain/installment/acl"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockInstallmentRepository is a mock implementation of installment.Repository
type MockInstallmentRepository struct {
	mock.Mock
}

func (m *MockInstallmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*installment.Installment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*installment.Installment), args.Error(1)
}

func (m *MockInstallmentRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*installment.Installment, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*installment.Installment), args.Error(1)
}

func (m *MockInstallmentRepository) FindByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]installment.Installment, error) {
	args := m.Called(ctx, tenantID, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]installment.Installment), args.Error(1)
}

func (m *MockInstallmentRepository) FindByNumber(ctx context.Context, tenantID, invoiceID uuid.UUID, number int) (*installment.Installment, error) {
	args := m.Called(ctx, tenantID, invoiceID, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*installment.Installment), args.Error(1)
}

func (m *MockInstallmentRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter installment.Filter) ([]installment.Installment, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]installment.Installment), args.Error(1)
}

func (m *MockInstallmentRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter installment.Filter) (int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockInstallmentRepository) FindOpen(ctx context.Context, tenantID uuid.UUID) ([]installment.Installment, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]installment.Installment), args.Error(1)
}

func (m *MockInstallmentRepository) HasActivePlan(ctx context.Context, tenantID, invoiceID uuid.UUID) (bool, error) {
	args := m.Called(ctx, tenantID, invoiceID)
	return args.Bool(0), args.Error(1)
}

func (m *MockInstallmentRepository) CreateBatch(ctx context.Context, installments []*installment.Installment) error {
	args := m.Called(ctx, installments)
	return args.Error(0)
}

func (m *MockInstallmentRepository) Save(ctx context.Context, inst *installment.Installment) error {
	args := m.Called(ctx, inst)
	return args.Error(0)
}

func (m *MockInstallmentRepository) SaveWithLock(ctx context.Context, inst *installment.Installment) error {
	args := m.Called(ctx, inst)
	return args.Error(0)
}

func (m *MockInstallmentRepository) MarkOverdueDue(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockInstallmentRepository) AggregateByStatus(ctx context.Context, tenantID uuid.UUID) ([]installment.StatusAggregate, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]installment.StatusAggregate), args.Error(1)
}

// MockInvoiceGateway is a mock implementation of acl.InvoiceGateway
type MockInvoiceGateway struct {
	mock.Mock
}

func (m *MockInvoiceGateway) GetObligation(ctx context.Context, tenantID, invoiceID uuid.UUID) (*acl.Obligation, error) {
	args := m.Called(ctx, tenantID, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*acl.Obligation), args.Error(1)
}

func (m *MockInvoiceGateway) ApplyPaymentDelta(ctx context.Context, tenantID, invoiceID uuid.UUID, delta decimal.Decimal) error {
	args := m.Called(ctx, tenantID, invoiceID, delta)
	return args.Error(0)
}

// MockGoldPriceProvider is a mock implementation of acl.GoldPriceProvider
type MockGoldPriceProvider struct {
	mock.Mock
}

func (m *MockGoldPriceProvider) CurrentPrice(ctx context.Context) (decimal.Decimal, error) {
	args := m.Called(ctx)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}
