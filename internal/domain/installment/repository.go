package installment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Filter narrows installment queries
type Filter struct {
	InvoiceID *uuid.UUID
	Status    *Status
	Kind      *Kind
	DueFrom   *time.Time
	DueTo     *time.Time
	Overdue   *bool
	Page      int
	PageSize  int
	OrderBy   string
	OrderDir  string
}

// StatusAggregate is one row of the portfolio rollup: per status and kind,
// how many installments and how much is due and paid. Kinds stay separate so
// currency and weight totals never mix.
type StatusAggregate struct {
	Status    Status
	Kind      Kind
	Count     int64
	TotalDue  decimal.Decimal
	TotalPaid decimal.Decimal
}

// Repository is the persistence contract for the Installment aggregate.
// Implementations must provide the compare-and-swap semantics of
// SaveWithLock; everything else is plain CRUD and aggregation.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Installment, error)
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Installment, error)
	// FindByInvoice returns an invoice's installments ordered by number.
	FindByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]Installment, error)
	FindByNumber(ctx context.Context, tenantID, invoiceID uuid.UUID, number int) (*Installment, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter Filter) ([]Installment, error)
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter Filter) (int64, error)
	// FindOpen returns a tenant's PENDING and OVERDUE installments.
	FindOpen(ctx context.Context, tenantID uuid.UUID) ([]Installment, error)

	// HasActivePlan reports whether the invoice has any non-cancelled
	// installments. Plan creation is rejected while this holds.
	HasActivePlan(ctx context.Context, tenantID, invoiceID uuid.UUID) (bool, error)

	CreateBatch(ctx context.Context, installments []*Installment) error
	Save(ctx context.Context, inst *Installment) error
	// SaveWithLock writes the aggregate only if the stored version is the one
	// the aggregate was loaded at. A lost race returns
	// shared.ErrConcurrencyConflict and the caller reloads and retries.
	SaveWithLock(ctx context.Context, inst *Installment) error

	// MarkOverdueDue flips every PENDING installment with due_date before now
	// to OVERDUE in one conditional update and returns the number of rows
	// changed. Idempotent; PAID and CANCELLED rows are structurally excluded
	// by the status predicate.
	MarkOverdueDue(ctx context.Context, now time.Time) (int64, error)

	AggregateByStatus(ctx context.Context, tenantID uuid.UUID) ([]StatusAggregate, error)
}
