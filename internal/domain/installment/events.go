package installment

import (
	"time"

	"github.com/goldbooks/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InstallmentCreatedEvent is raised when a plan builder creates an installment
type InstallmentCreatedEvent struct {
	shared.BaseDomainEvent
	InstallmentID     uuid.UUID       `json:"installment_id"`
	InvoiceID         uuid.UUID       `json:"invoice_id"`
	InstallmentNumber int             `json:"installment_number"`
	Kind              Kind            `json:"kind"`
	AmountDue         decimal.Decimal `json:"amount_due"`
	DueDate           time.Time       `json:"due_date"`
}

// EventType returns the event type name
func (e *InstallmentCreatedEvent) EventType() string {
	return "InstallmentCreated"
}

// NewInstallmentCreatedEvent creates a new InstallmentCreatedEvent
func NewInstallmentCreatedEvent(i *Installment) *InstallmentCreatedEvent {
	return &InstallmentCreatedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent("InstallmentCreated", "Installment", i.ID, i.TenantID),
		InstallmentID:     i.ID,
		InvoiceID:         i.InvoiceID,
		InstallmentNumber: i.InstallmentNumber,
		Kind:              i.Kind,
		AmountDue:         i.AmountDue,
		DueDate:           i.DueDate,
	}
}

// InstallmentPaidEvent is raised when an installment reaches full payment
type InstallmentPaidEvent struct {
	shared.BaseDomainEvent
	InstallmentID uuid.UUID       `json:"installment_id"`
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	AmountDue     decimal.Decimal `json:"amount_due"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	PaidAt        time.Time       `json:"paid_at"`
}

// EventType returns the event type name
func (e *InstallmentPaidEvent) EventType() string {
	return "InstallmentPaid"
}

// NewInstallmentPaidEvent creates a new InstallmentPaidEvent
func NewInstallmentPaidEvent(i *Installment) *InstallmentPaidEvent {
	paidAt := time.Now()
	if i.PaidAt != nil {
		paidAt = *i.PaidAt
	}
	return &InstallmentPaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InstallmentPaid", "Installment", i.ID, i.TenantID),
		InstallmentID:   i.ID,
		InvoiceID:       i.InvoiceID,
		AmountDue:       i.AmountDue,
		AmountPaid:      i.AmountPaid,
		PaidAt:          paidAt,
	}
}

// InstallmentPartiallyPaidEvent is raised for a payment that leaves a balance
type InstallmentPartiallyPaidEvent struct {
	shared.BaseDomainEvent
	InstallmentID uuid.UUID       `json:"installment_id"`
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	PaymentAmount decimal.Decimal `json:"payment_amount"`
	Remaining     decimal.Decimal `json:"remaining"`
}

// EventType returns the event type name
func (e *InstallmentPartiallyPaidEvent) EventType() string {
	return "InstallmentPartiallyPaid"
}

// NewInstallmentPartiallyPaidEvent creates a new InstallmentPartiallyPaidEvent
func NewInstallmentPartiallyPaidEvent(i *Installment, paymentAmount decimal.Decimal) *InstallmentPartiallyPaidEvent {
	return &InstallmentPartiallyPaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InstallmentPartiallyPaid", "Installment", i.ID, i.TenantID),
		InstallmentID:   i.ID,
		InvoiceID:       i.InvoiceID,
		PaymentAmount:   paymentAmount,
		Remaining:       i.Remaining(),
	}
}

// InstallmentOverdueEvent is raised when the sweeper flips a pending
// installment past its due date
type InstallmentOverdueEvent struct {
	shared.BaseDomainEvent
	InstallmentID uuid.UUID `json:"installment_id"`
	InvoiceID     uuid.UUID `json:"invoice_id"`
	DueDate       time.Time `json:"due_date"`
}

// EventType returns the event type name
func (e *InstallmentOverdueEvent) EventType() string {
	return "InstallmentOverdue"
}

// NewInstallmentOverdueEvent creates a new InstallmentOverdueEvent
func NewInstallmentOverdueEvent(i *Installment) *InstallmentOverdueEvent {
	return &InstallmentOverdueEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InstallmentOverdue", "Installment", i.ID, i.TenantID),
		InstallmentID:   i.ID,
		InvoiceID:       i.InvoiceID,
		DueDate:         i.DueDate,
	}
}

// InstallmentCancelledEvent is raised when a plan cancellation reaches an
// installment
type InstallmentCancelledEvent struct {
	shared.BaseDomainEvent
	InstallmentID uuid.UUID `json:"installment_id"`
	InvoiceID     uuid.UUID `json:"invoice_id"`
	CancelReason  string    `json:"cancel_reason"`
}

// EventType returns the event type name
func (e *InstallmentCancelledEvent) EventType() string {
	return "InstallmentCancelled"
}

// NewInstallmentCancelledEvent creates a new InstallmentCancelledEvent
func NewInstallmentCancelledEvent(i *Installment) *InstallmentCancelledEvent {
	return &InstallmentCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InstallmentCancelled", "Installment", i.ID, i.TenantID),
		InstallmentID:   i.ID,
		InvoiceID:       i.InvoiceID,
		CancelReason:    i.CancelReason,
	}
}
