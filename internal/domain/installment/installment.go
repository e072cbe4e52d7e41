package installment

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/goldbooks/backend/internal/domain/shared"
	"github.com/goldbooks/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status represents the lifecycle state of an installment
type Status string

const (
	StatusPending   Status = "PENDING"   // Created, not yet fully paid, not past due
	StatusPaid      Status = "PAID"      // Fully paid; terminal
	StatusOverdue   Status = "OVERDUE"   // Past due with an open balance; cleared by full payment
	StatusCancelled Status = "CANCELLED" // Plan cancelled; terminal
)

// IsValid checks if the status is a valid Status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusOverdue, StatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsTerminal returns true if no further mutation is allowed in this status
func (s Status) IsTerminal() bool {
	return s == StatusPaid || s == StatusCancelled
}

// CanAcceptPayment returns true if payments can be applied in this status
func (s Status) CanAcceptPayment() bool {
	return s == StatusPending || s == StatusOverdue
}

// Kind distinguishes the unit an installment is denominated in
type Kind string

const (
	KindGeneral Kind = "GENERAL" // Currency amounts
	KindGold    Kind = "GOLD"    // Metal weight, valued at payment time
)

// IsValid checks if the kind is valid
func (k Kind) IsValid() bool {
	return k == KindGeneral || k == KindGold
}

// PaymentMethod is how a payment was collected
type PaymentMethod string

const (
	MethodCash     PaymentMethod = "CASH"
	MethodTransfer PaymentMethod = "TRANSFER"
	MethodCard     PaymentMethod = "CARD"
	MethodOther    PaymentMethod = "OTHER"
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case MethodCash, MethodTransfer, MethodCard, MethodOther:
		return true
	}
	return false
}

// PaymentRecord is one payment applied to an installment. It is a value
// object within the Installment aggregate, stored as JSONB, append-only and
// immutable once written; corrections are new records, never edits.
type PaymentRecord struct {
	ID             uuid.UUID        `json:"id"`
	Amount         decimal.Decimal  `json:"amount"`                     // Currency for GENERAL, grams for GOLD
	PriceAtPayment *decimal.Decimal `json:"price_at_payment,omitempty"` // Per-gram price snapshot, GOLD only
	Method         PaymentMethod    `json:"method"`
	Reference      string           `json:"reference,omitempty"`
	Notes          string           `json:"notes,omitempty"`
	PaidAt         time.Time        `json:"paid_at"`
	RecordedBy     *uuid.UUID       `json:"recorded_by,omitempty"`
}

// PaymentRecords implements GORM Scanner/Valuer for JSONB storage
type PaymentRecords []PaymentRecord

// Value implements driver.Valuer
func (p PaymentRecords) Value() (driver.Value, error) {
	if p == nil {
		return "[]", nil
	}
	return json.Marshal(p)
}

// Scan implements sql.Scanner
func (p *PaymentRecords) Scan(value interface{}) error {
	if value == nil {
		*p = PaymentRecords{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan PaymentRecords: unsupported type")
	}

	if len(bytes) == 0 {
		*p = PaymentRecords{}
		return nil
	}

	return json.Unmarshal(bytes, p)
}

// Installment is one scheduled partial obligation of an invoice's payment
// plan. It is the aggregate root and the unit of mutual exclusion: every
// mutation goes through a version-checked write, so two concurrent payments
// against the same installment serialize on the version column.
//
// AmountDue/AmountPaid hold currency for GENERAL installments and grams for
// GOLD installments; the Kind field decides which unit applies and the two
// are never mixed. The remaining amount is always derived, never stored.
type Installment struct {
	shared.TenantAggregateRoot
	InvoiceID         uuid.UUID       `json:"invoice_id"`
	InstallmentNumber int             `json:"installment_number"` // Dense, 1-based per invoice
	Kind              Kind            `json:"kind"`
	AmountDue         decimal.Decimal `json:"amount_due"`
	AmountPaid        decimal.Decimal `json:"amount_paid"`
	DueDate           time.Time       `json:"due_date"`
	Status            Status          `json:"status"`
	Payments          PaymentRecords  `json:"payments"`
	PaidAt            *time.Time      `json:"paid_at,omitempty"`
	CancelledAt       *time.Time      `json:"cancelled_at,omitempty"`
	CancelReason      string          `json:"cancel_reason,omitempty"`
}

// NewInstallment creates a pending installment. Callers normally go through
// BuildPlan rather than constructing installments one by one.
func NewInstallment(tenantID, invoiceID uuid.UUID, number int, kind Kind, amountDue decimal.Decimal, dueDate time.Time) (*Installment, error) {
	if invoiceID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INVOICE", "Invoice ID cannot be empty")
	}
	if number < 1 {
		return nil, shared.NewDomainError("INVALID_NUMBER", "Installment number must be 1 or greater")
	}
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_KIND", "Installment kind is not valid")
	}
	if amountDue.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Amount due must be positive")
	}

	inst := &Installment{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		InvoiceID:           invoiceID,
		InstallmentNumber:   number,
		Kind:                kind,
		AmountDue:           amountDue,
		AmountPaid:          decimal.Zero,
		DueDate:             dueDate,
		Status:              StatusPending,
		Payments:            PaymentRecords{},
	}

	inst.AddDomainEvent(NewInstallmentCreatedEvent(inst))

	return inst, nil
}

// PaymentInput carries the caller-supplied attributes of a payment.
type PaymentInput struct {
	Amount     decimal.Decimal
	Method     PaymentMethod
	Reference  string
	Notes      string
	RecordedBy *uuid.UUID
	// PriceAtPayment is the per-gram metal price snapshot. Required for GOLD
	// installments, must be absent for GENERAL ones.
	PriceAtPayment *decimal.Decimal
}

// ApplyPayment validates and applies one payment. It enforces the
// no-overpayment invariant: the stored paid amount can never exceed the due
// amount. A full payment transitions the installment to PAID even when it was
// OVERDUE; a partial payment leaves the current status untouched, so a
// partially paid overdue installment stays overdue.
//
// A payment against a PAID installment is an overpayment with zero
// acceptable. Only CANCELLED, where the obligation was waived rather than
// exhausted, rejects on state.
func (i *Installment) ApplyPayment(in PaymentInput) (*PaymentRecord, error) {
	if i.Status == StatusPaid {
		return nil, NewOverpaymentError(i.ID, in.Amount, decimal.Zero)
	}
	if !i.Status.CanAcceptPayment() {
		return nil, shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot apply payment to installment in %s status", i.Status))
	}
	if in.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if in.Method != "" && !in.Method.IsValid() {
		return nil, shared.NewDomainError("INVALID_METHOD", "Payment method is not valid")
	}
	if i.Kind == KindGold && in.PriceAtPayment == nil {
		return nil, shared.NewDomainError("MISSING_PRICE", "Gold installment payments require a price snapshot")
	}
	if i.Kind == KindGeneral && in.PriceAtPayment != nil {
		return nil, shared.NewDomainError("UNEXPECTED_PRICE", "Price snapshots only apply to gold installments")
	}

	remaining := i.Remaining()
	if in.Amount.GreaterThan(remaining) {
		return nil, NewOverpaymentError(i.ID, in.Amount, remaining)
	}

	method := in.Method
	if method == "" {
		method = MethodCash
	}

	record := PaymentRecord{
		ID:             uuid.New(),
		Amount:         in.Amount,
		PriceAtPayment: in.PriceAtPayment,
		Method:         method,
		Reference:      in.Reference,
		Notes:          in.Notes,
		PaidAt:         time.Now(),
		RecordedBy:     in.RecordedBy,
	}
	i.Payments = append(i.Payments, record)
	i.AmountPaid = i.AmountPaid.Add(in.Amount)

	if i.Remaining().IsZero() {
		now := time.Now()
		i.Status = StatusPaid
		i.PaidAt = &now
		i.AddDomainEvent(NewInstallmentPaidEvent(i))
	} else {
		i.AddDomainEvent(NewInstallmentPartiallyPaidEvent(i, in.Amount))
	}

	i.Touch()

	return &record, nil
}

// MarkOverdue flips a pending installment past its due date to OVERDUE.
// Idempotent; terminal and future-dated installments are left untouched.
// Returns true if the status changed.
func (i *Installment) MarkOverdue(now time.Time) bool {
	if i.Status != StatusPending {
		return false
	}
	if !i.DueDate.Before(now) {
		return false
	}
	i.Status = StatusOverdue
	i.Touch()
	i.AddDomainEvent(NewInstallmentOverdueEvent(i))
	return true
}

// Cancel marks the installment cancelled as part of a plan cancellation.
// An installment that has received any payment cannot be cancelled without
// the force override.
func (i *Installment) Cancel(reason string, force bool) error {
	if i.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot cancel installment in %s status", i.Status))
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Cancel reason is required")
	}
	if i.AmountPaid.GreaterThan(decimal.Zero) && !force {
		return NewCancellationNotAllowedError(i.ID, i.AmountPaid)
	}

	now := time.Now()
	i.Status = StatusCancelled
	i.CancelledAt = &now
	i.CancelReason = reason
	i.Touch()
	i.AddDomainEvent(NewInstallmentCancelledEvent(i))

	return nil
}

// Remaining returns the open balance, never negative and never stored.
func (i *Installment) Remaining() decimal.Decimal {
	remaining := i.AmountDue.Sub(i.AmountPaid)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// IsFullyPaid returns true when no open balance remains
func (i *Installment) IsFullyPaid() bool {
	return i.Remaining().IsZero()
}

// IsOverdueAt returns true if the installment is past due and still open at
// the given instant. Terminal installments are never overdue.
func (i *Installment) IsOverdueAt(now time.Time) bool {
	if i.Status.IsTerminal() {
		return false
	}
	return i.DueDate.Before(now)
}

// DaysOverdueAt returns whole days past due at the given instant, clamped to 0.
func (i *Installment) DaysOverdueAt(now time.Time) int {
	if !i.IsOverdueAt(now) {
		return 0
	}
	return int(now.Sub(i.DueDate).Hours() / 24)
}

// DueMoney returns the due amount as Money for GENERAL installments
func (i *Installment) DueMoney() valueobject.Money {
	return valueobject.NewMoneyTRY(i.AmountDue)
}

// DueWeight returns the due amount as Weight for GOLD installments
func (i *Installment) DueWeight() valueobject.Weight {
	return valueobject.NewWeightGrams(i.AmountDue)
}

// PaymentCount returns the number of payments applied
func (i *Installment) PaymentCount() int {
	return len(i.Payments)
}
