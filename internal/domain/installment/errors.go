package installment

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OverpaymentError is returned when a payment would drive the paid amount
// above the due amount. MaxAcceptable lets the caller split the payment and
// retry instead of guessing.
type OverpaymentError struct {
	InstallmentID uuid.UUID
	Attempted     decimal.Decimal
	MaxAcceptable decimal.Decimal
}

// NewOverpaymentError creates a new OverpaymentError
func NewOverpaymentError(installmentID uuid.UUID, attempted, maxAcceptable decimal.Decimal) *OverpaymentError {
	return &OverpaymentError{
		InstallmentID: installmentID,
		Attempted:     attempted,
		MaxAcceptable: maxAcceptable,
	}
}

// Error implements the error interface
func (e *OverpaymentError) Error() string {
	return fmt.Sprintf("payment %s exceeds remaining due; maximum acceptable is %s",
		e.Attempted.String(), e.MaxAcceptable.String())
}

// Code returns the stable error code for boundary mapping
func (e *OverpaymentError) Code() string {
	return "OVERPAYMENT"
}

// CancellationNotAllowedError is returned when a plan cancellation hits an
// installment that already received payments and no force override was given.
type CancellationNotAllowedError struct {
	InstallmentID uuid.UUID
	PaidAmount    decimal.Decimal
}

// NewCancellationNotAllowedError creates a new CancellationNotAllowedError
func NewCancellationNotAllowedError(installmentID uuid.UUID, paidAmount decimal.Decimal) *CancellationNotAllowedError {
	return &CancellationNotAllowedError{
		InstallmentID: installmentID,
		PaidAmount:    paidAmount,
	}
}

// Error implements the error interface
func (e *CancellationNotAllowedError) Error() string {
	return fmt.Sprintf("installment %s has %s already paid; cancellation requires an explicit override",
		e.InstallmentID, e.PaidAmount.String())
}

// Code returns the stable error code for boundary mapping
func (e *CancellationNotAllowedError) Code() string {
	return "CANCELLATION_NOT_ALLOWED"
}
