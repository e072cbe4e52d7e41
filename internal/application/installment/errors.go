package installment

import (
	"errors"

	"github.com/goldbooks/backend/internal/domain/installment"
	"github.com/goldbooks/backend/internal/domain/shared"
)

// coder is implemented by domain errors that carry a stable code.
type coder interface {
	Code() string
}

// ErrorCode extracts the stable domain code from an error chain, falling back
// to INTERNAL for anything unrecognised. The HTTP layer and the bulk
// coordinator both use it so per-item failures keep their kind.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}

	var overErr *installment.OverpaymentError
	if errors.As(err, &overErr) {
		return overErr.Code()
	}

	var cancelErr *installment.CancellationNotAllowedError
	if errors.As(err, &cancelErr) {
		return cancelErr.Code()
	}

	var c coder
	if errors.As(err, &c) {
		return c.Code()
	}

	return "INTERNAL"
}

// IsNotFound reports whether the error chain contains a not-found condition
func IsNotFound(err error) bool {
	return errors.Is(err, shared.ErrNotFound)
}
