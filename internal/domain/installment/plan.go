package installment

import (
	"time"

	"github.com/goldbooks/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PlanParams describes a payment plan to be generated for one invoice.
// The plan itself is not persisted; it exists only as its installments.
type PlanParams struct {
	TenantID     uuid.UUID
	InvoiceID    uuid.UUID
	Kind         Kind
	Total        decimal.Decimal // Invoice obligation: currency for GENERAL, grams for GOLD
	Count        int
	StartDate    time.Time // Zero value defaults to now
	IntervalDays int
	InterestRate *decimal.Decimal // Optional, percent applied to the total before division
	// Places controls the split precision in decimal places. Negative means
	// the kind default: 2 for currency, 3 for gold weight. Zero is a valid
	// choice for currencies without subunits.
	Places int32
}

// DefaultPlacesFor returns the split precision used for a kind when the
// caller does not choose one.
func DefaultPlacesFor(kind Kind) int32 {
	if kind == KindGold {
		return 3
	}
	return 2
}

// BuildPlan turns an invoice obligation into an ordered, dense, 1-based set
// of pending installments. Shares are equal except the last one, which
// absorbs the rounding remainder so the sum always equals the obligation
// exactly. Due dates advance by IntervalDays from the start date, the first
// installment falling one interval after it.
//
// BuildPlan is pure: duplicate-plan detection is the caller's job since it
// needs the store.
func BuildPlan(p PlanParams) ([]*Installment, error) {
	if p.Count < 1 {
		return nil, shared.NewDomainError("INVALID_COUNT", "Installment count must be at least 1")
	}
	if p.IntervalDays < 1 {
		return nil, shared.NewDomainError("INVALID_INTERVAL", "Installment interval must be at least 1 day")
	}
	if !p.Kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_KIND", "Installment kind is not valid")
	}
	if p.Total.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_TOTAL", "Invoice obligation must be positive")
	}
	if p.InterestRate != nil && p.InterestRate.IsNegative() {
		return nil, shared.NewDomainError("INVALID_INTEREST", "Interest rate cannot be negative")
	}

	places := p.Places
	if places < 0 {
		places = DefaultPlacesFor(p.Kind)
	}

	total := p.Total
	if p.InterestRate != nil && !p.InterestRate.IsZero() {
		factor := decimal.NewFromInt(1).Add(p.InterestRate.Div(decimal.NewFromInt(100)))
		total = total.Mul(factor).Round(places)
	}

	start := p.StartDate
	if start.IsZero() {
		start = time.Now()
	}

	shares := splitExact(total, p.Count, places)

	installments := make([]*Installment, 0, p.Count)
	for idx, share := range shares {
		number := idx + 1
		dueDate := start.AddDate(0, 0, number*p.IntervalDays)
		inst, err := NewInstallment(p.TenantID, p.InvoiceID, number, p.Kind, share, dueDate)
		if err != nil {
			return nil, err
		}
		installments = append(installments, inst)
	}

	return installments, nil
}

// splitExact divides total into n shares truncated to the given precision,
// the last share taking whatever remains.
func splitExact(total decimal.Decimal, n int, places int32) []decimal.Decimal {
	shares := make([]decimal.Decimal, n)
	if n == 1 {
		shares[0] = total
		return shares
	}

	base := total.Div(decimal.NewFromInt(int64(n))).Truncate(places)
	running := decimal.Zero
	for i := 0; i < n-1; i++ {
		shares[i] = base
		running = running.Add(base)
	}
	shares[n-1] = total.Sub(running)
	return shares
}
