package acl

import (
	"context"

	"github.com/shopspring/decimal"
)

// GoldPriceProvider supplies the per-gram price used to value gold-kind
// payments. It is consulted exactly once, at the instant a payment is
// recorded; the returned price is copied into the payment record and never
// re-read, so historical valuations stay stable.
type GoldPriceProvider interface {
	CurrentPrice(ctx context.Context) (decimal.Decimal, error)
}
