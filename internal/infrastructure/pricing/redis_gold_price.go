package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goldbooks/backend/internal/domain/shared"
	"github.com/goldbooks/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RedisGoldPriceProvider implements acl.GoldPriceProvider against a Redis key
// an external price feed publishes to. When the key is missing or expired it
// falls back to the configured static price; without a fallback the lookup
// fails and gold payments are rejected rather than valued at a stale price.
type RedisGoldPriceProvider struct {
	client   *redis.Client
	key      string
	fallback *decimal.Decimal
	logger   *zap.Logger
}

// NewRedisGoldPriceProvider creates a new RedisGoldPriceProvider
func NewRedisGoldPriceProvider(cfg config.RedisConfig, priceCfg config.GoldPriceConfig, logger *zap.Logger) (*RedisGoldPriceProvider, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	p := &RedisGoldPriceProvider{
		client: client,
		key:    priceCfg.CacheKey,
		logger: logger,
	}
	if priceCfg.StaticPrice != "" {
		fallback, err := decimal.NewFromString(priceCfg.StaticPrice)
		if err != nil {
			return nil, fmt.Errorf("invalid static gold price %q: %w", priceCfg.StaticPrice, err)
		}
		p.fallback = &fallback
	}
	return p, nil
}

// NewRedisGoldPriceProviderWithClient creates a provider with an existing
// Redis client, useful for testing or sharing a client across components.
func NewRedisGoldPriceProviderWithClient(client *redis.Client, key string, fallback *decimal.Decimal, logger *zap.Logger) *RedisGoldPriceProvider {
	return &RedisGoldPriceProvider{
		client:   client,
		key:      key,
		fallback: fallback,
		logger:   logger,
	}
}

// CurrentPrice returns the per-gram gold price in the default currency
func (p *RedisGoldPriceProvider) CurrentPrice(ctx context.Context) (decimal.Decimal, error) {
	raw, err := p.client.Get(ctx, p.key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			p.logger.Warn("gold price lookup failed", zap.Error(err))
		}
		return p.fallbackPrice()
	}

	price, err := decimal.NewFromString(raw)
	if err != nil || price.LessThanOrEqual(decimal.Zero) {
		p.logger.Warn("gold price cache holds an unusable value", zap.String("raw", raw))
		return p.fallbackPrice()
	}
	return price, nil
}

func (p *RedisGoldPriceProvider) fallbackPrice() (decimal.Decimal, error) {
	if p.fallback == nil {
		return decimal.Zero, shared.NewDomainError("GOLD_PRICE_UNAVAILABLE",
			"No current gold price is available")
	}
	return *p.fallback, nil
}

// StaticGoldPriceProvider always returns one fixed per-gram price. Used in
// tests and single-shop deployments that key in the day's rate by hand.
type StaticGoldPriceProvider struct {
	price decimal.Decimal
}

// NewStaticGoldPriceProvider creates a provider with a fixed price
func NewStaticGoldPriceProvider(price decimal.Decimal) *StaticGoldPriceProvider {
	return &StaticGoldPriceProvider{price: price}
}

// CurrentPrice returns the fixed price
func (p *StaticGoldPriceProvider) CurrentPrice(ctx context.Context) (decimal.Decimal, error) {
	if p.price.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, shared.NewDomainError("GOLD_PRICE_UNAVAILABLE",
			"No current gold price is available")
	}
	return p.price, nil
}
