package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"almacen/internal/core/types"
	"almacen/internal/domain/currency"
)

const rateKeyPrefix = "almacen:rate:"

// RateCache keeps exchange rates in Redis as decimal strings.
type RateCache struct {
	rdb redis.Cmdable
}

var _ currency.RateCache = (*RateCache)(nil)

// NewRateCache creates a rate cache over rdb.
func NewRateCache(rdb redis.Cmdable) *RateCache {
	return &RateCache{rdb: rdb}
}

func rateKey(code string) string {
	return rateKeyPrefix + currency.NormalizeCode(code)
}

// GetRate implements currency.RateCache.
func (c *RateCache) GetRate(ctx context.Context, code string) (types.Money, bool, error) {
	val, err := c.rdb.Get(ctx, rateKey(code)).Result()
	if errors.Is(err, redis.Nil) {
		return types.Money{}, false, nil
	}
	if err != nil {
		return types.Money{}, false, fmt.Errorf("get rate %s: %w", code, err)
	}

	rate, err := types.NewMoneyFromString(val)
	if err != nil {
		// a corrupt entry is a miss; the converter refills it
		return types.Money{}, false, nil
	}
	return rate, true, nil
}

// SetRate implements currency.RateCache.
func (c *RateCache) SetRate(ctx context.Context, code string, rate types.Money, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, rateKey(code), rate.String(), ttl).Err(); err != nil {
		return fmt.Errorf("set rate %s: %w", code, err)
	}
	return nil
}

// InvalidateRate drops a cached rate after the currency row changed.
func (c *RateCache) InvalidateRate(ctx context.Context, code string) error {
	return c.rdb.Del(ctx, rateKey(code)).Err()
}
