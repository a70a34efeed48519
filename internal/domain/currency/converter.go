package currency

import (
	"context"
	"fmt"
	"time"

	"almacen/internal/core/apperror"
	"almacen/internal/core/types"
	"almacen/pkg/logger"
)

// DefaultRateTTL is how long a looked-up rate stays cached.
const DefaultRateTTL = time.Hour

// Repository reads currency definitions.
type Repository interface {
	// GetByCode returns apperror NotFound for unknown codes.
	GetByCode(ctx context.Context, code string) (*Currency, error)

	// UpdateExchangeRate changes the rate of a non-base currency.
	UpdateExchangeRate(ctx context.Context, code string, rate types.Money) error
}

// RateCache stores rates between lookups. Implementations must treat a miss as ok=false.
type RateCache interface {
	GetRate(ctx context.Context, code string) (rate types.Money, ok bool, err error)
	SetRate(ctx context.Context, code string, rate types.Money, ttl time.Duration) error
}

// RateInvalidator is implemented by caches that can drop a single rate.
type RateInvalidator interface {
	InvalidateRate(ctx context.Context, code string) error
}

// Converter resolves rates relative to the base currency.
// Cache failures are logged and fall through to the repository.
type Converter struct {
	base  string
	repo  Repository
	cache RateCache
	ttl   time.Duration
}

// NewConverter creates a converter. cache may be nil.
func NewConverter(base string, repo Repository, cache RateCache, ttl time.Duration) *Converter {
	if ttl <= 0 {
		ttl = DefaultRateTTL
	}
	return &Converter{
		base:  NormalizeCode(base),
		repo:  repo,
		cache: cache,
		ttl:   ttl,
	}
}

// Base returns the base currency code.
func (c *Converter) Base() string { return c.base }

// IsBase reports whether code is the base currency.
func (c *Converter) IsBase(code string) bool {
	code = NormalizeCode(code)
	return code == "" || code == c.base
}

// Rate returns the rate of code against the base currency. The base currency is 1.
// Unknown currencies are a validation error.
func (c *Converter) Rate(ctx context.Context, code string) (types.Money, error) {
	code = NormalizeCode(code)
	if c.IsBase(code) {
		return types.MustMoney("1"), nil
	}

	if c.cache != nil {
		rate, ok, err := c.cache.GetRate(ctx, code)
		if err != nil {
			logger.Warn(ctx, "rate cache read failed", "currency", code, "error", err)
		} else if ok {
			return rate, nil
		}
	}

	cur, err := c.repo.GetByCode(ctx, code)
	if apperror.IsNotFound(err) {
		return types.Zero(), apperror.NewValidation("unsupported currency").WithDetail("currency", code)
	}
	if err != nil {
		return types.Zero(), fmt.Errorf("load currency %s: %w", code, err)
	}
	if !cur.ExchangeRate.IsPositive() {
		return types.Zero(), apperror.NewValidation("currency has no exchange rate").WithDetail("currency", code)
	}

	if c.cache != nil {
		if err := c.cache.SetRate(ctx, code, cur.ExchangeRate, c.ttl); err != nil {
			logger.Warn(ctx, "rate cache write failed", "currency", code, "error", err)
		}
	}
	return cur.ExchangeRate, nil
}

// FromBase converts a base amount into code, returning the amount and the rate used.
func (c *Converter) FromBase(ctx context.Context, amount types.Money, code string) (types.Money, types.Money, error) {
	rate, err := c.Rate(ctx, code)
	if err != nil {
		return types.Zero(), types.Zero(), err
	}
	return FromBase(amount, rate), rate, nil
}

// UpdateRate stores a new rate for code and drops the cached one, so the next
// checkout converts with it. The base currency cannot be changed.
func (c *Converter) UpdateRate(ctx context.Context, code string, rate types.Money) error {
	code = NormalizeCode(code)
	if c.IsBase(code) {
		return apperror.NewValidation("the base currency rate is fixed at 1").WithDetail("currency", code)
	}
	if err := c.repo.UpdateExchangeRate(ctx, code, rate); err != nil {
		return err
	}

	if inv, ok := c.cache.(RateInvalidator); ok {
		if err := inv.InvalidateRate(ctx, code); err != nil {
			logger.Warn(ctx, "rate cache invalidation failed", "currency", code, "error", err)
		}
	}
	logger.Info(ctx, "exchange rate updated", "currency", code, "rate", rate)
	return nil
}
