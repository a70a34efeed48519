package settings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"almacen/internal/core/types"
)

type countingProvider struct {
	values map[string]string
	calls  int
	err    error
}

func (p *countingProvider) Get(_ context.Context, group, key string) (string, bool, error) {
	p.calls++
	if p.err != nil {
		return "", false, p.err
	}
	v, ok := p.values[group+"."+key]
	return v, ok, nil
}

func TestDecimalAndBool(t *testing.T) {
	ctx := context.Background()
	p := Static{
		"pricing.default_margin":   "25.5",
		"pricing.alert_low_margin": "off",
		"sales.tax_rate":           "abc",
	}

	v, err := Decimal(ctx, p, GroupPricing, KeyDefaultMargin, DefaultMargin)
	require.NoError(t, err)
	assert.True(t, v.Equal(types.MustMoney("25.5")))

	v, err = Decimal(ctx, p, GroupPricing, KeyDefaultMinMargin, DefaultMinMargin)
	require.NoError(t, err)
	assert.True(t, v.Equal(DefaultMinMargin))

	_, err = Decimal(ctx, p, GroupSales, KeyTaxRate, DefaultTaxRate)
	assert.Error(t, err)

	b, err := Bool(ctx, p, GroupPricing, KeyAlertLowMargin, true)
	require.NoError(t, err)
	assert.False(t, b)

	b, err = Bool(ctx, p, GroupSales, "missing", true)
	require.NoError(t, err)
	assert.True(t, b)
}

func TestCachedProvider_TTL(t *testing.T) {
	ctx := context.Background()
	inner := &countingProvider{values: map[string]string{"sales.tax_rate": "18"}}
	cached := NewCachedProvider(inner, time.Hour)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cached.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		v, ok, err := cached.Get(ctx, GroupSales, KeyTaxRate)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "18", v)
	}
	assert.Equal(t, 1, inner.calls)

	now = now.Add(2 * time.Hour)
	_, _, err := cached.Get(ctx, GroupSales, KeyTaxRate)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)

	cached.Invalidate()
	_, _, _ = cached.Get(ctx, GroupSales, KeyTaxRate)
	assert.Equal(t, 3, inner.calls)
}

func TestCachedProvider_ErrorsNotCached(t *testing.T) {
	inner := &countingProvider{err: errors.New("db down")}
	cached := NewCachedProvider(inner, time.Hour)

	_, _, err := cached.Get(context.Background(), GroupSales, KeyTaxRate)
	assert.Error(t, err)
	_, _, err = cached.Get(context.Background(), GroupSales, KeyTaxRate)
	assert.Error(t, err)
	assert.Equal(t, 2, inner.calls)
}
