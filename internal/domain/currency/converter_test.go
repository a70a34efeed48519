package currency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"almacen/internal/core/apperror"
	"almacen/internal/core/types"
)

type repoStub struct {
	rates map[string]string
	calls int
}

func (r *repoStub) GetByCode(_ context.Context, code string) (*Currency, error) {
	r.calls++
	raw, ok := r.rates[code]
	if !ok {
		return nil, apperror.NewNotFound("currency", code)
	}
	return &Currency{Code: code, ExchangeRate: types.MustMoney(raw), DecimalPlaces: 2}, nil
}

func (r *repoStub) UpdateExchangeRate(_ context.Context, code string, rate types.Money) error {
	if _, ok := r.rates[code]; !ok {
		return apperror.NewNotFound("currency", code)
	}
	r.rates[code] = rate.String()
	return nil
}

type mapCache struct {
	rates   map[string]types.Money
	failGet bool
}

func (m *mapCache) GetRate(_ context.Context, code string) (types.Money, bool, error) {
	if m.failGet {
		return types.Zero(), false, errors.New("redis down")
	}
	r, ok := m.rates[code]
	return r, ok, nil
}

func (m *mapCache) SetRate(_ context.Context, code string, rate types.Money, _ time.Duration) error {
	m.rates[code] = rate
	return nil
}

func (m *mapCache) InvalidateRate(_ context.Context, code string) error {
	delete(m.rates, code)
	return nil
}

func TestFromBase(t *testing.T) {
	got := FromBase(types.MustMoney("100"), types.MustMoney("3.75"))
	assert.Equal(t, "26.67", got.String())
}

func TestConverter_BaseCurrencyIsOne(t *testing.T) {
	c := NewConverter("pen", &repoStub{}, nil, 0)
	rate, err := c.Rate(context.Background(), "PEN")
	require.NoError(t, err)
	assert.True(t, rate.Equal(types.MustMoney("1")))

	amount, _, err := c.FromBase(context.Background(), types.MustMoney("59"), "")
	require.NoError(t, err)
	assert.Equal(t, "59", amount.String())
}

func TestConverter_CachesRates(t *testing.T) {
	repo := &repoStub{rates: map[string]string{"USD": "3.75"}}
	cache := &mapCache{rates: map[string]types.Money{}}
	c := NewConverter("PEN", repo, cache, time.Minute)

	for i := 0; i < 3; i++ {
		amount, rate, err := c.FromBase(context.Background(), types.MustMoney("118"), "usd")
		require.NoError(t, err)
		assert.Equal(t, "31.47", amount.String())
		assert.True(t, rate.Equal(types.MustMoney("3.75")))
	}
	assert.Equal(t, 1, repo.calls)
}

func TestConverter_CacheFailureFallsThrough(t *testing.T) {
	repo := &repoStub{rates: map[string]string{"USD": "4"}}
	c := NewConverter("PEN", repo, &mapCache{rates: map[string]types.Money{}, failGet: true}, 0)

	rate, err := c.Rate(context.Background(), "USD")
	require.NoError(t, err)
	assert.True(t, rate.Equal(types.MustMoney("4")))
}

func TestConverter_UnknownCurrency(t *testing.T) {
	c := NewConverter("PEN", &repoStub{}, nil, 0)
	_, err := c.Rate(context.Background(), "XYZ")
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestCurrency_Validate(t *testing.T) {
	c := &Currency{Code: "USD", ExchangeRate: types.MustMoney("3.7"), DecimalPlaces: 2, Symbol: "$"}
	assert.NoError(t, c.Validate(context.Background()))
	assert.Equal(t, "$10.50", c.Format(types.MustMoney("10.5")))

	c.Code = "usd"
	assert.Error(t, c.Validate(context.Background()))
}

func TestConverter_UpdateRateInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	repo := &repoStub{rates: map[string]string{"USD": "3.75"}}
	cache := &mapCache{rates: map[string]types.Money{}}
	c := NewConverter("PEN", repo, cache, time.Hour)

	_, err := c.Rate(ctx, "USD")
	require.NoError(t, err)
	require.Contains(t, cache.rates, "USD")

	require.NoError(t, c.UpdateRate(ctx, "usd", types.MustMoney("3.80")))
	assert.NotContains(t, cache.rates, "USD")

	rate, err := c.Rate(ctx, "USD")
	require.NoError(t, err)
	assert.True(t, rate.Equal(types.MustMoney("3.80")))
}

func TestConverter_UpdateRateRejectsBase(t *testing.T) {
	c := NewConverter("PEN", &repoStub{}, nil, 0)
	err := c.UpdateRate(context.Background(), "PEN", types.MustMoney("2"))
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}
