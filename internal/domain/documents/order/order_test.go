package order

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"almacen/internal/core/apperror"
	"almacen/internal/core/id"
	"almacen/internal/core/types"
)

func newOrder() *Order {
	o := New("u1", Customer{Name: "Ana"}, Address{Street: "Av. Grau 120", City: "Lima"}, "u1")
	o.AddDetail(id.New(), types.NewQuantity(2), types.MustMoney("10"), types.MustMoney("10"))
	o.Start("u1", "")
	return o
}

func TestStatus_Transitions(t *testing.T) {
	tests := []struct {
		from, to Status
		ok       bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusPreparing, false},
		{StatusConfirmed, StatusPreparing, true},
		{StatusPreparing, StatusShipped, true},
		{StatusShipped, StatusDelivered, true},
		{StatusShipped, StatusCancelled, true},
		{StatusDelivered, StatusCancelled, false},
		{StatusCancelled, StatusPending, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.ok, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestOrder_TransitionAppendsHistory(t *testing.T) {
	o := newOrder()
	at := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	change, err := o.Transition(StatusConfirmed, "clerk", "paid", "", at)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, o.Status)
	assert.Equal(t, StatusPending, *change.FromStatus)
	assert.Equal(t, &at, o.ConfirmedAt)
	assert.Equal(t, 2, o.Version)
	require.Len(t, o.History, 2)

	_, err = o.Transition(StatusDelivered, "clerk", "", "", at)
	assert.True(t, apperror.IsInvalidTransition(err))
	assert.Equal(t, StatusConfirmed, o.Status)
	assert.Len(t, o.History, 2)

	_, err = o.Transition(StatusPreparing, "clerk", "", "", at)
	require.NoError(t, err)
	_, err = o.Transition(StatusShipped, "clerk", "", "TRK-1", at)
	require.NoError(t, err)
	assert.Equal(t, "TRK-1", o.TrackingCode)
}

func TestComputeTotals(t *testing.T) {
	c := Charges{
		TaxRate:               types.MustMoney("18"),
		ShippingCost:          types.MustMoney("15"),
		FreeShippingThreshold: types.MustMoney("200"),
	}

	got := ComputeTotals(types.MustMoney("100"), c)
	assert.Equal(t, "18", got.Tax.String())
	assert.Equal(t, "15", got.Shipping.String())
	assert.Equal(t, "133", got.Total.String())

	got = ComputeTotals(types.MustMoney("250"), c)
	assert.True(t, got.Shipping.IsZero())
	assert.Equal(t, "295", got.Total.String())

	usd := got.Convert(func(m types.Money) types.Money { return types.RoundDisplay(m.Div(types.MustMoney("3.75"))) })
	assert.Equal(t, "66.67", usd.Subtotal.String())
	assert.True(t, usd.Total.Equal(usd.Subtotal.Add(usd.Tax).Add(usd.Shipping)))
}

func TestOrder_Validate(t *testing.T) {
	o := newOrder()
	assert.NoError(t, o.Validate(context.Background()))

	o.ShippingAddress = Address{}
	assert.True(t, apperror.HasCode(o.Validate(context.Background()), apperror.CodeValidation))
}
