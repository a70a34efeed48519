package costing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"almacen/internal/core/id"
	"almacen/internal/core/types"
	"almacen/internal/domain/lots"
)

type stubLots struct {
	byWarehouse map[id.ID][]*lots.Lot
}

func (s stubLots) ActiveLots(_ context.Context, _ id.ID, warehouseID *id.ID) ([]*lots.Lot, error) {
	if warehouseID != nil {
		return s.byWarehouse[*warehouseID], nil
	}
	var all []*lots.Lot
	for _, l := range s.byWarehouse {
		all = append(all, l...)
	}
	return all, nil
}

func newLot(warehouseID id.ID, units int64, price string) *lots.Lot {
	return lots.NewLot{
		ProductID:     id.New(),
		WarehouseID:   warehouseID,
		Quantity:      types.NewQuantity(units),
		PurchasePrice: types.MustMoney(price),
		AcquiredAt:    time.Now(),
	}.Build()
}

func TestWeightedAverage(t *testing.T) {
	wh := id.New()
	tests := []struct {
		name string
		lots []*lots.Lot
		want string
	}{
		{"no lots", nil, "0"},
		{"single lot", []*lots.Lot{newLot(wh, 10, "12.5")}, "12.5"},
		{"two lots", []*lots.Lot{newLot(wh, 10, "10"), newLot(wh, 30, "20")}, "17.5"},
		{"repeating fraction", []*lots.Lot{newLot(wh, 1, "1"), newLot(wh, 2, "2")}, "1.6667"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WeightedAverage(tt.lots)
			assert.True(t, got.Equal(types.MustMoney(tt.want)), "got %s", got)
		})
	}
}

func TestWeightedAverage_IgnoresDepleted(t *testing.T) {
	wh := id.New()
	depleted := newLot(wh, 5, "100")
	depleted.QuantityAvailable = 0
	depleted.Status = lots.StatusDepleted

	got := WeightedAverage([]*lots.Lot{depleted, newLot(wh, 4, "8")})
	assert.True(t, got.Equal(types.MustMoney("8")))
}

func TestEngine_WarehouseVersusGlobal(t *testing.T) {
	a, b := id.New(), id.New()
	engine := NewEngine(stubLots{byWarehouse: map[id.ID][]*lots.Lot{
		a: {newLot(a, 50, "10")},
		b: {newLot(b, 50, "20")},
	}})
	ctx := context.Background()

	local, err := engine.WeightedAverageCost(ctx, id.New(), &a)
	require.NoError(t, err)
	assert.True(t, local.Equal(types.MustMoney("10")))

	global, err := engine.WeightedAverageCost(ctx, id.New(), nil)
	require.NoError(t, err)
	assert.True(t, global.Equal(types.MustMoney("15")))

	assert.Equal(t, "1.67", Display(types.MustMoney("1.6667")).String())
}
