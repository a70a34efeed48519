package lots

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"almacen/internal/core/id"
	"almacen/internal/core/types"
)

var (
	productID   = id.MustParse("00000000-0000-7000-8000-0000000000a1")
	warehouseID = id.MustParse("00000000-0000-7000-8000-0000000000b1")
	day         = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
)

func lot(units int64, price string, acquired time.Time) *Lot {
	return NewLot{
		ProductID:     productID,
		WarehouseID:   warehouseID,
		Quantity:      types.NewQuantity(units),
		PurchasePrice: types.MustMoney(price),
		AcquiredAt:    acquired,
	}.Build()
}

func TestConsumeFIFO_WithinOldestLot(t *testing.T) {
	oldest := lot(10, "5", day)
	newer := lot(10, "7", day.AddDate(0, 0, 1))

	used, changed, ok := ConsumeFIFO([]*Lot{newer, oldest}, types.NewQuantity(4))
	require.True(t, ok)

	require.Len(t, used, 1)
	assert.Equal(t, oldest.ID, used[0].LotID)
	assert.Equal(t, types.NewQuantity(4), used[0].Quantity)
	assert.Equal(t, []*Lot{oldest}, changed)
	assert.Equal(t, types.NewQuantity(6), oldest.QuantityAvailable)
	assert.Equal(t, types.NewQuantity(10), newer.QuantityAvailable)
	assert.Equal(t, StatusActive, oldest.Status)
}

func TestConsumeFIFO_SpillsIntoNextLot(t *testing.T) {
	oldest := lot(10, "5", day)
	newer := lot(10, "7", day.AddDate(0, 0, 1))

	used, _, ok := ConsumeFIFO([]*Lot{oldest, newer}, types.NewQuantity(13))
	require.True(t, ok)

	require.Len(t, used, 2)
	assert.Equal(t, types.NewQuantity(10), used[0].Quantity)
	assert.Equal(t, types.NewQuantity(3), used[1].Quantity)
	assert.Equal(t, StatusDepleted, oldest.Status)
	assert.True(t, oldest.QuantityAvailable.IsZero())
	assert.Equal(t, types.NewQuantity(7), newer.QuantityAvailable)

	// (10*5 + 3*7) / 13
	assert.Equal(t, "5.4615", ConsumedCost(used).String())
}

func TestConsumeFIFO_TieBreaksOnID(t *testing.T) {
	a := lot(5, "1", day)
	b := lot(5, "2", day)
	a.ID = id.MustParse("00000000-0000-7000-8000-000000000002")
	b.ID = id.MustParse("00000000-0000-7000-8000-000000000001")

	used, _, ok := ConsumeFIFO([]*Lot{a, b}, types.NewQuantity(2))
	require.True(t, ok)
	assert.Equal(t, b.ID, used[0].LotID)
}

func TestConsumeFIFO_InsufficientIsAllOrNothing(t *testing.T) {
	first := lot(3, "5", day)
	second := lot(2, "5", day.AddDate(0, 0, 1))

	used, changed, ok := ConsumeFIFO([]*Lot{first, second}, types.NewQuantity(6))
	assert.False(t, ok)
	assert.Nil(t, used)
	assert.Nil(t, changed)
	assert.Equal(t, types.NewQuantity(3), first.QuantityAvailable)
	assert.Equal(t, types.NewQuantity(2), second.QuantityAvailable)
}

func TestConsumeFIFO_SkipsDepletedLots(t *testing.T) {
	gone := lot(3, "5", day)
	gone.QuantityAvailable = 0
	gone.Status = StatusDepleted
	live := lot(3, "5", day.AddDate(0, 0, 1))

	used, _, ok := ConsumeFIFO([]*Lot{gone, live}, types.NewQuantity(3))
	require.True(t, ok)
	require.Len(t, used, 1)
	assert.Equal(t, live.ID, used[0].LotID)
	assert.Equal(t, StatusDepleted, live.Status)
}

func TestNewLot_Validate(t *testing.T) {
	valid := NewLot{ProductID: productID, WarehouseID: warehouseID, Quantity: types.NewQuantity(1), PurchasePrice: types.MustMoney("1")}
	assert.NoError(t, valid.Validate())

	zero := valid
	zero.Quantity = 0
	assert.Error(t, zero.Validate())

	negative := valid
	negative.PurchasePrice = types.MustMoney("-1")
	assert.Error(t, negative.Validate())

	l := valid.Build()
	assert.Equal(t, StatusActive, l.Status)
	assert.Equal(t, l.QuantityPurchased, l.QuantityAvailable)
	assert.Equal(t, OriginPurchase, l.Origin)
}

func TestSplitConsumption(t *testing.T) {
	a, b := id.New(), id.New()
	used := []Consumption{
		{LotID: a, Quantity: types.NewQuantity(5), PurchasePrice: types.MustMoney("30")},
		{LotID: b, Quantity: types.NewQuantity(4), PurchasePrice: types.MustMoney("40")},
	}

	taken, rest := SplitConsumption(used, types.NewQuantity(6))
	require.Len(t, taken, 2)
	assert.Equal(t, types.NewQuantity(5), taken[0].Quantity)
	assert.Equal(t, b, taken[1].LotID)
	assert.Equal(t, types.NewQuantity(1), taken[1].Quantity)
	require.Len(t, rest, 1)
	assert.Equal(t, b, rest[0].LotID)
	assert.Equal(t, types.NewQuantity(3), rest[0].Quantity)
	assert.Equal(t, types.NewQuantity(4), used[1].Quantity, "input is not modified")

	taken, rest = SplitConsumption(rest, types.NewQuantity(3))
	require.Len(t, taken, 1)
	assert.Empty(t, rest)
	assert.True(t, ConsumedCost(taken).Equal(types.MustMoney("40")))
}
