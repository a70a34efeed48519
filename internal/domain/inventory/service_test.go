package inventory_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"almacen/internal/app/apptest"
	"almacen/internal/core/apperror"
	"almacen/internal/core/types"
	"almacen/internal/domain/inventory"
	"almacen/internal/domain/lots"
	"almacen/internal/domain/registers/stock"
)

func qty(units int64) types.Quantity { return types.NewQuantity(units) }

func TestReceivePurchase_UpdatesStockAndAverageCost(t *testing.T) {
	f := apptest.New(t)
	w := f.Warehouse("Central", true, 0)
	p := f.Product("drill", nil)

	f.Receive(p, w, 10, "10", 2*time.Hour)
	f.Receive(p, w, 5, "16", time.Hour)

	rec := f.Record(p, w)
	assert.Equal(t, qty(15), rec.AvailableStock)
	assert.True(t, rec.AverageCost.Equal(types.MustMoney("12")), rec.AverageCost.String())
	assert.NotNil(t, rec.LastMovementAt)

	history, err := f.Inventory.RecordsByProduct(f.Ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	moves, err := f.Movements.History(f.Ctx, p.ID, stock.MovementFilter{})
	require.NoError(t, err)
	require.Len(t, moves, 2)
	assert.Equal(t, stock.TypeIn, moves[0].Type)
	f.RequireLotsMatchRecords()
}

func TestReceivePurchase_InactiveWarehouse(t *testing.T) {
	f := apptest.New(t)
	w := f.Warehouse("Closed", false, 1)
	w.IsActive = false
	f.Store.AddWarehouse(*w)
	p := f.Product("drill", nil)

	_, err := f.Inventory.ReceivePurchase(f.Ctx, inventory.PurchaseReceipt{
		ProductID:   p.ID,
		WarehouseID: w.ID,
		Quantity:    qty(1),
		UnitCost:    types.MustMoney("5"),
		Reference:   "PO-1",
	})
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeBusinessRule))
}

func TestReserve_ShortfallLeavesRecordUntouched(t *testing.T) {
	f := apptest.New(t)
	w := f.Warehouse("Central", true, 0)
	p := f.Product("drill", nil)
	f.Receive(p, w, 10, "10", time.Hour)

	require.NoError(t, f.Inventory.Reserve(f.Ctx, p.ID, w.ID, qty(7), "order-1"))

	err := f.Inventory.Reserve(f.Ctx, p.ID, w.ID, qty(4), "order-2")
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))

	rec := f.Record(p, w)
	assert.Equal(t, qty(10), rec.AvailableStock)
	assert.Equal(t, qty(7), rec.ReservedStock)
	assert.Equal(t, qty(3), rec.Free())

	free, err := f.Inventory.GlobalFreeStock(f.Ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, qty(3), free)
}

func TestReleaseReservation_CannotExceedReserved(t *testing.T) {
	f := apptest.New(t)
	w := f.Warehouse("Central", true, 0)
	p := f.Product("drill", nil)
	f.Receive(p, w, 10, "10", time.Hour)
	require.NoError(t, f.Inventory.Reserve(f.Ctx, p.ID, w.ID, qty(2), "order-1"))

	err := f.Inventory.ReleaseReservation(f.Ctx, p.ID, w.ID, qty(3), "order-1")
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeBusinessRule))

	require.NoError(t, f.Inventory.ReleaseReservation(f.Ctx, p.ID, w.ID, qty(2), "order-1"))
	assert.Equal(t, qty(0), f.Record(p, w).ReservedStock)
}

func TestCommitReservation_ConsumesFIFO(t *testing.T) {
	f := apptest.New(t)
	w := f.Warehouse("Central", true, 0)
	p := f.Product("drill", nil)
	f.Receive(p, w, 10, "10", 2*time.Hour)
	f.Receive(p, w, 5, "16", time.Hour)
	require.NoError(t, f.Inventory.Reserve(f.Ctx, p.ID, w.ID, qty(12), "order-1"))

	used, err := f.Inventory.CommitReservation(f.Ctx, p.ID, w.ID, qty(12), "SAL-1")
	require.NoError(t, err)
	require.Len(t, used, 2)
	assert.Equal(t, qty(10), used[0].Quantity)
	assert.True(t, used[0].PurchasePrice.Equal(types.MustMoney("10")))
	assert.Equal(t, qty(2), used[1].Quantity)
	assert.True(t, lots.ConsumedCost(used).Equal(types.MustMoney("11")), lots.ConsumedCost(used).String())

	rec := f.Record(p, w)
	assert.Equal(t, qty(3), rec.AvailableStock)
	assert.Equal(t, qty(0), rec.ReservedStock)
	assert.True(t, rec.AverageCost.Equal(types.MustMoney("16")))

	outs, err := f.Movements.History(f.Ctx, p.ID, stock.MovementFilter{ReferenceType: stock.RefSale})
	require.NoError(t, err)
	assert.Len(t, outs, 2)
	f.RequireLotsMatchRecords()
}

func TestCommitReservation_RequiresReservation(t *testing.T) {
	f := apptest.New(t)
	w := f.Warehouse("Central", true, 0)
	p := f.Product("drill", nil)
	f.Receive(p, w, 10, "10", time.Hour)

	_, err := f.Inventory.CommitReservation(f.Ctx, p.ID, w.ID, qty(1), "SAL-1")
	require.Error(t, err)
	assert.Equal(t, qty(10), f.Record(p, w).AvailableStock)
}

func TestTransfer_KeepsCostBasisAndConservesStock(t *testing.T) {
	f := apptest.New(t)
	a := f.Warehouse("A", true, 0)
	b := f.Warehouse("B", false, 1)
	p := f.Product("drill", nil)
	f.Receive(p, a, 4, "10", 2*time.Hour)
	f.Receive(p, a, 6, "20", time.Hour)

	res, err := f.Inventory.Transfer(f.Ctx, inventory.TransferRequest{ProductID: p.ID, From: a.ID, To: b.ID, Quantity: qty(7)})
	require.NoError(t, err)
	require.Len(t, res.Created, 2)
	assert.NotEmpty(t, res.TransferID)

	first := res.Created[0]
	assert.Equal(t, lots.OriginTransfer, first.Origin)
	assert.Equal(t, qty(4), first.QuantityAvailable)
	assert.True(t, first.PurchasePrice.Equal(types.MustMoney("10")))
	assert.Equal(t, res.Consumed[0].AcquiredAt, first.AcquiredAt)
	require.NotNil(t, first.SourceLotID)
	assert.Equal(t, res.Consumed[0].LotID, *first.SourceLotID)

	assert.Equal(t, qty(3), f.Record(p, a).AvailableStock)
	assert.Equal(t, qty(7), f.Record(p, b).AvailableStock)
	assert.True(t, f.Record(p, b).AverageCost.Equal(types.MustMoney("14.2857")), f.Record(p, b).AverageCost.String())
	f.RequireLotsMatchRecords()
}

func TestTransfer_ReservedStockStays(t *testing.T) {
	f := apptest.New(t)
	a := f.Warehouse("A", true, 0)
	b := f.Warehouse("B", false, 1)
	p := f.Product("drill", nil)
	f.Receive(p, a, 5, "10", time.Hour)
	require.NoError(t, f.Inventory.Reserve(f.Ctx, p.ID, a.ID, qty(4), "order-1"))

	_, err := f.Inventory.Transfer(f.Ctx, inventory.TransferRequest{ProductID: p.ID, From: a.ID, To: b.ID, Quantity: qty(2)})
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))
	assert.Equal(t, qty(5), f.Record(p, a).AvailableStock)

	_, err = f.Inventory.Transfer(f.Ctx, inventory.TransferRequest{ProductID: p.ID, From: a.ID, To: a.ID, Quantity: qty(1)})
	require.Error(t, err)
}

func TestAdjustments(t *testing.T) {
	f := apptest.New(t)
	w := f.Warehouse("Central", true, 0)
	p := f.Product("drill", nil)
	f.Receive(p, w, 5, "10", time.Hour)

	lot, err := f.Inventory.AdjustIn(f.Ctx, inventory.Adjustment{ProductID: p.ID, WarehouseID: w.ID, Quantity: qty(2), Reason: "found in count"})
	require.NoError(t, err)
	assert.Equal(t, lots.OriginAdjustment, lot.Origin)
	assert.True(t, lot.PurchasePrice.Equal(types.MustMoney("10")))

	_, err = f.Inventory.AdjustOut(f.Ctx, inventory.Adjustment{ProductID: p.ID, WarehouseID: w.ID, Quantity: qty(8), Reason: "damaged"})
	require.Error(t, err)

	used, err := f.Inventory.AdjustOut(f.Ctx, inventory.Adjustment{ProductID: p.ID, WarehouseID: w.ID, Quantity: qty(6), Reason: "damaged"})
	require.NoError(t, err)
	assert.NotEmpty(t, used)
	assert.Equal(t, qty(1), f.Record(p, w).AvailableStock)

	_, err = f.Inventory.AdjustOut(f.Ctx, inventory.Adjustment{ProductID: p.ID, WarehouseID: w.ID, Quantity: qty(1)})
	require.Error(t, err, "reason is required")
	f.RequireLotsMatchRecords()
}

func TestSyncWithLots_CorrectsDriftOnce(t *testing.T) {
	f := apptest.New(t)
	w := f.Warehouse("Central", true, 0)
	p := f.Product("drill", nil)
	f.Receive(p, w, 8, "10", time.Hour)

	rec := f.Record(p, w)
	rec.AvailableStock = qty(11)
	require.NoError(t, f.Store.Inventory().Save(f.Ctx, rec))

	corrections, err := f.Inventory.SyncWithLots(f.Ctx, &p.ID, nil)
	require.NoError(t, err)
	require.Len(t, corrections, 1)
	assert.Equal(t, qty(11), corrections[0].Before)
	assert.Equal(t, qty(8), corrections[0].After)
	assert.Equal(t, qty(8), f.Record(p, w).AvailableStock)

	again, err := f.Inventory.SyncWithLots(f.Ctx, &p.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, again)

	synced, err := f.Movements.History(f.Ctx, p.ID, stock.MovementFilter{ReferenceType: stock.RefSync})
	require.NoError(t, err)
	require.Len(t, synced, 1)
	assert.Equal(t, qty(-3), synced[0].Quantity)
}

func TestSetSalePrice_EnforcesMinimumMargin(t *testing.T) {
	f := apptest.New(t)
	w := f.Warehouse("Central", true, 0)
	p := f.Product("drill", nil)
	f.Receive(p, w, 5, "100", time.Hour)

	_, err := f.Inventory.SetSalePrice(f.Ctx, p.ID, w.ID, types.MustMoney("105"))
	require.Error(t, err)
	assert.True(t, apperror.IsLowMargin(err))

	rec, err := f.Inventory.SetSalePrice(f.Ctx, p.ID, w.ID, types.MustMoney("125"))
	require.NoError(t, err)
	assert.True(t, rec.SalePrice.Equal(types.MustMoney("125")))

	repriced, err := f.Inventory.RepriceFromCost(f.Ctx, p.ID, w.ID, nil)
	require.NoError(t, err)
	assert.True(t, repriced.SalePrice.Equal(types.MustMoney("130")), repriced.SalePrice.String())
}
