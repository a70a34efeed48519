package allocation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"almacen/internal/core/apperror"
	"almacen/internal/core/id"
	"almacen/internal/core/types"
	"almacen/internal/domain/catalogs/warehouse"
)

var (
	productP = id.MustParse("00000000-0000-7000-8000-0000000000a1")
	productQ = id.MustParse("00000000-0000-7000-8000-0000000000a2")
)

func wh(idStr, name string, main bool, priority int) *warehouse.Warehouse {
	w := warehouse.NewWarehouse(name, name, priority)
	w.ID = id.MustParse(idStr)
	w.IsMain = main
	return w
}

var (
	whA = wh("00000000-0000-7000-8000-0000000000b1", "A", true, 5)
	whB = wh("00000000-0000-7000-8000-0000000000b2", "B", false, 1)
	whC = wh("00000000-0000-7000-8000-0000000000b3", "C", false, 1)
)

func level(p id.ID, w *warehouse.Warehouse, units int64) StockLevel {
	return StockLevel{ProductID: p, WarehouseID: w.ID, Free: types.NewQuantity(units)}
}

func req(p id.ID, units int64) Request {
	return Request{ProductID: p, Quantity: types.NewQuantity(units)}
}

func TestBuild_SingleWarehouse(t *testing.T) {
	plan, err := Build(
		[]Request{req(productP, 10)},
		[]*warehouse.Warehouse{whB, whA},
		[]StockLevel{level(productP, whA, 50)},
	)
	require.NoError(t, err)
	require.Len(t, plan, 1)
	assert.Equal(t, []Entry{{WarehouseID: whA.ID, WarehouseName: "A", Quantity: types.NewQuantity(10)}}, plan[0].Allocation)
	assert.False(t, plan.IsSplit(productP))
}

func TestBuild_CrossWarehouseSplit(t *testing.T) {
	plan, err := Build(
		[]Request{req(productP, 12)},
		[]*warehouse.Warehouse{whB, whA},
		[]StockLevel{level(productP, whA, 5), level(productP, whB, 20)},
	)
	require.NoError(t, err)

	a, ok := plan.For(productP)
	require.True(t, ok)
	require.Len(t, a.Allocation, 2)
	assert.Equal(t, whA.ID, a.Allocation[0].WarehouseID)
	assert.Equal(t, types.NewQuantity(5), a.Allocation[0].Quantity)
	assert.Equal(t, whB.ID, a.Allocation[1].WarehouseID)
	assert.Equal(t, types.NewQuantity(7), a.Allocation[1].Quantity)
	assert.Equal(t, types.NewQuantity(12), a.Total())
	assert.True(t, plan.IsSplit(productP))
}

func TestBuild_EqualPriorityTieBreaksOnID(t *testing.T) {
	plan, err := Build(
		[]Request{req(productP, 3)},
		[]*warehouse.Warehouse{whC, whB},
		[]StockLevel{level(productP, whC, 10), level(productP, whB, 10)},
	)
	require.NoError(t, err)
	assert.Equal(t, whB.ID, plan[0].Allocation[0].WarehouseID)
}

func TestBuild_InsufficientGlobalStock(t *testing.T) {
	plan, err := Build(
		[]Request{req(productQ, 1), req(productP, 10)},
		[]*warehouse.Warehouse{whA, whB},
		[]StockLevel{level(productQ, whA, 1), level(productP, whA, 2), level(productP, whB, 3)},
	)
	assert.Nil(t, plan)
	require.True(t, apperror.HasCode(err, apperror.CodeInsufficientGlobalStock))

	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, productP.String(), appErr.Details["product_id"])
	assert.Equal(t, types.NewQuantity(10), appErr.Details["requested"])
	assert.Equal(t, types.NewQuantity(5), appErr.Details["available"])
}

func TestBuild_SkipsInactiveWarehouses(t *testing.T) {
	closed := wh("00000000-0000-7000-8000-0000000000b9", "Closed", false, 0)
	closed.IsActive = false

	_, err := Build(
		[]Request{req(productP, 4)},
		[]*warehouse.Warehouse{closed, whA},
		[]StockLevel{level(productP, closed, 100), level(productP, whA, 3)},
	)
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientGlobalStock))
}

func TestBuild_MergesDuplicateRequests(t *testing.T) {
	plan, err := Build(
		[]Request{req(productP, 2), req(productQ, 1), req(productP, 3)},
		[]*warehouse.Warehouse{whA},
		[]StockLevel{level(productP, whA, 5), level(productQ, whA, 1)},
	)
	require.NoError(t, err)
	require.Len(t, plan, 2)
	assert.Equal(t, productP, plan[0].ProductID)
	assert.Equal(t, types.NewQuantity(5), plan[0].Total())
}

func TestMerge_RejectsNonPositive(t *testing.T) {
	_, err := Merge([]Request{req(productP, 0)})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = Merge(nil)
	assert.Error(t, err)
}

func TestPlan_JSONRoundTripAndNotes(t *testing.T) {
	plan := Plan{
		{ProductID: productP, Allocation: []Entry{
			{WarehouseID: whA.ID, WarehouseName: "A", Quantity: types.NewQuantity(5)},
			{WarehouseID: whB.ID, WarehouseName: "B", Quantity: types.NewQuantity(7)},
		}},
		{ProductID: productQ, Allocation: []Entry{
			{WarehouseID: whA.ID, WarehouseName: "A", Quantity: types.NewQuantity(1)},
		}},
	}

	raw, err := plan.JSON()
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"warehouse_name":"B"`)
	assert.Contains(t, string(raw), `"product_id"`)

	back, err := ParsePlan(raw)
	require.NoError(t, err)
	assert.Equal(t, plan, back)

	notes := plan.Notes(whA.ID, map[id.ID]string{productP: "Mouse"})
	assert.Equal(t, []string{"Mouse: 5.0000 from A, 7.0000 from B"}, notes)
}

func TestPlan_LinesAreLockOrdered(t *testing.T) {
	plan := Plan{
		{ProductID: productQ, Allocation: []Entry{{WarehouseID: whB.ID, Quantity: 1}, {WarehouseID: whA.ID, Quantity: 1}}},
		{ProductID: productP, Allocation: []Entry{{WarehouseID: whA.ID, Quantity: 1}}},
	}
	lines := plan.Lines()
	require.Len(t, lines, 3)
	assert.Equal(t, productP, lines[0].ProductID)
	assert.Equal(t, whA.ID, lines[1].WarehouseID)
	assert.Equal(t, whB.ID, lines[2].WarehouseID)
}

type fakeWarehouses []*warehouse.Warehouse

func (f fakeWarehouses) GetByID(_ context.Context, wid id.ID) (*warehouse.Warehouse, error) {
	for _, w := range f {
		if w.ID == wid {
			return w, nil
		}
	}
	return nil, apperror.NewNotFound("warehouse", wid)
}

func (f fakeWarehouses) ListActive(context.Context) ([]*warehouse.Warehouse, error) {
	out := make([]*warehouse.Warehouse, len(f))
	copy(out, f)
	return out, nil
}

type fakeStock []StockLevel

func (f fakeStock) StockLevels(context.Context, []id.ID) ([]StockLevel, error) { return f, nil }

func TestPlanner_Plan(t *testing.T) {
	p := NewPlanner(fakeWarehouses{whB, whA}, fakeStock{level(productP, whA, 5), level(productP, whB, 20)})

	plan, err := p.Plan(context.Background(), []Request{req(productP, 12)})
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantity(12), plan[0].Total())

	main, err := p.MainWarehouse(context.Background())
	require.NoError(t, err)
	assert.Equal(t, whA.ID, main.ID)
}
