package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"almacen/internal/core/id"
	"almacen/internal/core/types"
	"almacen/internal/domain/catalogs/warehouse"
	"almacen/internal/domain/documents/order"
	"almacen/internal/domain/documents/sale"
	"almacen/internal/domain/lots"
)

func TestExtractDBColumns_EmbeddedDocument(t *testing.T) {
	cols := ExtractDBColumns[order.Order]()

	for _, expected := range []string{
		"id", "created_at", "updated_at", "number", "version", "created_by",
		"user_id", "status", "customer", "allocation", "base_total",
	} {
		assert.Contains(t, cols, expected)
	}
	assert.NotContains(t, cols, "details")
	assert.NotContains(t, cols, "history")
}

func TestExtractDBColumns_SkipsIgnoredStruct(t *testing.T) {
	cols := ExtractDBColumns[sale.Sale]()

	assert.Contains(t, cols, "cost_total")
	assert.NotContains(t, cols, "payment_method")
}

func TestStructToMap_Catalog(t *testing.T) {
	w := warehouse.NewWarehouse("W1", "Central", 2)
	w.IsMain = true

	m := StructToMap(w)

	assert.Equal(t, w.ID, m["id"])
	assert.Equal(t, "W1", m["code"])
	assert.Equal(t, "Central", m["name"])
	assert.Equal(t, true, m["is_main"])
	assert.Equal(t, 2, m["picking_priority"])
}

func TestStructToMap_LayoutIsReused(t *testing.T) {
	o := order.New("u1", order.Customer{Name: "Ana"}, order.Address{Street: "Jr. Lampa 1", City: "Lima"}, "u1")
	o.Total = types.MustMoney("10.50")

	first := StructToMap(o)
	o.Total = types.MustMoney("11")
	second := StructToMap(*o)

	require.Len(t, second, len(first))
	assert.True(t, types.MustMoney("11").Equal(second["total"].(types.Money)))
	assert.Equal(t, 1, second["version"])
}

func TestTable_ValuesExcludesColumns(t *testing.T) {
	tbl := &Table[warehouse.Warehouse]{name: "cat_warehouses", columns: ExtractDBColumns[warehouse.Warehouse]()}
	w := warehouse.NewWarehouse("W2", "Norte", 1)

	vals := tbl.values(w, "id")

	assert.NotContains(t, vals, "id")
	assert.Equal(t, "Norte", vals["name"])
	assert.Len(t, vals, len(tbl.columns)-1)
}

func TestTable_ArgsFollowColumns(t *testing.T) {
	tbl := &Table[lots.Lot]{name: "reg_lots", columns: ExtractDBColumns[lots.Lot]()}
	l := lots.NewLot{
		ProductID:     id.New(),
		WarehouseID:   id.New(),
		Quantity:      types.NewQuantity(4),
		PurchasePrice: types.MustMoney("12.5"),
		Origin:        lots.OriginPurchase,
	}.Build()

	args := tbl.Args(l)

	require.Len(t, args, len(tbl.columns))
	for i, col := range tbl.columns {
		switch col {
		case "id":
			assert.Equal(t, l.ID, args[i])
		case "product_id":
			assert.Equal(t, l.ProductID, args[i])
		case "quantity_available":
			assert.Equal(t, types.NewQuantity(4), args[i])
		}
	}
}

func TestWriteOnceColumns_LeaveDocumentHeader(t *testing.T) {
	tbl := &Table[order.Order]{name: "doc_orders", columns: ExtractDBColumns[order.Order]()}
	o := order.New("u1", order.Customer{Name: "Ana"}, order.Address{City: "Lima"}, "u1")
	o.Number = "ORD-2026-00001"

	vals := tbl.values(o, writeOnceColumns...)

	for _, col := range writeOnceColumns {
		assert.NotContains(t, vals, col)
	}
	assert.Contains(t, vals, "status")
	assert.Contains(t, vals, "version")
}

func TestExtractDBColumns_ReturnsCopy(t *testing.T) {
	cols := ExtractDBColumns[warehouse.Warehouse]()
	cols[0] = "mutated"

	assert.NotEqual(t, "mutated", ExtractDBColumns[warehouse.Warehouse]()[0])
}

func TestNumeric_KeepsScale(t *testing.T) {
	n := Numeric(types.MustMoney("32.8571"))

	require.True(t, n.Valid)
	assert.Equal(t, int64(328571), n.Int.Int64())
	assert.Equal(t, int32(-4), n.Exp)
}
