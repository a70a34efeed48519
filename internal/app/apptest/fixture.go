// Package apptest builds a fully wired in-memory application for tests.
package apptest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"almacen/internal/app"
	"almacen/internal/core/entity"
	"almacen/internal/core/id"
	"almacen/internal/core/types"
	"almacen/internal/domain/catalogs/category"
	"almacen/internal/domain/catalogs/product"
	"almacen/internal/domain/catalogs/warehouse"
	"almacen/internal/domain/currency"
	"almacen/internal/domain/inventory"
	"almacen/internal/domain/settings"
	"almacen/internal/infrastructure/storage/memory"
)

// Fixture is an application over a fresh memory store.
type Fixture struct {
	T     testing.TB
	Ctx   context.Context
	Store *memory.Store
	*app.Services
}

// New creates a fixture with pricing margins 30/10, tax 18 and no shipping.
func New(t testing.TB) *Fixture {
	t.Helper()
	store := memory.New()
	store.SetSetting(settings.GroupPricing, settings.KeyDefaultMargin, "30")
	store.SetSetting(settings.GroupPricing, settings.KeyDefaultMinMargin, "10")
	store.SetSetting(settings.GroupPricing, settings.KeyAlertLowMargin, "true")
	store.SetSetting(settings.GroupSales, settings.KeyTaxRate, "18")
	store.AddCurrency(currency.Currency{Code: "PEN", Name: "Sol", Symbol: "S/", DecimalPlaces: 2, IsBase: true, ExchangeRate: types.MustMoney("1")})
	store.AddCurrency(currency.Currency{Code: "USD", Name: "Dollar", Symbol: "$", DecimalPlaces: 2, ExchangeRate: types.MustMoney("3.75")})

	return &Fixture{
		T:        t,
		Ctx:      context.Background(),
		Store:    store,
		Services: app.New(store, app.Options{}),
	}
}

// Warehouse adds an active warehouse.
func (f *Fixture) Warehouse(name string, main bool, priority int) *warehouse.Warehouse {
	w := warehouse.NewWarehouse(name, name, priority)
	w.IsMain = main
	f.Store.AddWarehouse(*w)
	return w
}

// Category adds a category with optional margins.
func (f *Fixture) Category(name string, parent *category.Category, normal, min string) *category.Category {
	c := &category.Category{Catalog: entity.NewCatalog(name, name), Level: 1}
	if parent != nil {
		c.ParentID = &parent.ID
		c.Level = parent.Level + 1
	}
	if normal != "" {
		v := types.MustMoney(normal)
		c.NormalMarginPercentage = &v
	}
	if min != "" {
		v := types.MustMoney(min)
		c.MinMarginPercentage = &v
	}
	f.Store.AddCategory(*c)
	return c
}

// Product adds a product, optionally in a category.
func (f *Fixture) Product(name string, cat *category.Category) *product.Product {
	p := &product.Product{Catalog: entity.NewCatalog(name, name), SKU: name}
	if cat != nil {
		p.CategoryID = &cat.ID
	}
	f.Store.AddProduct(*p)
	return p
}

// Receive books a purchase of units at cost, acquired at the given offset from now.
func (f *Fixture) Receive(p *product.Product, w *warehouse.Warehouse, units int64, cost string, age time.Duration) {
	f.T.Helper()
	_, err := f.Inventory.ReceivePurchase(f.Ctx, inventory.PurchaseReceipt{
		ProductID:   p.ID,
		WarehouseID: w.ID,
		Quantity:    types.NewQuantity(units),
		UnitCost:    types.MustMoney(cost),
		AcquiredAt:  time.Now().UTC().Add(-age),
		Reference:   "PO-" + id.New().String()[:8],
	})
	require.NoError(f.T, err)
}

// Price sets the sale price of a pair.
func (f *Fixture) Price(p *product.Product, w *warehouse.Warehouse, price string) {
	f.T.Helper()
	_, err := f.Inventory.SetSalePrice(f.Ctx, p.ID, w.ID, types.MustMoney(price))
	require.NoError(f.T, err)
}

// Record returns the record of a pair.
func (f *Fixture) Record(p *product.Product, w *warehouse.Warehouse) *inventory.Record {
	f.T.Helper()
	rec, err := f.Inventory.Record(f.Ctx, p.ID, w.ID)
	require.NoError(f.T, err)
	return rec
}

// RequireLotsMatchRecords asserts that every record's available stock equals
// the sum of its active lots.
func (f *Fixture) RequireLotsMatchRecords() {
	f.T.Helper()
	corrections, err := f.Inventory.SyncWithLots(f.Ctx, nil, nil)
	require.NoError(f.T, err)
	require.Empty(f.T, corrections, "inventory records drifted from lots")
}
