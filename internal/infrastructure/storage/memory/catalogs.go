package memory

import (
	"context"
	"strings"

	"almacen/internal/core/apperror"
	"almacen/internal/core/id"
	"almacen/internal/core/types"
	"almacen/internal/domain/catalogs/category"
	"almacen/internal/domain/catalogs/product"
	"almacen/internal/domain/catalogs/warehouse"
	"almacen/internal/domain/currency"
	"almacen/internal/domain/settings"
)

// AddProduct stores or replaces a product.
func (s *Store) AddProduct(p product.Product) {
	_ = s.write(context.Background(), func(st *state) error {
		st.products[p.ID] = p
		return nil
	})
}

// AddWarehouse stores or replaces a warehouse.
func (s *Store) AddWarehouse(w warehouse.Warehouse) {
	_ = s.write(context.Background(), func(st *state) error {
		st.warehouses[w.ID] = w
		return nil
	})
}

// AddCategory stores or replaces a category.
func (s *Store) AddCategory(c category.Category) {
	_ = s.write(context.Background(), func(st *state) error {
		st.categories[c.ID] = c
		return nil
	})
}

// AddCurrency stores or replaces a currency.
func (s *Store) AddCurrency(c currency.Currency) {
	_ = s.write(context.Background(), func(st *state) error {
		st.currencies[c.Code] = c
		return nil
	})
}

// SetSetting stores a group/key setting value.
func (s *Store) SetSetting(group, key, value string) {
	_ = s.write(context.Background(), func(st *state) error {
		st.settings[group+"."+key] = value
		return nil
	})
}

// Products returns the product repository.
func (s *Store) Products() product.Repository { return productRepo{s} }

// Warehouses returns the warehouse repository.
func (s *Store) Warehouses() warehouse.Repository { return warehouseRepo{s} }

// Categories returns the category repository.
func (s *Store) Categories() category.Repository { return categoryRepo{s} }

// Currencies returns the currency repository.
func (s *Store) Currencies() currency.Repository { return currencyRepo{s} }

// Settings returns the settings provider.
func (s *Store) Settings() settings.Provider { return settingsRepo{s} }

type productRepo struct{ s *Store }

func (r productRepo) GetByID(_ context.Context, productID id.ID) (*product.Product, error) {
	var (
		p  product.Product
		ok bool
	)
	r.s.read(func(st *state) { p, ok = st.products[productID] })
	if !ok {
		return nil, apperror.NewNotFound("product", productID)
	}
	return &p, nil
}

type warehouseRepo struct{ s *Store }

func (r warehouseRepo) GetByID(_ context.Context, warehouseID id.ID) (*warehouse.Warehouse, error) {
	var (
		w  warehouse.Warehouse
		ok bool
	)
	r.s.read(func(st *state) { w, ok = st.warehouses[warehouseID] })
	if !ok {
		return nil, apperror.NewNotFound("warehouse", warehouseID)
	}
	return &w, nil
}

func (r warehouseRepo) ListActive(_ context.Context) ([]*warehouse.Warehouse, error) {
	var out []*warehouse.Warehouse
	r.s.read(func(st *state) {
		for _, w := range st.warehouses {
			if w.IsActive {
				w := w
				out = append(out, &w)
			}
		}
	})
	return out, nil
}

type categoryRepo struct{ s *Store }

func (r categoryRepo) GetChain(_ context.Context, categoryID id.ID) ([]*category.Category, error) {
	var chain []*category.Category
	r.s.read(func(st *state) {
		next := &categoryID
		for next != nil && len(chain) < category.MaxDepth {
			c, ok := st.categories[*next]
			if !ok {
				break
			}
			chain = append(chain, &c)
			next = c.ParentID
		}
	})
	if len(chain) == 0 {
		return nil, apperror.NewNotFound("category", categoryID)
	}
	return chain, nil
}

type currencyRepo struct{ s *Store }

func (r currencyRepo) GetByCode(_ context.Context, code string) (*currency.Currency, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	var (
		c  currency.Currency
		ok bool
	)
	r.s.read(func(st *state) { c, ok = st.currencies[code] })
	if !ok {
		return nil, apperror.NewNotFound("currency", code)
	}
	return &c, nil
}

func (r currencyRepo) UpdateExchangeRate(ctx context.Context, code string, rate types.Money) error {
	if !rate.IsPositive() {
		return apperror.NewValidation("exchange rate must be positive").WithDetail("field", "exchangeRate")
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	return r.s.write(ctx, func(st *state) error {
		c, ok := st.currencies[code]
		if !ok || c.IsBase {
			return apperror.NewNotFound("currency", code)
		}
		c.ExchangeRate = rate
		st.currencies[code] = c
		return nil
	})
}

type settingsRepo struct{ s *Store }

func (r settingsRepo) Get(_ context.Context, group, key string) (string, bool, error) {
	var (
		v  string
		ok bool
	)
	r.s.read(func(st *state) { v, ok = st.settings[group+"."+key] })
	return v, ok, nil
}
