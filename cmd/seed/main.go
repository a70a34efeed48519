// Package main provides a CLI tool for seeding the database with demo data:
// currencies, a category tree with margins, two warehouses and stocked products.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"almacen/internal/app"
	"almacen/internal/config"
	"almacen/internal/core/entity"
	"almacen/internal/core/types"
	"almacen/internal/domain/catalogs/category"
	"almacen/internal/domain/catalogs/product"
	"almacen/internal/domain/catalogs/warehouse"
	"almacen/internal/domain/currency"
	"almacen/internal/domain/inventory"
	"almacen/internal/infrastructure/storage/postgres"
	"almacen/internal/infrastructure/storage/postgres/store"
	"almacen/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalw("failed to load config", "error", err)
	}

	ctx := context.Background()

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.DatabaseURL, postgres.RoleSeed))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	st, err := store.New(pool, store.Options{})
	if err != nil {
		log.Fatalw("failed to create store", "error", err)
	}
	defer st.Close()

	var existing []*warehouse.Warehouse
	err = st.ReadOnly(ctx, func(ctx context.Context) error {
		var err error
		existing, err = st.WarehouseRepo.ListActive(ctx)
		return err
	})
	if err != nil {
		log.Fatalw("failed to list warehouses", "error", err)
	}
	if len(existing) > 0 {
		log.Infow("database already seeded, nothing to do", "warehouses", len(existing))
		return
	}

	demo, err := seedCatalogs(ctx, st, cfg.BaseCurrency)
	if err != nil {
		log.Fatalw("failed to seed catalogs", "error", err)
	}
	log.Infow("catalogs seeded", "products", len(demo.products), "warehouses", 2)

	services := app.New(st, app.Options{BaseCurrency: cfg.BaseCurrency})
	if err := seedStock(ctx, services, demo); err != nil {
		log.Fatalw("failed to seed stock", "error", err)
	}

	log.Info("seeding completed successfully")
}

type stockLine struct {
	product   *product.Product
	warehouse *warehouse.Warehouse
	units     int64
	cost      string
	price     string
}

type demoData struct {
	products []*product.Product
	stock    []stockLine
}

func seedCatalogs(ctx context.Context, st *store.Store, base string) (*demoData, error) {
	demo := &demoData{}
	err := st.RunInTransaction(ctx, func(ctx context.Context) error {
		currencies := []*currency.Currency{
			{Code: base, Name: base, Symbol: "S/", DecimalPlaces: 2, IsBase: true, ExchangeRate: types.MustMoney("1")},
		}
		if base != "USD" {
			currencies = append(currencies, &currency.Currency{Code: "USD", Name: "US Dollar", Symbol: "$", DecimalPlaces: 2, ExchangeRate: types.MustMoney("3.75")})
		}
		for _, c := range currencies {
			if err := st.CurrencyRepo.Create(ctx, c); err != nil {
				return fmt.Errorf("currency %s: %w", c.Code, err)
			}
		}

		central := warehouse.NewWarehouse("CEN", "Almacen Central", 0)
		central.IsMain = true
		north := warehouse.NewWarehouse("NOR", "Almacen Norte", 1)
		for _, w := range []*warehouse.Warehouse{central, north} {
			if err := st.WarehouseRepo.Create(ctx, w); err != nil {
				return fmt.Errorf("warehouse %s: %w", w.Code, err)
			}
		}

		tools := newCategory("TOOLS", "Herramientas", nil, "35", "15")
		power := newCategory("POWER", "Herramientas electricas", tools, "", "12")
		for _, c := range []*category.Category{tools, power} {
			if err := st.CategoryRepo.Create(ctx, c); err != nil {
				return fmt.Errorf("category %s: %w", c.Code, err)
			}
		}

		drill := newProduct("DRL-001", "Taladro percutor", power)
		hammer := newProduct("HMR-001", "Martillo de una", tools)
		for _, p := range []*product.Product{drill, hammer} {
			if err := st.ProductRepo.Create(ctx, p); err != nil {
				return fmt.Errorf("product %s: %w", p.SKU, err)
			}
		}

		demo.products = []*product.Product{drill, hammer}
		demo.stock = []stockLine{
			{drill, central, 10, "180.00", "249.90"},
			{drill, north, 6, "190.00", "249.90"},
			{hammer, central, 40, "18.50", "29.90"},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return demo, nil
}

func seedStock(ctx context.Context, services *app.Services, demo *demoData) error {
	for i, s := range demo.stock {
		_, err := services.Inventory.ReceivePurchase(ctx, inventory.PurchaseReceipt{
			ProductID:   s.product.ID,
			WarehouseID: s.warehouse.ID,
			Quantity:    types.NewQuantity(s.units),
			UnitCost:    types.MustMoney(s.cost),
			AcquiredAt:  time.Now().UTC(),
			Reference:   fmt.Sprintf("SEED-%03d", i+1),
			Notes:       "initial stock",
		})
		if err != nil {
			return fmt.Errorf("receive %s: %w", s.product.SKU, err)
		}
		if _, err := services.Inventory.SetSalePrice(ctx, s.product.ID, s.warehouse.ID, types.MustMoney(s.price)); err != nil {
			return fmt.Errorf("price %s: %w", s.product.SKU, err)
		}
	}
	return nil
}

func newCategory(code, name string, parent *category.Category, normal, min string) *category.Category {
	c := &category.Category{Catalog: entity.NewCatalog(code, name), Level: 1}
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
	return c
}

func newProduct(sku, name string, c *category.Category) *product.Product {
	return &product.Product{Catalog: entity.NewCatalog(sku, name), SKU: sku, CategoryID: &c.ID}
}
