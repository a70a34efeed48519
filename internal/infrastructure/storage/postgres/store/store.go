// Package store assembles the PostgreSQL repositories into one backend.
package store

import (
	"context"
	"fmt"

	corenumerator "almacen/internal/core/numerator"
	"almacen/internal/domain/cart"
	"almacen/internal/domain/catalogs/category"
	"almacen/internal/domain/catalogs/product"
	"almacen/internal/domain/catalogs/warehouse"
	"almacen/internal/domain/currency"
	"almacen/internal/domain/documents/order"
	"almacen/internal/domain/documents/quotation"
	"almacen/internal/domain/documents/sale"
	"almacen/internal/domain/events"
	"almacen/internal/domain/inventory"
	"almacen/internal/domain/lots"
	"almacen/internal/domain/registers/stock"
	"almacen/internal/domain/settings"
	"almacen/internal/infrastructure/numerator"
	"almacen/internal/infrastructure/storage/postgres"
	"almacen/internal/infrastructure/storage/postgres/catalog_repo"
	"almacen/internal/infrastructure/storage/postgres/document_repo"
	"almacen/internal/infrastructure/storage/postgres/register_repo"
)

// Store implements app.Backend on one connection pool.
type Store struct {
	*postgres.TxManager

	ProductRepo   *catalog_repo.ProductRepo
	WarehouseRepo *catalog_repo.WarehouseRepo
	CategoryRepo  *catalog_repo.CategoryRepo
	CurrencyRepo  *catalog_repo.CurrencyRepo
	SettingsRepo  *catalog_repo.SettingsRepo

	LotRepo       *register_repo.LotRepo
	InventoryRepo *register_repo.InventoryRepo
	MovementRepo  *register_repo.MovementRepo

	CartRepo      *document_repo.CartRepo
	OrderRepo     *document_repo.OrderRepo
	SaleRepo      *document_repo.SaleRepo
	QuotationRepo *document_repo.QuotationRepo

	Audit       *postgres.AuditService
	Idempotency *postgres.IdempotencyStore

	numerator *numerator.Service
	outbox    *postgres.OutboxPublisher
}

// Options tune the store. Zero values are valid.
type Options struct {
	// AuditCompressThreshold is the payload size above which audit entries are compressed
	AuditCompressThreshold int
}

// New creates a store over pool.
func New(pool *postgres.Pool, opts Options) (*Store, error) {
	txm := postgres.NewTxManager(pool)

	audit, err := postgres.NewAuditService(txm, opts.AuditCompressThreshold)
	if err != nil {
		return nil, fmt.Errorf("audit service: %w", err)
	}

	seq := numerator.New(
		func(ctx context.Context) numerator.Querier { return txm.GetQuerier(ctx) },
		txm.Pool(),
	)

	return &Store{
		TxManager:     txm,
		ProductRepo:   catalog_repo.NewProductRepo(txm),
		WarehouseRepo: catalog_repo.NewWarehouseRepo(txm),
		CategoryRepo:  catalog_repo.NewCategoryRepo(txm),
		CurrencyRepo:  catalog_repo.NewCurrencyRepo(txm),
		SettingsRepo:  catalog_repo.NewSettingsRepo(txm),
		LotRepo:       register_repo.NewLotRepo(txm),
		InventoryRepo: register_repo.NewInventoryRepo(txm),
		MovementRepo:  register_repo.NewMovementRepo(txm),
		CartRepo:      document_repo.NewCartRepo(txm),
		OrderRepo:     document_repo.NewOrderRepo(txm),
		SaleRepo:      document_repo.NewSaleRepo(txm),
		QuotationRepo: document_repo.NewQuotationRepo(txm),
		Audit:         audit,
		Idempotency:   postgres.NewIdempotencyStore(txm, 0),
		numerator:     seq,
		outbox:        postgres.NewOutboxPublisher(txm, audit),
	}, nil
}

// Close releases background resources. The pool is owned by the caller.
func (s *Store) Close() {
	s.Audit.Close()
}

func (s *Store) Products() product.Repository     { return s.ProductRepo }
func (s *Store) Warehouses() warehouse.Repository { return s.WarehouseRepo }
func (s *Store) Categories() category.Repository  { return s.CategoryRepo }
func (s *Store) Currencies() currency.Repository  { return s.CurrencyRepo }
func (s *Store) Settings() settings.Provider      { return s.SettingsRepo }

func (s *Store) Lots() lots.Repository           { return s.LotRepo }
func (s *Store) Inventory() inventory.Repository { return s.InventoryRepo }
func (s *Store) Movements() stock.Repository     { return s.MovementRepo }

func (s *Store) Carts() cart.Repository           { return s.CartRepo }
func (s *Store) Orders() order.Repository         { return s.OrderRepo }
func (s *Store) Sales() sale.Repository           { return s.SaleRepo }
func (s *Store) Quotations() quotation.Repository { return s.QuotationRepo }

// Numerator returns the sys_sequences numbering service.
func (s *Store) Numerator() corenumerator.Generator { return s.numerator }

// Sequences exposes the concrete numerator for SetNextNumber.
func (s *Store) Sequences() *numerator.Service { return s.numerator }

// Outbox returns the transactional event publisher.
func (s *Store) Outbox() events.Publisher { return s.outbox }
