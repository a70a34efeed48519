package catalog_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"almacen/internal/core/id"
	"almacen/internal/domain/catalogs/warehouse"
	"almacen/internal/infrastructure/storage/postgres"
)

const warehouseTable = "cat_warehouses"

// WarehouseRepo implements warehouse.Repository.
type WarehouseRepo struct {
	table *postgres.Table[warehouse.Warehouse]
}

var _ warehouse.Repository = (*WarehouseRepo)(nil)

// NewWarehouseRepo creates a new warehouse repository.
func NewWarehouseRepo(txm *postgres.TxManager) *WarehouseRepo {
	return &WarehouseRepo{table: postgres.NewTable[warehouse.Warehouse](txm, warehouseTable)}
}

// Create inserts a warehouse.
func (r *WarehouseRepo) Create(ctx context.Context, w *warehouse.Warehouse) error {
	if err := w.Validate(ctx); err != nil {
		return err
	}
	return r.table.Insert(ctx, w)
}

// GetByID retrieves a warehouse.
func (r *WarehouseRepo) GetByID(ctx context.Context, warehouseID id.ID) (*warehouse.Warehouse, error) {
	var w warehouse.Warehouse
	q := r.table.Select().Where(squirrel.Eq{"id": warehouseID})
	if err := r.table.Get(ctx, &w, q, "warehouse", warehouseID); err != nil {
		return nil, err
	}
	return &w, nil
}

// ListActive returns active warehouses. Callers sort them for picking.
func (r *WarehouseRepo) ListActive(ctx context.Context) ([]*warehouse.Warehouse, error) {
	return r.table.List(ctx, r.table.Select().Where(squirrel.Eq{"is_active": true}))
}
