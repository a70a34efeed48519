package register_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"almacen/internal/core/apperror"
	"almacen/internal/core/id"
	"almacen/internal/domain/inventory"
	"almacen/internal/infrastructure/storage/postgres"
)

const inventoryTable = "reg_inventory"

// InventoryRepo implements inventory.Repository.
type InventoryRepo struct {
	table *postgres.Table[inventory.Record]
}

var _ inventory.Repository = (*InventoryRepo)(nil)

// NewInventoryRepo creates a new inventory record repository.
func NewInventoryRepo(txm *postgres.TxManager) *InventoryRepo {
	return &InventoryRepo{table: postgres.NewTable[inventory.Record](txm, inventoryTable)}
}

func pairWhere(productID, warehouseID id.ID) squirrel.Eq {
	return squirrel.Eq{"product_id": productID, "warehouse_id": warehouseID}
}

// Get returns apperror NotFound when the pair has no record.
func (r *InventoryRepo) Get(ctx context.Context, productID, warehouseID id.ID) (*inventory.Record, error) {
	var rec inventory.Record
	q := r.table.Select().Where(pairWhere(productID, warehouseID))
	if err := r.table.Get(ctx, &rec, q, "inventory record", productID.String()+"/"+warehouseID.String()); err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetForUpdate inserts an empty record when the pair has none, then locks it.
func (r *InventoryRepo) GetForUpdate(ctx context.Context, productID, warehouseID id.ID) (*inventory.Record, error) {
	empty := inventory.NewRecord(productID, warehouseID)
	insert := postgres.Builder().
		Insert(inventoryTable).
		SetMap(map[string]any{
			"id":              empty.ID,
			"product_id":      productID,
			"warehouse_id":    warehouseID,
			"available_stock": int64(0),
			"reserved_stock":  int64(0),
			"average_cost":    empty.AverageCost,
			"sale_price":      empty.SalePrice,
			"updated_at":      empty.UpdatedAt,
		}).
		Suffix("ON CONFLICT (product_id, warehouse_id) DO NOTHING")
	if _, err := r.table.Exec(ctx, insert); err != nil {
		return nil, fmt.Errorf("ensure inventory record: %w", err)
	}

	var rec inventory.Record
	q := r.table.Select().Where(pairWhere(productID, warehouseID)).Suffix("FOR UPDATE")
	if err := r.table.Get(ctx, &rec, q, "inventory record", productID.String()+"/"+warehouseID.String()); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Save writes a record previously obtained with GetForUpdate.
func (r *InventoryRepo) Save(ctx context.Context, rec *inventory.Record) error {
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}
	q := postgres.Builder().
		Update(inventoryTable).
		SetMap(map[string]any{
			"available_stock":  int64(rec.AvailableStock),
			"reserved_stock":   int64(rec.ReservedStock),
			"average_cost":     rec.AverageCost,
			"sale_price":       rec.SalePrice,
			"last_movement_at": rec.LastMovementAt,
			"updated_at":       rec.UpdatedAt,
		}).
		Where(squirrel.Eq{"id": rec.ID})

	n, err := r.table.Exec(ctx, q)
	if err != nil {
		return fmt.Errorf("save inventory record: %w", err)
	}
	if n == 0 {
		return apperror.NewNotFound("inventory record", rec.ID)
	}
	return nil
}

// List returns records matching the filter ordered by product then warehouse.
func (r *InventoryRepo) List(ctx context.Context, f inventory.Filter) ([]*inventory.Record, error) {
	q := r.table.Select().OrderBy("product_id", "warehouse_id")
	if f.ProductID != nil {
		q = q.Where(squirrel.Eq{"product_id": *f.ProductID})
	}
	if f.WarehouseID != nil {
		q = q.Where(squirrel.Eq{"warehouse_id": *f.WarehouseID})
	}
	if len(f.ProductIDs) > 0 {
		q = q.Where(squirrel.Eq{"product_id": f.ProductIDs})
	}
	return r.table.List(ctx, q)
}
