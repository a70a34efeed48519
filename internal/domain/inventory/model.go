// Package inventory implements the per product/warehouse stock ledger. It is
// the only writer of inventory records and, through the lot ledger, of lots.
package inventory

import (
	"context"
	"time"

	"almacen/internal/core/id"
	"almacen/internal/core/types"
)

// Record is the denormalized stock of one product in one warehouse.
// AvailableStock equals the sum of the active lots of the pair.
type Record struct {
	ID          id.ID `db:"id" json:"id"`
	ProductID   id.ID `db:"product_id" json:"productId"`
	WarehouseID id.ID `db:"warehouse_id" json:"warehouseId"`

	AvailableStock types.Quantity `db:"available_stock" json:"availableStock"`
	ReservedStock  types.Quantity `db:"reserved_stock" json:"reservedStock"`

	AverageCost types.Money `db:"average_cost" json:"averageCost"`
	SalePrice   types.Money `db:"sale_price" json:"salePrice"`

	LastMovementAt *time.Time `db:"last_movement_at" json:"lastMovementAt,omitempty"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updatedAt"`
}

// NewRecord creates an empty record for a product/warehouse pair.
func NewRecord(productID, warehouseID id.ID) *Record {
	return &Record{
		ID:          id.New(),
		ProductID:   productID,
		WarehouseID: warehouseID,
		AverageCost: types.Zero(),
		SalePrice:   types.Zero(),
		UpdatedAt:   time.Now().UTC(),
	}
}

// Free is the stock not claimed by pending reservations.
func (r *Record) Free() types.Quantity {
	return r.AvailableStock - r.ReservedStock
}

func (r *Record) moved(at time.Time) {
	r.LastMovementAt = &at
	r.UpdatedAt = at
}

// Filter narrows record listings. Nil/empty fields match everything.
type Filter struct {
	ProductID   *id.ID
	WarehouseID *id.ID
	ProductIDs  []id.ID
}

// Repository persists inventory records.
type Repository interface {
	// Get returns apperror NotFound when the pair has no record.
	Get(ctx context.Context, productID, warehouseID id.ID) (*Record, error)

	// GetForUpdate locks the record of the pair until the transaction ends,
	// creating an empty one first when it does not exist.
	GetForUpdate(ctx context.Context, productID, warehouseID id.ID) (*Record, error)

	// Save writes a record previously obtained with GetForUpdate.
	Save(ctx context.Context, record *Record) error

	// List returns records matching the filter ordered by product then warehouse.
	List(ctx context.Context, filter Filter) ([]*Record, error)
}
