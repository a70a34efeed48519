package lots

import (
	"context"

	"almacen/internal/core/id"
	"almacen/internal/core/types"
)

// Total is the active availability of one product in one warehouse.
type Total struct {
	ProductID   id.ID          `db:"product_id"`
	WarehouseID id.ID          `db:"warehouse_id"`
	Quantity    types.Quantity `db:"quantity"`
}

// Filter narrows lot queries. Nil fields match everything.
type Filter struct {
	ProductID   *id.ID
	WarehouseID *id.ID
}

// Repository persists lots.
type Repository interface {
	// Create inserts a new lot.
	Create(ctx context.Context, lot *Lot) error

	// ListActive returns active lots in FIFO order.
	ListActive(ctx context.Context, filter Filter) ([]*Lot, error)

	// ListActiveForUpdate returns the active lots of one product/warehouse in FIFO order,
	// locking them until the surrounding transaction ends.
	ListActiveForUpdate(ctx context.Context, productID, warehouseID id.ID) ([]*Lot, error)

	// SaveAvailability persists QuantityAvailable and Status of the given lots.
	SaveAvailability(ctx context.Context, lots []*Lot) error

	// ActiveTotals sums active availability grouped by product and warehouse.
	ActiveTotals(ctx context.Context, filter Filter) ([]Total, error)
}
