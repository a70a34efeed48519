package warehouse

import (
	"context"

	"almacen/internal/core/id"
)

// Repository defines read access to warehouses.
type Repository interface {
	// GetByID returns apperror NotFound when missing.
	GetByID(ctx context.Context, id id.ID) (*Warehouse, error)

	// ListActive returns active warehouses in no particular order.
	ListActive(ctx context.Context) ([]*Warehouse, error)
}
