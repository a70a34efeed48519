// Package warehouse provides the Warehouse catalog.
// Warehouses are physical stock locations ranked for picking.
package warehouse

import (
	"context"
	"sort"

	"almacen/internal/core/apperror"
	"almacen/internal/core/entity"
	"almacen/internal/core/id"
)

// Warehouse represents a storage location for goods.
type Warehouse struct {
	entity.Catalog

	// IsMain marks the warehouse that is always picked first
	IsMain bool `db:"is_main" json:"isMain"`

	// PickingPriority orders non-main warehouses (lower picks first)
	PickingPriority int `db:"picking_priority" json:"pickingPriority"`

	// IsActive indicates if warehouse is operational
	IsActive bool `db:"is_active" json:"isActive"`

	// IsOnline marks warehouses whose stock is visible to the web store
	IsOnline bool `db:"is_online" json:"isOnline"`
}

// NewWarehouse creates an active Warehouse.
func NewWarehouse(code, name string, priority int) *Warehouse {
	return &Warehouse{
		Catalog:         entity.NewCatalog(code, name),
		PickingPriority: priority,
		IsActive:        true,
		IsOnline:        true,
	}
}

// Validate implements entity.Validatable interface.
func (w *Warehouse) Validate(ctx context.Context) error {
	if err := w.Catalog.Validate(ctx); err != nil {
		return err
	}
	if w.PickingPriority < 0 {
		return apperror.NewValidation("picking priority must not be negative").
			WithDetail("field", "pickingPriority")
	}
	return nil
}

// CanAcceptStock returns true if warehouse can receive lots.
func (w *Warehouse) CanAcceptStock() bool {
	return w.IsActive
}

// SortForAllocation orders warehouses for picking: main first, then picking
// priority ascending, then lowest id. The slice is sorted in place.
func SortForAllocation(warehouses []*Warehouse) {
	sort.SliceStable(warehouses, func(i, j int) bool {
		a, b := warehouses[i], warehouses[j]
		if a.IsMain != b.IsMain {
			return a.IsMain
		}
		if a.PickingPriority != b.PickingPriority {
			return a.PickingPriority < b.PickingPriority
		}
		return id.Less(a.ID, b.ID)
	})
}
