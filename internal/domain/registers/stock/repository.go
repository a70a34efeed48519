// Package stock provides the stock movement register, the audit log of every
// inventory change.
package stock

import (
	"context"
	"time"

	"almacen/internal/core/id"
)

// Repository appends and reads movements. There is no update or delete.
type Repository interface {
	// Append inserts movements in one batch.
	Append(ctx context.Context, movements []Movement) error

	// History returns movements of a product, newest first.
	History(ctx context.Context, productID id.ID, filter MovementFilter) ([]Movement, error)
}

// MovementFilter narrows movement history. A zero Limit means no limit.
type MovementFilter struct {
	WarehouseID   *id.ID
	Type          *MovementType
	ReferenceType string
	ReferenceID   string
	FromDate      *time.Time
	ToDate        *time.Time
	Limit         int
	Offset        int
}

// Match reports whether m passes every set field of f except paging.
func (f MovementFilter) Match(m Movement) bool {
	if f.WarehouseID != nil && m.WarehouseID != *f.WarehouseID {
		return false
	}
	if f.Type != nil && m.Type != *f.Type {
		return false
	}
	if f.ReferenceType != "" && m.ReferenceType != f.ReferenceType {
		return false
	}
	if f.ReferenceID != "" && m.ReferenceID != f.ReferenceID {
		return false
	}
	if f.FromDate != nil && m.OccurredAt.Before(*f.FromDate) {
		return false
	}
	if f.ToDate != nil && !m.OccurredAt.Before(*f.ToDate) {
		return false
	}
	return true
}
