package order

import (
	"context"

	"almacen/internal/core/id"
)

// Repository persists orders with their details and status history.
type Repository interface {
	// Create inserts the order, its details and its history.
	Create(ctx context.Context, o *Order) error

	// GetByID loads an order with details and history.
	GetByID(ctx context.Context, orderID id.ID) (*Order, error)

	// GetForUpdate is GetByID with the order row locked.
	GetForUpdate(ctx context.Context, orderID id.ID) (*Order, error)

	// Update writes header fields. Fails with CONCURRENT_MODIFICATION when the
	// stored version is not o.Version-1.
	Update(ctx context.Context, o *Order) error

	// AppendHistory inserts one status change.
	AppendHistory(ctx context.Context, change StatusChange) error

	// ListByUser returns a user's orders, newest first, without details.
	ListByUser(ctx context.Context, userID string, limit int) ([]*Order, error)
}
