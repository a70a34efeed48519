// Package events defines the domain events written to the transactional outbox.
package events

import (
	"context"

	"almacen/internal/core/id"
)

// Event types.
const (
	OrderCreated       = "order.created"
	OrderConfirmed     = "order.confirmed"
	OrderCancelled     = "order.cancelled"
	OrderStatusChanged = "order.status_changed"
)

// AggregateOrder is the aggregate type of order events.
const AggregateOrder = "order"

// Event is one domain event. Payload is JSON-encoded by the publisher.
type Event struct {
	AggregateType string
	AggregateID   id.ID
	EventType     string
	Payload       any
}

// Publisher records events in the current transaction.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Nop discards events.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, Event) error { return nil }
