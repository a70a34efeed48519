package order

import (
	"time"

	"almacen/internal/core/apperror"
	"almacen/internal/core/id"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending   Status = "pendiente"
	StatusConfirmed Status = "confirmado"
	StatusPreparing Status = "preparando"
	StatusShipped   Status = "enviado"
	StatusDelivered Status = "entregado"
	StatusCancelled Status = "cancelado"
)

var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusShipped, StatusCancelled},
	StatusShipped:   {StatusDelivered, StatusCancelled},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusPreparing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// IsFinal reports whether no transition leaves s.
func (s Status) IsFinal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransitionTo reports whether the order may move from s to next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// HoldsReservation reports whether stock for an order in s is still only reserved.
func (s Status) HoldsReservation() bool { return s == StatusPending }

// StatusChange is one append-only history entry.
type StatusChange struct {
	ID           id.ID     `db:"id" json:"id"`
	OrderID      id.ID     `db:"order_id" json:"orderId"`
	FromStatus   *Status   `db:"from_status" json:"fromStatus,omitempty"`
	ToStatus     Status    `db:"to_status" json:"toStatus"`
	Actor        string    `db:"actor" json:"actor"`
	Note         string    `db:"note" json:"note,omitempty"`
	TrackingCode string    `db:"tracking_code" json:"trackingCode,omitempty"`
	ChangedAt    time.Time `db:"changed_at" json:"changedAt"`
}

// Transition moves the order to next and returns the history entry to append.
// The order is left untouched when the move is not allowed.
func (o *Order) Transition(next Status, actor, note, trackingCode string, at time.Time) (StatusChange, error) {
	if !o.Status.CanTransitionTo(next) {
		return StatusChange{}, apperror.NewInvalidTransition("order", o.ID.String(), string(o.Status), string(next))
	}

	from := o.Status
	o.Status = next
	if trackingCode != "" {
		o.TrackingCode = trackingCode
	}
	switch next {
	case StatusConfirmed:
		o.ConfirmedAt = &at
	case StatusCancelled:
		o.CancelledAt = &at
	case StatusDelivered:
		o.DeliveredAt = &at
	}
	o.UpdatedAt = at
	o.Version++

	change := StatusChange{
		ID:           id.New(),
		OrderID:      o.ID,
		FromStatus:   &from,
		ToStatus:     next,
		Actor:        actor,
		Note:         note,
		TrackingCode: trackingCode,
		ChangedAt:    at,
	}
	o.History = append(o.History, change)
	return change, nil
}
