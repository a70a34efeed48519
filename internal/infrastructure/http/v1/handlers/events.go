package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"almacen/internal/core/id"
	"almacen/internal/domain/events"
	"almacen/internal/infrastructure/http/v1/dto"
	"almacen/internal/infrastructure/storage/postgres"
)

// AuditTrail reads recorded events of an aggregate. *postgres.AuditService implements it.
type AuditTrail interface {
	GetEntityHistory(ctx context.Context, entityType string, entityID id.ID, limit int) ([]postgres.AuditEntry, error)
}

// EventHandler exposes the event trail of orders.
type EventHandler struct {
	*BaseHandler
	trail AuditTrail
}

// NewEventHandler creates a new event handler.
func NewEventHandler(trail AuditTrail) *EventHandler {
	return &EventHandler{BaseHandler: NewBaseHandler(), trail: trail}
}

// OrderEvents lists the events published for an order, newest first.
// GET /orders/:id/events?limit=
func (h *EventHandler) OrderEvents(c *gin.Context) {
	orderID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	limit := h.ParseIntQuery(c, "limit", 50)
	entries, err := h.trail.GetEntityHistory(c.Request.Context(), events.AggregateOrder, orderID, limit)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(entries, limit, 0))
}
