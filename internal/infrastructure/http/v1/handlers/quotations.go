package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"almacen/internal/core/id"
	"almacen/internal/domain/documents/quotation"
	"almacen/internal/infrastructure/http/v1/dto"
)

// QuotationHandler handles the quotation lifecycle.
type QuotationHandler struct {
	*BaseHandler
	quotations *quotation.Service
}

// NewQuotationHandler creates a new quotation handler.
func NewQuotationHandler(svc *quotation.Service) *QuotationHandler {
	return &QuotationHandler{BaseHandler: NewBaseHandler(), quotations: svc}
}

// Create opens a draft quotation.
// POST /quotations
func (h *QuotationHandler) Create(c *gin.Context) {
	var req quotation.CreateInput
	if !h.BindJSON(c, &req) {
		return
	}
	q, err := h.quotations.Create(c.Request.Context(), req)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, q)
}

// Get returns a quotation with its lines.
// GET /quotations/:id
func (h *QuotationHandler) Get(c *gin.Context) {
	quotationID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	q, err := h.quotations.Get(c.Request.Context(), quotationID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, q)
}

// AddItem adds a warehouse or supplier line to a draft.
// POST /quotations/:id/items
func (h *QuotationHandler) AddItem(c *gin.Context) {
	quotationID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req quotation.ItemInput
	if !h.BindJSON(c, &req) {
		return
	}
	q, err := h.quotations.AddItem(c.Request.Context(), quotationID, req)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, q)
}

// UpdateItem changes quantity or price of a draft line.
// PATCH /quotations/:id/items/:itemId
func (h *QuotationHandler) UpdateItem(c *gin.Context) {
	quotationID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	itemID, ok := h.ParamID(c, "itemId")
	if !ok {
		return
	}
	var req quotation.ItemUpdate
	if !h.BindJSON(c, &req) {
		return
	}
	q, err := h.quotations.UpdateItem(c.Request.Context(), quotationID, itemID, req)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, q)
}

// RemoveItem drops a draft line.
// DELETE /quotations/:id/items/:itemId
func (h *QuotationHandler) RemoveItem(c *gin.Context) {
	quotationID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	itemID, ok := h.ParamID(c, "itemId")
	if !ok {
		return
	}
	q, err := h.quotations.RemoveItem(c.Request.Context(), quotationID, itemID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, q)
}

// Send marks a draft as sent to the customer.
// POST /quotations/:id/send
func (h *QuotationHandler) Send(c *gin.Context) {
	h.transition(c, h.quotations.Send)
}

// Accept records the customer's acceptance.
// POST /quotations/:id/accept
func (h *QuotationHandler) Accept(c *gin.Context) {
	h.transition(c, h.quotations.Accept)
}

// Reject records the customer's refusal.
// POST /quotations/:id/reject
func (h *QuotationHandler) Reject(c *gin.Context) {
	quotationID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.RejectRequest
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &req) {
		return
	}
	q, err := h.quotations.Reject(c.Request.Context(), quotationID, req.Reason)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, q)
}

func (h *QuotationHandler) transition(c *gin.Context, fn func(ctx context.Context, quotationID id.ID) (*quotation.Quotation, error)) {
	quotationID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	q, err := fn(c.Request.Context(), quotationID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, q)
}
