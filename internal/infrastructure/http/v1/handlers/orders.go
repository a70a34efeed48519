package handlers

import (
	"github.com/gin-gonic/gin"

	"almacen/internal/domain/checkout"
	"almacen/internal/infrastructure/http/v1/dto"
)

// OrderHandler handles checkout and the order lifecycle.
type OrderHandler struct {
	*BaseHandler
	checkout *checkout.Service
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(svc *checkout.Service) *OrderHandler {
	return &OrderHandler{BaseHandler: NewBaseHandler(), checkout: svc}
}

// Checkout turns the caller's cart into a pending order.
// POST /checkout
func (h *OrderHandler) Checkout(c *gin.Context) {
	var req dto.CheckoutRequest
	if !h.BindJSON(c, &req) {
		return
	}
	o, err := h.checkout.Checkout(c.Request.Context(), req.Input(h.GetUserID(c)))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, o)
}

// CheckoutQuotation turns an accepted quotation into a pending order.
// POST /quotations/:id/checkout
func (h *OrderHandler) CheckoutQuotation(c *gin.Context) {
	quotationID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.CheckoutRequest
	if !h.BindJSON(c, &req) {
		return
	}
	o, err := h.checkout.CheckoutQuotation(c.Request.Context(), quotationID, req.Input(h.GetUserID(c)))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, o)
}

// List returns the caller's latest orders.
// GET /orders?limit=
func (h *OrderHandler) List(c *gin.Context) {
	limit := h.ParseIntQuery(c, "limit", 50)
	orders, err := h.checkout.ListOrders(c.Request.Context(), h.GetUserID(c), limit)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(orders, limit, 0))
}

// Get returns one order with lines and history.
// GET /orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	orderID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	o, err := h.checkout.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, o)
}

// Confirm records payment, consumes lots FIFO and creates the sale.
// POST /orders/:id/confirm
func (h *OrderHandler) Confirm(c *gin.Context) {
	orderID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req checkout.ConfirmInput
	if !h.BindJSON(c, &req) {
		return
	}
	s, err := h.checkout.ConfirmOrder(c.Request.Context(), orderID, req)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, s)
}

// Cancel cancels an order, releasing or restocking its goods.
// POST /orders/:id/cancel
func (h *OrderHandler) Cancel(c *gin.Context) {
	orderID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.CancelRequest
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &req) {
		return
	}
	o, err := h.checkout.CancelOrder(c.Request.Context(), orderID, req.Reason)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, o)
}

// AdvanceStatus moves a confirmed order through fulfilment.
// POST /orders/:id/status
func (h *OrderHandler) AdvanceStatus(c *gin.Context) {
	orderID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.StatusRequest
	if !h.BindJSON(c, &req) {
		return
	}
	o, err := h.checkout.AdvanceStatus(c.Request.Context(), orderID, req.Status, req.Note, req.TrackingCode)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, o)
}
