package handlers

import (
	"github.com/gin-gonic/gin"

	"almacen/internal/domain/cart"
	"almacen/internal/infrastructure/http/v1/dto"
)

// CartHandler handles the caller's shopping cart.
type CartHandler struct {
	*BaseHandler
	carts *cart.Service
}

// NewCartHandler creates a new cart handler.
func NewCartHandler(carts *cart.Service) *CartHandler {
	return &CartHandler{BaseHandler: NewBaseHandler(), carts: carts}
}

// Get returns the cart.
// GET /cart
func (h *CartHandler) Get(c *gin.Context) {
	crt, err := h.carts.Get(c.Request.Context(), h.GetUserID(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, crt)
}

// AddItem adds quantity of a product, merging with an existing line.
// POST /cart/items
func (h *CartHandler) AddItem(c *gin.Context) {
	var req dto.CartItemRequest
	if !h.BindJSON(c, &req) {
		return
	}
	crt, err := h.carts.AddItem(c.Request.Context(), h.GetUserID(c), req.ProductID, req.Quantity)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, crt)
}

// SetQuantity replaces the quantity of a line.
// PUT /cart/items/:productId
func (h *CartHandler) SetQuantity(c *gin.Context) {
	productID, ok := h.ParamID(c, "productId")
	if !ok {
		return
	}
	var req dto.CartQuantityRequest
	if !h.BindJSON(c, &req) {
		return
	}
	crt, err := h.carts.SetQuantity(c.Request.Context(), h.GetUserID(c), productID, req.Quantity)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, crt)
}

// RemoveItem drops a line.
// DELETE /cart/items/:productId
func (h *CartHandler) RemoveItem(c *gin.Context) {
	productID, ok := h.ParamID(c, "productId")
	if !ok {
		return
	}
	crt, err := h.carts.RemoveItem(c.Request.Context(), h.GetUserID(c), productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, crt)
}

// Clear empties the cart.
// DELETE /cart
func (h *CartHandler) Clear(c *gin.Context) {
	if err := h.carts.Clear(c.Request.Context(), h.GetUserID(c)); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}
