// Package cart holds the mutable pre-checkout basket of one user.
package cart

import (
	"time"

	"almacen/internal/core/apperror"
	"almacen/internal/core/id"
	"almacen/internal/core/types"
	"almacen/internal/domain/allocation"
)

// Line is one product in a cart.
type Line struct {
	ProductID id.ID          `db:"product_id" json:"productId"`
	Quantity  types.Quantity `db:"quantity" json:"quantity"`
	AddedAt   time.Time      `db:"added_at" json:"addedAt"`
}

// Cart belongs to one user. A product appears at most once.
type Cart struct {
	UserID    string    `json:"userId"`
	Lines     []Line    `json:"lines"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// New creates an empty cart.
func New(userID string) *Cart {
	return &Cart{UserID: userID, UpdatedAt: time.Now().UTC()}
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool { return len(c.Lines) == 0 }

func (c *Cart) find(productID id.ID) int {
	for i, l := range c.Lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}

// AddLine adds qty of a product, merging with an existing line.
func (c *Cart) AddLine(productID id.ID, qty types.Quantity, at time.Time) error {
	if id.IsNil(productID) {
		return apperror.NewValidation("product is required")
	}
	if !qty.IsPositive() {
		return apperror.NewValidation("quantity must be positive").WithDetail("quantity", qty)
	}
	if i := c.find(productID); i >= 0 {
		c.Lines[i].Quantity += qty
	} else {
		c.Lines = append(c.Lines, Line{ProductID: productID, Quantity: qty, AddedAt: at})
	}
	c.UpdatedAt = at
	return nil
}

// SetQuantity replaces the quantity of an existing line.
func (c *Cart) SetQuantity(productID id.ID, qty types.Quantity, at time.Time) error {
	if !qty.IsPositive() {
		return apperror.NewValidation("quantity must be positive").WithDetail("quantity", qty)
	}
	i := c.find(productID)
	if i < 0 {
		return apperror.NewNotFound("cart line", productID)
	}
	c.Lines[i].Quantity = qty
	c.UpdatedAt = at
	return nil
}

// RemoveLine drops a product. It reports whether a line was removed.
func (c *Cart) RemoveLine(productID id.ID, at time.Time) bool {
	i := c.find(productID)
	if i < 0 {
		return false
	}
	c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
	c.UpdatedAt = at
	return true
}

// Clear empties the cart.
func (c *Cart) Clear(at time.Time) {
	c.Lines = nil
	c.UpdatedAt = at
}

// Requests turns the lines into allocation requests.
func (c *Cart) Requests() []allocation.Request {
	out := make([]allocation.Request, 0, len(c.Lines))
	for _, l := range c.Lines {
		out = append(out, allocation.Request{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	return out
}
