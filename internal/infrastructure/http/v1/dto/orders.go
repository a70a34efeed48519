package dto

import (
	"almacen/internal/core/id"
	"almacen/internal/core/types"
	"almacen/internal/domain/checkout"
	"almacen/internal/domain/documents/order"
)

// CartItemRequest adds a product to the cart.
type CartItemRequest struct {
	ProductID id.ID          `json:"productId"`
	Quantity  types.Quantity `json:"quantity"`
}

// CartQuantityRequest sets the quantity of a cart line.
type CartQuantityRequest struct {
	Quantity types.Quantity `json:"quantity"`
}

// CheckoutRequest places an order for the caller.
type CheckoutRequest struct {
	Customer        order.Customer `json:"customer"`
	ShippingAddress order.Address  `json:"shippingAddress"`
	Currency        string         `json:"currency"`
}

// Input builds the checkout input of userID.
func (r CheckoutRequest) Input(userID string) checkout.Input {
	return checkout.Input{
		UserID:          userID,
		Customer:        r.Customer,
		ShippingAddress: r.ShippingAddress,
		Currency:        r.Currency,
	}
}

// CancelRequest cancels an order.
type CancelRequest struct {
	Reason string `json:"reason"`
}

// StatusRequest advances an order through fulfilment.
type StatusRequest struct {
	Status       order.Status `json:"status" binding:"required"`
	Note         string       `json:"note"`
	TrackingCode string       `json:"trackingCode"`
}

// RejectRequest rejects a quotation.
type RejectRequest struct {
	Reason string `json:"reason"`
}
