// Package order provides the customer order document and its lifecycle.
package order

import (
	"context"
	"time"

	"almacen/internal/core/apperror"
	"almacen/internal/core/entity"
	"almacen/internal/core/id"
	"almacen/internal/core/types"
	"almacen/internal/domain/allocation"
)

// Customer is the buyer information captured at checkout.
type Customer struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Phone          string `json:"phone,omitempty"`
	DocumentNumber string `json:"documentNumber,omitempty"`
}

// Address is the shipping destination.
type Address struct {
	Street    string `json:"street"`
	District  string `json:"district,omitempty"`
	City      string `json:"city"`
	Region    string `json:"region,omitempty"`
	Reference string `json:"reference,omitempty"`
}

// Order is created by checkout in status pendiente.
// Amounts are in Currency; BaseTotal keeps the total in the base currency.
type Order struct {
	entity.BaseDocument

	UserID          string   `db:"user_id" json:"userId"`
	Status          Status   `db:"status" json:"status"`
	Customer        Customer `db:"customer" json:"customer"`
	ShippingAddress Address  `db:"shipping_address" json:"shippingAddress"`

	Currency     string      `db:"currency" json:"currency"`
	ExchangeRate types.Money `db:"exchange_rate" json:"exchangeRate"`
	Subtotal     types.Money `db:"subtotal" json:"subtotal"`
	Tax          types.Money `db:"tax" json:"tax"`
	Shipping     types.Money `db:"shipping" json:"shipping"`
	Total        types.Money `db:"total" json:"total"`
	BaseTotal    types.Money `db:"base_total" json:"baseTotal"`

	// Allocation is the warehouse plan the reservations were made from
	Allocation allocation.Plan `db:"allocation" json:"allocation"`
	Notes      string          `db:"notes" json:"notes,omitempty"`

	QuotationID   *id.ID `db:"quotation_id" json:"quotationId,omitempty"`
	PaymentMethod string `db:"payment_method" json:"paymentMethod,omitempty"`
	TransactionID string `db:"transaction_id" json:"transactionId,omitempty"`
	TrackingCode  string `db:"tracking_code" json:"trackingCode,omitempty"`

	ConfirmedAt *time.Time `db:"confirmed_at" json:"confirmedAt,omitempty"`
	CancelledAt *time.Time `db:"cancelled_at" json:"cancelledAt,omitempty"`
	DeliveredAt *time.Time `db:"delivered_at" json:"deliveredAt,omitempty"`

	Details []Detail       `db:"-" json:"details"`
	History []StatusChange `db:"-" json:"history"`
}

// Detail is one ordered product. UnitPrice and Subtotal are in the order currency.
type Detail struct {
	ID            id.ID          `db:"id" json:"id"`
	OrderID       id.ID          `db:"order_id" json:"orderId"`
	LineNo        int            `db:"line_no" json:"lineNo"`
	ProductID     id.ID          `db:"product_id" json:"productId"`
	Quantity      types.Quantity `db:"quantity" json:"quantity"`
	BaseUnitPrice types.Money    `db:"base_unit_price" json:"baseUnitPrice"`
	UnitPrice     types.Money    `db:"unit_price" json:"unitPrice"`
	Subtotal      types.Money    `db:"subtotal" json:"subtotal"`
}

// New creates a pending order.
func New(userID string, customer Customer, address Address, createdBy string) *Order {
	return &Order{
		BaseDocument:    entity.NewBaseDocument(createdBy),
		UserID:          userID,
		Status:          StatusPending,
		Customer:        customer,
		ShippingAddress: address,
		ExchangeRate:    types.MustMoney("1"),
	}
}

// AddDetail appends a line.
func (o *Order) AddDetail(productID id.ID, qty types.Quantity, baseUnitPrice, unitPrice types.Money) {
	o.Details = append(o.Details, Detail{
		ID:            id.New(),
		OrderID:       o.ID,
		LineNo:        len(o.Details) + 1,
		ProductID:     productID,
		Quantity:      qty,
		BaseUnitPrice: baseUnitPrice,
		UnitPrice:     unitPrice,
		Subtotal:      types.RoundDisplay(unitPrice.Mul(qty.Decimal())),
	})
}

// ApplyTotals stores totals in the order currency.
func (o *Order) ApplyTotals(t Totals) {
	o.Subtotal = t.Subtotal
	o.Tax = t.Tax
	o.Shipping = t.Shipping
	o.Total = t.Total
}

// Start records the initial pendiente history entry.
func (o *Order) Start(actor, note string) StatusChange {
	change := StatusChange{
		ID:        id.New(),
		OrderID:   o.ID,
		ToStatus:  StatusPending,
		Actor:     actor,
		Note:      note,
		ChangedAt: o.CreatedAt,
	}
	o.History = append(o.History, change)
	return change
}

// Validate implements entity.Validatable.
func (o *Order) Validate(ctx context.Context) error {
	if o.UserID == "" {
		return apperror.NewValidation("user is required").WithDetail("field", "userId")
	}
	if o.Customer.Name == "" {
		return apperror.NewValidation("customer name is required").WithDetail("field", "customer.name")
	}
	if o.ShippingAddress.Street == "" || o.ShippingAddress.City == "" {
		return apperror.NewValidation("shipping address is required").WithDetail("field", "shippingAddress")
	}
	if len(o.Details) == 0 {
		return apperror.NewValidation("at least one line is required").WithDetail("field", "details")
	}
	for _, d := range o.Details {
		if !d.Quantity.IsPositive() {
			return apperror.NewValidation("quantity must be positive").
				WithDetail("field", "details").
				WithDetail("lineNo", d.LineNo)
		}
	}
	return nil
}
