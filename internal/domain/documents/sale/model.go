// Package sale provides the sale document created when an order is confirmed.
package sale

import (
	"context"
	"time"

	"almacen/internal/core/entity"
	"almacen/internal/core/id"
	"almacen/internal/core/types"
	"almacen/internal/domain/lots"
)

// PaymentStatus of a sale.
type PaymentStatus string

const (
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

// Payment is the settlement recorded with a sale.
type Payment struct {
	Method        string        `db:"payment_method" json:"method"`
	TransactionID string        `db:"transaction_id" json:"transactionId,omitempty"`
	Amount        types.Money   `db:"payment_amount" json:"amount"`
	Status        PaymentStatus `db:"payment_status" json:"status"`
	PaidAt        time.Time     `db:"paid_at" json:"paidAt"`
}

// Sale mirrors a confirmed order. Amounts are in Currency; costs are in the base currency.
type Sale struct {
	entity.BaseDocument

	OrderID      id.ID       `db:"order_id" json:"orderId"`
	UserID       string      `db:"user_id" json:"userId"`
	Currency     string      `db:"currency" json:"currency"`
	ExchangeRate types.Money `db:"exchange_rate" json:"exchangeRate"`
	Subtotal     types.Money `db:"subtotal" json:"subtotal"`
	Tax          types.Money `db:"tax" json:"tax"`
	Shipping     types.Money `db:"shipping" json:"shipping"`
	Total        types.Money `db:"total" json:"total"`
	CostTotal    types.Money `db:"cost_total" json:"costTotal"`

	Payment Payment  `db:"-" json:"payment"`
	Details []Detail `db:"-" json:"details"`
}

// Detail is one sold product with the FIFO cost of the lots it consumed.
type Detail struct {
	ID        id.ID          `db:"id" json:"id"`
	SaleID    id.ID          `db:"sale_id" json:"saleId"`
	LineNo    int            `db:"line_no" json:"lineNo"`
	ProductID id.ID          `db:"product_id" json:"productId"`
	Quantity  types.Quantity `db:"quantity" json:"quantity"`
	UnitPrice types.Money    `db:"unit_price" json:"unitPrice"`
	UnitCost  types.Money    `db:"unit_cost" json:"unitCost"`
	Subtotal  types.Money    `db:"subtotal" json:"subtotal"`
}

// New creates an empty sale for an order.
func New(orderID id.ID, userID, createdBy string) *Sale {
	return &Sale{
		BaseDocument: entity.NewBaseDocument(createdBy),
		OrderID:      orderID,
		UserID:       userID,
		CostTotal:    types.Zero(),
	}
}

// AddDetail appends a line costed from the lots it consumed.
func (s *Sale) AddDetail(productID id.ID, qty types.Quantity, unitPrice types.Money, consumed []lots.Consumption) {
	unitCost := lots.ConsumedCost(consumed)
	s.Details = append(s.Details, Detail{
		ID:        id.New(),
		SaleID:    s.ID,
		LineNo:    len(s.Details) + 1,
		ProductID: productID,
		Quantity:  qty,
		UnitPrice: unitPrice,
		UnitCost:  unitCost,
		Subtotal:  types.RoundDisplay(unitPrice.Mul(qty.Decimal())),
	})
	s.CostTotal = types.RoundStorage(s.CostTotal.Add(unitCost.Mul(qty.Decimal())))
}

// Repository persists sales.
type Repository interface {
	// Create inserts the sale with its details and payment.
	Create(ctx context.Context, s *Sale) error
	GetByID(ctx context.Context, saleID id.ID) (*Sale, error)
	// GetByOrder returns apperror NotFound when the order has no sale.
	GetByOrder(ctx context.Context, orderID id.ID) (*Sale, error)
	// UpdatePaymentStatus changes the payment status of a sale.
	UpdatePaymentStatus(ctx context.Context, saleID id.ID, status PaymentStatus) error
}
