// Package checkout turns carts and accepted quotations into orders and drives
// the order lifecycle. Every operation runs in one transaction.
package checkout

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"almacen/internal/core/apperror"
	appctx "almacen/internal/core/context"
	"almacen/internal/core/id"
	"almacen/internal/core/numerator"
	"almacen/internal/core/tx"
	"almacen/internal/core/types"
	"almacen/internal/domain/allocation"
	"almacen/internal/domain/cart"
	"almacen/internal/domain/catalogs/product"
	"almacen/internal/domain/currency"
	"almacen/internal/domain/documents/order"
	"almacen/internal/domain/documents/quotation"
	"almacen/internal/domain/documents/sale"
	"almacen/internal/domain/events"
	"almacen/internal/domain/inventory"
	"almacen/internal/domain/lots"
	"almacen/internal/domain/settings"
	"almacen/pkg/logger"
)

var tracer = otel.Tracer("almacen/checkout")

// Locker serializes checkouts of one user. Unlock errors are only logged.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(context.Context) error, err error)
}

// Input describes who is buying and in which currency totals are shown.
type Input struct {
	UserID          string         `json:"userId"`
	Customer        order.Customer `json:"customer"`
	ShippingAddress order.Address  `json:"shippingAddress"`
	Currency        string         `json:"currency"`
}

// ConfirmInput is the payment that confirms an order.
type ConfirmInput struct {
	PaymentMethod string `json:"paymentMethod"`
	TransactionID string `json:"transactionId,omitempty"`
}

// Deps groups the collaborators of the orchestrator.
type Deps struct {
	Carts      cart.Repository
	Products   product.Repository
	Orders     order.Repository
	Sales      sale.Repository
	Quotations *quotation.Service
	Planner    *allocation.Planner
	Inventory  *inventory.Service
	Converter  *currency.Converter
	Settings   settings.Provider
	Numerator  numerator.Generator
	Events     events.Publisher
	Locker     Locker
	TxManager  tx.Manager
}

// Service is the checkout/reservation orchestrator.
type Service struct {
	Deps
	now func() time.Time
}

// NewService creates the orchestrator. Nil Events and Locker are allowed.
func NewService(d Deps) *Service {
	if d.Events == nil {
		d.Events = events.Nop{}
	}
	return &Service{Deps: d, now: time.Now}
}

// line is a priced request in the base currency.
type line struct {
	productID id.ID
	quantity  types.Quantity
	unitPrice types.Money
}

// Checkout converts the user's cart into a pending order: it re-checks stock,
// plans allocation, reserves every entry, prices and converts totals, creates
// the order and clears the cart. Any failure leaves no reservation and no order.
func (s *Service) Checkout(ctx context.Context, in Input) (*order.Order, error) {
	if in.UserID == "" {
		return nil, apperror.NewValidation("user is required")
	}

	ctx, span := tracer.Start(ctx, "checkout.Checkout")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", in.UserID))

	unlock, err := s.lock(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var created *order.Order
	err = s.TxManager.RunInTransaction(ctx, func(ctx context.Context) error {
		c, err := s.Carts.Get(ctx, in.UserID)
		if err != nil {
			return fmt.Errorf("load cart: %w", err)
		}
		if c.IsEmpty() {
			return apperror.NewBusinessRule(apperror.CodeEmptyCart, "cart is empty")
		}

		for _, l := range c.Lines {
			free, err := s.Inventory.GlobalFreeStock(ctx, l.ProductID)
			if err != nil {
				return err
			}
			if l.Quantity > free {
				return apperror.NewInsufficientStock(l.ProductID.String(), "", l.Quantity, free)
			}
		}

		plan, err := s.Planner.Plan(ctx, c.Requests())
		if err != nil {
			return err
		}

		lines := make([]line, 0, len(c.Lines))
		for _, l := range c.Lines {
			price, err := s.salePrice(ctx, plan, l.ProductID)
			if err != nil {
				return err
			}
			lines = append(lines, line{productID: l.ProductID, quantity: l.Quantity, unitPrice: price})
		}

		charges, err := s.charges(ctx, nil)
		if err != nil {
			return err
		}

		o, err := s.place(ctx, in, plan, lines, charges, nil)
		if err != nil {
			return err
		}

		c.Clear(s.now().UTC())
		if err := s.Carts.Save(ctx, c); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}

		created = o
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	logger.Info(ctx, "checkout completed",
		"order_id", created.ID,
		"number", created.Number,
		"currency", created.Currency,
		"total", created.Total,
	)
	return created, nil
}

// CheckoutQuotation orders an accepted quotation at its quoted prices and
// marks it converted.
func (s *Service) CheckoutQuotation(ctx context.Context, quotationID id.ID, in Input) (*order.Order, error) {
	if in.UserID == "" {
		return nil, apperror.NewValidation("user is required")
	}

	ctx, span := tracer.Start(ctx, "checkout.CheckoutQuotation")
	defer span.End()

	unlock, err := s.lock(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var created *order.Order
	err = s.TxManager.RunInTransaction(ctx, func(ctx context.Context) error {
		q, err := s.Quotations.Get(ctx, quotationID)
		if err != nil {
			return err
		}
		if q.Status != quotation.StatusAccepted {
			return apperror.NewInvalidTransition("quotation", q.ID.String(), string(q.Status), string(quotation.StatusConverted))
		}
		if len(q.Details) == 0 {
			return apperror.NewBusinessRule(apperror.CodeEmptyCart, "quotation has no items")
		}

		requests := make([]allocation.Request, 0, len(q.Details))
		lines := make([]line, 0, len(q.Details))
		for _, d := range q.Details {
			requests = append(requests, allocation.Request{ProductID: d.ProductID, Quantity: d.Quantity})
			lines = append(lines, line{productID: d.ProductID, quantity: d.Quantity, unitPrice: d.UnitPrice})
		}

		plan, err := s.Planner.Plan(ctx, requests)
		if err != nil {
			return err
		}

		charges, err := s.charges(ctx, &q.TaxRate)
		if err != nil {
			return err
		}

		o, err := s.place(ctx, in, plan, lines, charges, &q.ID)
		if err != nil {
			return err
		}

		if _, err := s.Quotations.MarkConverted(ctx, q.ID, o.ID); err != nil {
			return err
		}
		created = o
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	logger.Info(ctx, "quotation converted",
		"quotation_id", quotationID,
		"order_id", created.ID,
		"number", created.Number,
	)
	return created, nil
}

// place reserves plan, builds the order in the requested currency and stores it.
func (s *Service) place(ctx context.Context, in Input, plan allocation.Plan, lines []line, charges order.Charges, quotationID *id.ID) (*order.Order, error) {
	actor := appctx.ActorID(ctx)
	o := order.New(in.UserID, in.Customer, in.ShippingAddress, actor)
	o.QuotationID = quotationID

	if err := s.Inventory.ReserveAllocation(ctx, plan, o.ID.String()); err != nil {
		return nil, err
	}

	code := currency.NormalizeCode(in.Currency)
	if code == "" {
		code = s.Converter.Base()
	}
	rate, err := s.Converter.Rate(ctx, code)
	if err != nil {
		return nil, err
	}
	convert := func(m types.Money) types.Money {
		if s.Converter.IsBase(code) {
			return types.RoundDisplay(m)
		}
		return currency.FromBase(m, rate)
	}

	subtotal := types.Zero()
	for _, l := range lines {
		subtotal = subtotal.Add(l.unitPrice.Mul(l.quantity.Decimal()))
		o.AddDetail(l.productID, l.quantity, l.unitPrice, convert(l.unitPrice))
	}

	base := order.ComputeTotals(subtotal, charges)
	o.ApplyTotals(base.Convert(convert))
	o.BaseTotal = base.Total
	o.Currency = code
	o.ExchangeRate = rate
	o.Allocation = plan

	notes, err := s.allocationNotes(ctx, plan)
	if err != nil {
		return nil, err
	}
	o.Notes = notes

	if err := o.Validate(ctx); err != nil {
		return nil, err
	}

	number, err := numerator.Next(ctx, s.Numerator, numerator.PrefixOrder, o.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("generate order number: %w", err)
	}
	o.Number = number
	o.Start(actor, "")

	if err := s.Orders.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	if err := s.publish(ctx, events.OrderCreated, o, ""); err != nil {
		return nil, err
	}
	return o, nil
}

// ConfirmOrder records payment for a pending order: it creates the sale,
// consumes the reserved stock FIFO and moves the order to confirmado.
func (s *Service) ConfirmOrder(ctx context.Context, orderID id.ID, in ConfirmInput) (*sale.Sale, error) {
	if in.PaymentMethod == "" {
		return nil, apperror.NewValidation("payment method is required").WithDetail("field", "paymentMethod")
	}

	ctx, span := tracer.Start(ctx, "checkout.ConfirmOrder")
	defer span.End()

	var created *sale.Sale
	err := s.TxManager.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := s.Orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Status != order.StatusPending {
			return apperror.NewInvalidTransition("order", o.ID.String(), string(o.Status), string(order.StatusConfirmed))
		}

		now := s.now().UTC()
		actor := appctx.ActorID(ctx)
		sl := sale.New(o.ID, o.UserID, actor)
		number, err := numerator.Next(ctx, s.Numerator, numerator.PrefixSale, now)
		if err != nil {
			return fmt.Errorf("generate sale number: %w", err)
		}
		sl.Number = number

		consumed, err := s.Inventory.CommitAllocation(ctx, o.Allocation, sl.Number)
		if err != nil {
			return err
		}

		// a product may appear on several lines; each takes its own FIFO share
		for _, d := range o.Details {
			var used []lots.Consumption
			used, consumed[d.ProductID] = lots.SplitConsumption(consumed[d.ProductID], d.Quantity)
			sl.AddDetail(d.ProductID, d.Quantity, d.UnitPrice, used)
		}
		sl.Currency = o.Currency
		sl.ExchangeRate = o.ExchangeRate
		sl.Subtotal = o.Subtotal
		sl.Tax = o.Tax
		sl.Shipping = o.Shipping
		sl.Total = o.Total
		sl.Payment = sale.Payment{
			Method:        in.PaymentMethod,
			TransactionID: in.TransactionID,
			Amount:        o.Total,
			Status:        sale.PaymentPaid,
			PaidAt:        now,
		}
		if err := s.Sales.Create(ctx, sl); err != nil {
			return fmt.Errorf("create sale: %w", err)
		}

		o.PaymentMethod = in.PaymentMethod
		o.TransactionID = in.TransactionID
		if err := s.transition(ctx, o, order.StatusConfirmed, "payment received", "", now); err != nil {
			return err
		}
		if err := s.publish(ctx, events.OrderConfirmed, o, sl.Number); err != nil {
			return err
		}

		created = sl
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	logger.Info(ctx, "order confirmed", "order_id", orderID, "sale", created.Number)
	return created, nil
}

// CancelOrder cancels an order that has not been delivered. Pending orders
// release their reservations; confirmed ones put the sold stock back as
// return lots at the cost it left with.
func (s *Service) CancelOrder(ctx context.Context, orderID id.ID, reason string) (*order.Order, error) {
	var out *order.Order
	err := s.TxManager.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := s.Orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !o.Status.CanTransitionTo(order.StatusCancelled) {
			return apperror.NewInvalidTransition("order", o.ID.String(), string(o.Status), string(order.StatusCancelled))
		}

		ref := o.ID.String()
		if o.Status.HoldsReservation() {
			if err := s.Inventory.ReleaseAllocation(ctx, o.Allocation, ref); err != nil {
				return err
			}
		} else {
			if err := s.restock(ctx, o); err != nil {
				return err
			}
		}

		if err := s.transition(ctx, o, order.StatusCancelled, reason, "", s.now().UTC()); err != nil {
			return err
		}
		if err := s.publish(ctx, events.OrderCancelled, o, reason); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "order cancelled", "order_id", orderID, "reason", reason)
	return out, nil
}

// AdvanceStatus moves a confirmed order through fulfilment.
func (s *Service) AdvanceStatus(ctx context.Context, orderID id.ID, next order.Status, note, trackingCode string) (*order.Order, error) {
	switch next {
	case order.StatusPreparing, order.StatusShipped, order.StatusDelivered:
	default:
		return nil, apperror.NewValidation("status can only advance to preparando, enviado or entregado").
			WithDetail("status", next)
	}

	var out *order.Order
	err := s.TxManager.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := s.Orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := s.transition(ctx, o, next, note, trackingCode, s.now().UTC()); err != nil {
			return err
		}
		if err := s.publish(ctx, events.OrderStatusChanged, o, note); err != nil {
			return err
		}
		out = o
		return nil
	})
	return out, err
}

// GetOrder returns an order with details and history.
func (s *Service) GetOrder(ctx context.Context, orderID id.ID) (*order.Order, error) {
	return s.Orders.GetByID(ctx, orderID)
}

// ListOrders returns the latest orders of a user.
func (s *Service) ListOrders(ctx context.Context, userID string, limit int) ([]*order.Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.Orders.ListByUser(ctx, userID, limit)
}

// --- helpers ---

func (s *Service) lock(ctx context.Context, userID string) (func(), error) {
	if s.Locker == nil {
		return func() {}, nil
	}
	unlock, err := s.Locker.Lock(ctx, "checkout:"+userID)
	if err != nil {
		return nil, err
	}
	return func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			logger.Warn(ctx, "release checkout lock", "user_id", userID, "error", err)
		}
	}, nil
}

func (s *Service) transition(ctx context.Context, o *order.Order, next order.Status, note, trackingCode string, at time.Time) error {
	change, err := o.Transition(next, appctx.ActorID(ctx), note, trackingCode, at)
	if err != nil {
		return err
	}
	if err := s.Orders.Update(ctx, o); err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if err := s.Orders.AppendHistory(ctx, change); err != nil {
		return fmt.Errorf("append order history: %w", err)
	}
	return nil
}

// salePrice is the sale price of the first warehouse a product is picked from.
func (s *Service) salePrice(ctx context.Context, plan allocation.Plan, productID id.ID) (types.Money, error) {
	a, ok := plan.For(productID)
	if !ok || len(a.Allocation) == 0 {
		return types.Zero(), apperror.NewInternal(fmt.Errorf("product %s missing from plan", productID))
	}
	rec, err := s.Inventory.Record(ctx, productID, a.Allocation[0].WarehouseID)
	if err != nil {
		return types.Zero(), err
	}
	if !rec.SalePrice.IsPositive() {
		return types.Zero(), apperror.NewValidation("product has no sale price").
			WithDetail("product_id", productID.String()).
			WithDetail("warehouse_id", rec.WarehouseID.String())
	}
	return rec.SalePrice, nil
}

func (s *Service) charges(ctx context.Context, taxRate *types.Money) (order.Charges, error) {
	var c order.Charges
	var err error
	if taxRate != nil {
		c.TaxRate = *taxRate
	} else if c.TaxRate, err = settings.Decimal(ctx, s.Settings, settings.GroupSales, settings.KeyTaxRate, settings.DefaultTaxRate); err != nil {
		return c, err
	}
	if c.ShippingCost, err = settings.Decimal(ctx, s.Settings, settings.GroupSales, settings.KeyShippingCost, types.Zero()); err != nil {
		return c, err
	}
	if c.FreeShippingThreshold, err = settings.Decimal(ctx, s.Settings, settings.GroupSales, settings.KeyFreeShippingThreshold, types.Zero()); err != nil {
		return c, err
	}
	return c, nil
}

func (s *Service) allocationNotes(ctx context.Context, plan allocation.Plan) (string, error) {
	main, err := s.Planner.MainWarehouse(ctx)
	if err != nil {
		return "", err
	}
	var mainID id.ID
	if main != nil {
		mainID = main.ID
	}

	names := make(map[id.ID]string, len(plan))
	for _, a := range plan {
		if len(a.Allocation) == 1 && a.Allocation[0].WarehouseID == mainID {
			continue
		}
		p, err := s.Products.GetByID(ctx, a.ProductID)
		if err != nil {
			return "", err
		}
		names[a.ProductID] = p.Name
	}

	notes := plan.Notes(mainID, names)
	if len(notes) == 0 {
		return "", nil
	}
	out := "Multi-warehouse order:"
	for _, n := range notes {
		out += "\n- " + n
	}
	return out, nil
}

// restock puts back the stock of a confirmed order, warehouse by warehouse,
// at the FIFO cost recorded on its sale.
func (s *Service) restock(ctx context.Context, o *order.Order) error {
	sl, err := s.Sales.GetByOrder(ctx, o.ID)
	if err != nil {
		return err
	}
	type sold struct {
		qty  types.Quantity
		cost types.Money
	}
	totals := make(map[id.ID]sold, len(sl.Details))
	for _, d := range sl.Details {
		t := totals[d.ProductID]
		t.qty += d.Quantity
		t.cost = t.cost.Add(d.UnitCost.Mul(d.Quantity.Decimal()))
		totals[d.ProductID] = t
	}
	costs := make(map[id.ID]types.Money, len(totals))
	for productID, t := range totals {
		if t.qty.IsPositive() {
			costs[productID] = types.RoundStorage(t.cost.Div(t.qty.Decimal()))
		} else {
			costs[productID] = types.Zero()
		}
	}

	for _, l := range o.Allocation.Lines() {
		if _, err := s.Inventory.Restock(ctx, l.ProductID, l.WarehouseID, l.Quantity, costs[l.ProductID], o.ID.String()); err != nil {
			return err
		}
	}
	return s.Sales.UpdatePaymentStatus(ctx, sl.ID, sale.PaymentRefunded)
}

func (s *Service) publish(ctx context.Context, eventType string, o *order.Order, note string) error {
	return s.Events.Publish(ctx, events.Event{
		AggregateType: events.AggregateOrder,
		AggregateID:   o.ID,
		EventType:     eventType,
		Payload: OrderEvent{
			OrderID:    o.ID,
			Number:     o.Number,
			UserID:     o.UserID,
			Status:     o.Status,
			Currency:   o.Currency,
			Total:      o.Total,
			Note:       note,
			Allocation: o.Allocation,
		},
	})
}

// OrderEvent is the payload of order events.
type OrderEvent struct {
	OrderID    id.ID           `json:"orderId"`
	Number     string          `json:"number"`
	UserID     string          `json:"userId"`
	Status     order.Status    `json:"status"`
	Currency   string          `json:"currency"`
	Total      types.Money     `json:"total"`
	Note       string          `json:"note,omitempty"`
	Allocation allocation.Plan `json:"allocation"`
}
