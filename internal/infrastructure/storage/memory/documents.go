package memory

import (
	"context"
	"slices"
	"time"

	"almacen/internal/core/apperror"
	"almacen/internal/core/id"
	"almacen/internal/core/numerator"
	"almacen/internal/domain/allocation"
	"almacen/internal/domain/cart"
	"almacen/internal/domain/documents/order"
	"almacen/internal/domain/documents/quotation"
	"almacen/internal/domain/documents/sale"
	"almacen/internal/domain/events"
)

// Carts returns the cart repository.
func (s *Store) Carts() cart.Repository { return cartRepo{s} }

// Orders returns the order repository.
func (s *Store) Orders() order.Repository { return orderRepo{s} }

// Sales returns the sale repository.
func (s *Store) Sales() sale.Repository { return saleRepo{s} }

// Quotations returns the quotation repository.
func (s *Store) Quotations() quotation.Repository { return quotationRepo{s} }

// Numerator returns a gapless document number generator.
func (s *Store) Numerator() numerator.Generator { return sequenceGen{s} }

// Outbox returns a publisher that keeps events in the store.
func (s *Store) Outbox() events.Publisher { return outbox{s} }

// Events returns the published events in order.
func (s *Store) Events() []events.Event {
	var out []events.Event
	s.read(func(st *state) { out = slices.Clone(st.outbox) })
	return out
}

type cartRepo struct{ s *Store }

func (r cartRepo) Get(_ context.Context, userID string) (*cart.Cart, error) {
	var (
		c  cart.Cart
		ok bool
	)
	r.s.read(func(st *state) { c, ok = st.carts[userID] })
	if !ok {
		return cart.New(userID), nil
	}
	c = copyCart(c)
	return &c, nil
}

func copyCart(c cart.Cart) cart.Cart {
	c.Lines = slices.Clone(c.Lines)
	return c
}

func (r cartRepo) Save(ctx context.Context, c *cart.Cart) error {
	stored := copyCart(*c)
	return r.s.write(ctx, func(st *state) error {
		st.carts[c.UserID] = stored
		return nil
	})
}

func copyOrder(o order.Order) order.Order {
	o.Details = slices.Clone(o.Details)
	o.History = slices.Clone(o.History)
	o.Allocation = copyPlan(o.Allocation)
	return o
}

func copyPlan(p allocation.Plan) allocation.Plan {
	if p == nil {
		return nil
	}
	out := make(allocation.Plan, len(p))
	for i, pa := range p {
		pa.Allocation = slices.Clone(pa.Allocation)
		out[i] = pa
	}
	return out
}

type orderRepo struct{ s *Store }

func (r orderRepo) Create(ctx context.Context, o *order.Order) error {
	stored := copyOrder(*o)
	return r.s.write(ctx, func(st *state) error {
		if _, exists := st.orders[o.ID]; exists {
			return apperror.NewConflict("order already exists").WithDetail("order_id", o.ID)
		}
		st.orders[o.ID] = stored
		return nil
	})
}

func (r orderRepo) GetByID(_ context.Context, orderID id.ID) (*order.Order, error) {
	var (
		o  order.Order
		ok bool
	)
	r.s.read(func(st *state) { o, ok = st.orders[orderID] })
	if !ok {
		return nil, apperror.NewNotFound("order", orderID)
	}
	o = copyOrder(o)
	return &o, nil
}

func (r orderRepo) GetForUpdate(ctx context.Context, orderID id.ID) (*order.Order, error) {
	return r.GetByID(ctx, orderID)
}

// Update replaces everything but the history, which only grows through AppendHistory.
func (r orderRepo) Update(ctx context.Context, o *order.Order) error {
	next := copyOrder(*o)
	return r.s.write(ctx, func(st *state) error {
		cur, ok := st.orders[o.ID]
		if !ok {
			return apperror.NewNotFound("order", o.ID)
		}
		if cur.Version != o.Version-1 {
			return apperror.NewConcurrentModification("order", o.ID)
		}
		next.History = slices.Clone(cur.History)
		st.orders[o.ID] = next
		return nil
	})
}

func (r orderRepo) AppendHistory(ctx context.Context, change order.StatusChange) error {
	return r.s.write(ctx, func(st *state) error {
		cur, ok := st.orders[change.OrderID]
		if !ok {
			return apperror.NewNotFound("order", change.OrderID)
		}
		cur.History = append(slices.Clone(cur.History), change)
		st.orders[change.OrderID] = cur
		return nil
	})
}

func (r orderRepo) ListByUser(_ context.Context, userID string, limit int) ([]*order.Order, error) {
	var out []*order.Order
	r.s.read(func(st *state) {
		for _, o := range st.orders {
			if o.UserID != userID {
				continue
			}
			o.Details = nil
			o.History = nil
			o.Allocation = copyPlan(o.Allocation)
			out = append(out, &o)
		}
	})
	slices.SortFunc(out, func(a, b *order.Order) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return compareID(b.ID, a.ID)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type saleRepo struct{ s *Store }

func copySale(sl sale.Sale) sale.Sale {
	sl.Details = slices.Clone(sl.Details)
	return sl
}

func (r saleRepo) Create(ctx context.Context, sl *sale.Sale) error {
	stored := copySale(*sl)
	return r.s.write(ctx, func(st *state) error {
		for _, existing := range st.sales {
			if existing.OrderID == sl.OrderID {
				return apperror.NewConflict("order already has a sale").WithDetail("order_id", sl.OrderID)
			}
		}
		st.sales[sl.ID] = stored
		return nil
	})
}

func (r saleRepo) find(match func(sale.Sale) bool) (*sale.Sale, bool) {
	var (
		found sale.Sale
		ok    bool
	)
	r.s.read(func(st *state) {
		for _, sl := range st.sales {
			if match(sl) {
				found, ok = sl, true
				return
			}
		}
	})
	if !ok {
		return nil, false
	}
	found = copySale(found)
	return &found, true
}

func (r saleRepo) GetByID(_ context.Context, saleID id.ID) (*sale.Sale, error) {
	sl, ok := r.find(func(sl sale.Sale) bool { return sl.ID == saleID })
	if !ok {
		return nil, apperror.NewNotFound("sale", saleID)
	}
	return sl, nil
}

func (r saleRepo) GetByOrder(_ context.Context, orderID id.ID) (*sale.Sale, error) {
	sl, ok := r.find(func(sl sale.Sale) bool { return sl.OrderID == orderID })
	if !ok {
		return nil, apperror.NewNotFound("sale", orderID)
	}
	return sl, nil
}

func (r saleRepo) UpdatePaymentStatus(ctx context.Context, saleID id.ID, status sale.PaymentStatus) error {
	return r.s.write(ctx, func(st *state) error {
		sl, ok := st.sales[saleID]
		if !ok {
			return apperror.NewNotFound("sale", saleID)
		}
		sl.Payment.Status = status
		st.sales[saleID] = sl
		return nil
	})
}

func copyQuotation(q quotation.Quotation) quotation.Quotation {
	q.Details = slices.Clone(q.Details)
	return q
}

type quotationRepo struct{ s *Store }

func (r quotationRepo) Create(ctx context.Context, q *quotation.Quotation) error {
	stored := copyQuotation(*q)
	return r.s.write(ctx, func(st *state) error {
		st.quotations[q.ID] = stored
		return nil
	})
}

func (r quotationRepo) GetByID(_ context.Context, quotationID id.ID) (*quotation.Quotation, error) {
	var (
		q  quotation.Quotation
		ok bool
	)
	r.s.read(func(st *state) { q, ok = st.quotations[quotationID] })
	if !ok {
		return nil, apperror.NewNotFound("quotation", quotationID)
	}
	q = copyQuotation(q)
	return &q, nil
}

func (r quotationRepo) GetForUpdate(ctx context.Context, quotationID id.ID) (*quotation.Quotation, error) {
	return r.GetByID(ctx, quotationID)
}

func (r quotationRepo) Update(ctx context.Context, q *quotation.Quotation) error {
	next := copyQuotation(*q)
	return r.s.write(ctx, func(st *state) error {
		cur, ok := st.quotations[q.ID]
		if !ok {
			return apperror.NewNotFound("quotation", q.ID)
		}
		if cur.Version != q.Version-1 {
			return apperror.NewConcurrentModification("quotation", q.ID)
		}
		st.quotations[q.ID] = next
		return nil
	})
}

func (r quotationRepo) ListSentBefore(_ context.Context, t time.Time) ([]*quotation.Quotation, error) {
	var out []*quotation.Quotation
	r.s.read(func(st *state) {
		for _, q := range st.quotations {
			if q.Status == quotation.StatusSent && q.ValidUntil.Before(t) {
				q = copyQuotation(q)
				out = append(out, &q)
			}
		}
	})
	slices.SortFunc(out, func(a, b *quotation.Quotation) int { return a.ValidUntil.Compare(b.ValidUntil) })
	return out, nil
}

type sequenceGen struct{ s *Store }

func (g sequenceGen) GetNextNumber(ctx context.Context, cfg numerator.Config, _ *numerator.Options, period time.Time) (string, error) {
	key := numerator.Key(cfg, period)
	var next int64
	err := g.s.write(ctx, func(st *state) error {
		st.sequences[key]++
		next = st.sequences[key]
		return nil
	})
	if err != nil {
		return "", err
	}
	return numerator.Format(cfg, period, next), nil
}

type outbox struct{ s *Store }

func (o outbox) Publish(ctx context.Context, event events.Event) error {
	return o.s.write(ctx, func(st *state) error {
		st.outbox = append(st.outbox, event)
		return nil
	})
}
