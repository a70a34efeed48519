package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"almacen/internal/core/id"
	"almacen/internal/domain/documents/order"
	"almacen/internal/infrastructure/storage/postgres"
)

const (
	ordersTable       = "doc_orders"
	orderLinesTable   = "doc_order_lines"
	orderHistoryTable = "doc_order_history"
)

// OrderRepo implements order.Repository.
type OrderRepo struct {
	txm     *postgres.TxManager
	orders  *postgres.Table[order.Order]
	lines   *postgres.Table[order.Detail]
	history *postgres.Table[order.StatusChange]
}

var _ order.Repository = (*OrderRepo)(nil)

// NewOrderRepo creates a new order repository.
func NewOrderRepo(txm *postgres.TxManager) *OrderRepo {
	return &OrderRepo{
		txm:     txm,
		orders:  postgres.NewTable[order.Order](txm, ordersTable),
		lines:   postgres.NewTable[order.Detail](txm, orderLinesTable),
		history: postgres.NewTable[order.StatusChange](txm, orderHistoryTable),
	}
}

// Create inserts the order, its details and its history.
func (r *OrderRepo) Create(ctx context.Context, o *order.Order) error {
	return r.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := r.orders.Insert(ctx, o); err != nil {
			return err
		}
		if err := insertLines(ctx, r.lines, o.Details); err != nil {
			return err
		}
		return insertLines(ctx, r.history, o.History)
	})
}

func (r *OrderRepo) load(ctx context.Context, orderID id.ID, lock bool) (*order.Order, error) {
	q := r.orders.Select().Where(squirrel.Eq{"id": orderID})
	if lock {
		q = q.Suffix("FOR UPDATE")
	}

	var o order.Order
	if err := r.orders.Get(ctx, &o, q, "order", orderID); err != nil {
		return nil, err
	}

	var err error
	if o.Details, err = listLines(ctx, r.lines, "order_id", o.ID, "line_no"); err != nil {
		return nil, err
	}
	if o.History, err = listLines(ctx, r.history, "order_id", o.ID, "changed_at", "id"); err != nil {
		return nil, err
	}
	return &o, nil
}

// GetByID loads an order with details and history.
func (r *OrderRepo) GetByID(ctx context.Context, orderID id.ID) (*order.Order, error) {
	return r.load(ctx, orderID, false)
}

// GetForUpdate is GetByID with the order row locked.
func (r *OrderRepo) GetForUpdate(ctx context.Context, orderID id.ID) (*order.Order, error) {
	return r.load(ctx, orderID, true)
}

// Update writes header fields with an optimistic version check.
func (r *OrderRepo) Update(ctx context.Context, o *order.Order) error {
	return r.orders.UpdateVersioned(ctx, o, o.ID, o.Version-1)
}

// AppendHistory inserts one status change.
func (r *OrderRepo) AppendHistory(ctx context.Context, change order.StatusChange) error {
	if err := r.history.Insert(ctx, &change); err != nil {
		return fmt.Errorf("append order history: %w", err)
	}
	return nil
}

// ListByUser returns a user's orders, newest first, without details.
func (r *OrderRepo) ListByUser(ctx context.Context, userID string, limit int) ([]*order.Order, error) {
	q := r.orders.Select().
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at DESC", "id DESC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	return r.orders.List(ctx, q)
}
