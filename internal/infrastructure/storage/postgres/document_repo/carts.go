package document_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"almacen/internal/domain/cart"
	"almacen/internal/infrastructure/storage/postgres"
)

const (
	cartsTable     = "doc_carts"
	cartLinesTable = "doc_cart_lines"
)

// CartRepo implements cart.Repository.
type CartRepo struct {
	txm   *postgres.TxManager
	lines *postgres.Table[cart.Line]
}

var _ cart.Repository = (*CartRepo)(nil)

// NewCartRepo creates a new cart repository.
func NewCartRepo(txm *postgres.TxManager) *CartRepo {
	return &CartRepo{txm: txm, lines: postgres.NewTable[cart.Line](txm, cartLinesTable)}
}

// Get returns an empty cart when the user has none.
func (r *CartRepo) Get(ctx context.Context, userID string) (*cart.Cart, error) {
	c := cart.New(userID)

	sql, args, err := postgres.Builder().
		Select("updated_at").
		From(cartsTable).
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build cart query: %w", err)
	}
	err = r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}

	lines, err := r.lines.List(ctx, r.lines.Select().
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("added_at", "product_id"))
	if err != nil {
		return nil, err
	}
	for _, l := range lines {
		c.Lines = append(c.Lines, *l)
	}
	return c, nil
}

// Save replaces the stored cart of c.UserID.
func (r *CartRepo) Save(ctx context.Context, c *cart.Cart) error {
	return r.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		upsert := postgres.Builder().
			Insert(cartsTable).
			Columns("user_id", "updated_at").
			Values(c.UserID, c.UpdatedAt).
			Suffix("ON CONFLICT (user_id) DO UPDATE SET updated_at = EXCLUDED.updated_at")
		if _, err := r.lines.Exec(ctx, upsert); err != nil {
			return fmt.Errorf("save cart: %w", err)
		}

		del := postgres.Builder().Delete(cartLinesTable).Where(squirrel.Eq{"user_id": c.UserID})
		if _, err := r.lines.Exec(ctx, del); err != nil {
			return fmt.Errorf("clear cart lines: %w", err)
		}
		if len(c.Lines) == 0 {
			return nil
		}

		q := postgres.Builder().Insert(cartLinesTable).Columns("user_id", "product_id", "quantity", "added_at")
		for _, l := range c.Lines {
			q = q.Values(c.UserID, l.ProductID, int64(l.Quantity), l.AddedAt)
		}
		if _, err := r.lines.Exec(ctx, q); err != nil {
			return fmt.Errorf("insert cart lines: %w", err)
		}
		return nil
	})
}
