package register_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"almacen/internal/core/id"
	"almacen/internal/domain/lots"
	"almacen/internal/infrastructure/storage/postgres"
)

const lotsTable = "reg_lots"

// LotRepo implements lots.Repository.
type LotRepo struct {
	table *postgres.Table[lots.Lot]
	batch *postgres.BatchExecutor
	txm   *postgres.TxManager
}

var _ lots.Repository = (*LotRepo)(nil)

// NewLotRepo creates a new lot repository.
func NewLotRepo(txm *postgres.TxManager) *LotRepo {
	return &LotRepo{
		table: postgres.NewTable[lots.Lot](txm, lotsTable),
		batch: postgres.NewBatchExecutor(txm),
		txm:   txm,
	}
}

// Create inserts a new lot.
func (r *LotRepo) Create(ctx context.Context, lot *lots.Lot) error {
	return r.table.Insert(ctx, lot)
}

func applyLotFilter(q squirrel.SelectBuilder, f lots.Filter) squirrel.SelectBuilder {
	if f.ProductID != nil {
		q = q.Where(squirrel.Eq{"product_id": *f.ProductID})
	}
	if f.WarehouseID != nil {
		q = q.Where(squirrel.Eq{"warehouse_id": *f.WarehouseID})
	}
	return q
}

// ListActive returns active lots in FIFO order.
func (r *LotRepo) ListActive(ctx context.Context, f lots.Filter) ([]*lots.Lot, error) {
	q := r.table.Select().
		Where(squirrel.Eq{"status": lots.StatusActive}).
		OrderBy("acquired_at", "id")
	return r.table.List(ctx, applyLotFilter(q, f))
}

// ListActiveForUpdate locks the active lots of one pair in FIFO order.
func (r *LotRepo) ListActiveForUpdate(ctx context.Context, productID, warehouseID id.ID) ([]*lots.Lot, error) {
	q := r.table.Select().
		Where(squirrel.Eq{
			"product_id":   productID,
			"warehouse_id": warehouseID,
			"status":       lots.StatusActive,
		}).
		OrderBy("acquired_at", "id").
		Suffix("FOR UPDATE")
	return r.table.List(ctx, q)
}

// SaveAvailability persists QuantityAvailable and Status of the given lots.
func (r *LotRepo) SaveAvailability(ctx context.Context, changed []*lots.Lot) error {
	if len(changed) == 0 {
		return nil
	}

	queries := make([]postgres.BatchQuery, 0, len(changed))
	for _, l := range changed {
		sql, args, err := postgres.Builder().
			Update(lotsTable).
			Set("quantity_available", int64(l.QuantityAvailable)).
			Set("status", l.Status).
			Where(squirrel.Eq{"id": l.ID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build lot update: %w", err)
		}
		queries = append(queries, postgres.BatchQuery{SQL: sql, Args: args})
	}

	if r.txm.GetTx(ctx) == nil {
		return r.txm.RunInTransaction(ctx, func(ctx context.Context) error {
			return r.execUpdates(ctx, queries)
		})
	}
	return r.execUpdates(ctx, queries)
}

func (r *LotRepo) execUpdates(ctx context.Context, queries []postgres.BatchQuery) error {
	affected, err := r.batch.ExecuteBatch(ctx, queries)
	if err != nil {
		return fmt.Errorf("save lot availability: %w", err)
	}
	for i, n := range affected {
		if n == 0 {
			return fmt.Errorf("save lot availability: lot of statement %d not found", i)
		}
	}
	return nil
}

// ActiveTotals sums active availability grouped by product and warehouse.
func (r *LotRepo) ActiveTotals(ctx context.Context, f lots.Filter) ([]lots.Total, error) {
	q := postgres.Builder().
		Select("product_id", "warehouse_id", "SUM(quantity_available)::bigint AS quantity").
		From(lotsTable).
		Where(squirrel.Eq{"status": lots.StatusActive}).
		GroupBy("product_id", "warehouse_id").
		OrderBy("product_id", "warehouse_id")
	q = applyLotFilter(q, f)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build totals query: %w", err)
	}
	var totals []lots.Total
	if err := pgxscan.Select(ctx, r.table.Querier(ctx), &totals, sql, args...); err != nil {
		return nil, fmt.Errorf("lot totals: %w", err)
	}
	return totals, nil
}
