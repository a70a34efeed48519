// Package register_repo provides PostgreSQL implementations of the stock
// registers: lots, inventory records and the movement log.
package register_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"almacen/internal/core/id"
	"almacen/internal/domain/registers/stock"
	"almacen/internal/infrastructure/storage/postgres"
)

const movementsTable = "reg_stock_movements"

// MovementRepo implements stock.Repository.
type MovementRepo struct {
	txm      *postgres.TxManager
	table    *postgres.Table[stock.Movement]
	inserter *postgres.BatchInserter
}

var _ stock.Repository = (*MovementRepo)(nil)

// NewMovementRepo creates a new movement repository.
func NewMovementRepo(txm *postgres.TxManager) *MovementRepo {
	return &MovementRepo{
		txm:      txm,
		table:    postgres.NewTable[stock.Movement](txm, movementsTable),
		inserter: postgres.NewBatchInserter(txm),
	}
}

func movementRow(m stock.Movement) []any {
	return []any{
		m.ID, m.ProductID, m.WarehouseID, m.LotID, string(m.Type),
		int64(m.Quantity), postgres.Numeric(m.UnitCost),
		m.ReferenceType, m.ReferenceID, m.Notes, m.Actor, m.OccurredAt,
	}
}

var movementColumns = []string{
	"id", "product_id", "warehouse_id", "lot_id", "movement_type",
	"quantity", "unit_cost",
	"reference_type", "reference_id", "notes", "actor", "occurred_at",
}

// Append inserts movements in one batch.
func (r *MovementRepo) Append(ctx context.Context, movements []stock.Movement) error {
	if len(movements) == 0 {
		return nil
	}

	// Fast path: COPY when inside a transaction.
	if r.txm.GetTx(ctx) != nil {
		rows := make([][]any, 0, len(movements))
		for _, m := range movements {
			rows = append(rows, movementRow(m))
		}
		if _, err := r.inserter.CopyFromSlice(ctx, movementsTable, movementColumns, rows); err != nil {
			return fmt.Errorf("copy movements: %w", err)
		}
		return nil
	}

	q := postgres.Builder().Insert(movementsTable).Columns(movementColumns...)
	for _, m := range movements {
		q = q.Values(movementRow(m)...)
	}
	if _, err := r.table.Exec(ctx, q); err != nil {
		return fmt.Errorf("insert movements: %w", err)
	}
	return nil
}

// History returns movements of a product, newest first.
func (r *MovementRepo) History(ctx context.Context, productID id.ID, f stock.MovementFilter) ([]stock.Movement, error) {
	q := r.table.Select().
		Where(squirrel.Eq{"product_id": productID}).
		OrderBy("occurred_at DESC", "id DESC")

	if f.WarehouseID != nil {
		q = q.Where(squirrel.Eq{"warehouse_id": *f.WarehouseID})
	}
	if f.Type != nil {
		q = q.Where(squirrel.Eq{"movement_type": string(*f.Type)})
	}
	if f.ReferenceType != "" {
		q = q.Where(squirrel.Eq{"reference_type": f.ReferenceType})
	}
	if f.ReferenceID != "" {
		q = q.Where(squirrel.Eq{"reference_id": f.ReferenceID})
	}
	if f.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"occurred_at": *f.FromDate})
	}
	if f.ToDate != nil {
		q = q.Where(squirrel.Lt{"occurred_at": *f.ToDate})
	}
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		q = q.Offset(uint64(f.Offset))
	}

	rows, err := r.table.List(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]stock.Movement, 0, len(rows))
	for _, m := range rows {
		out = append(out, *m)
	}
	return out, nil
}
