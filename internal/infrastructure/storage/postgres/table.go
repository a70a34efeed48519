package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"almacen/internal/core/apperror"
)

// PostgreSQL error codes mapped to application errors.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgLockNotAvailable    = "55P03"
)

// Builder returns a squirrel builder with PostgreSQL placeholders.
func Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// MapError converts constraint violations into application errors and
// wraps everything else with op.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return apperror.NewConflict(op+": duplicate record").
				WithDetail("constraint", pgErr.ConstraintName)
		case pgForeignKeyViolation:
			return apperror.NewValidation(op+": referenced record does not exist").
				WithDetail("constraint", pgErr.ConstraintName)
		case pgCheckViolation:
			return apperror.NewValidation(op+": value out of range").
				WithDetail("constraint", pgErr.ConstraintName)
		case pgLockNotAvailable:
			// lock_timeout expired on a row another checkout holds
			return apperror.NewConflict(op + ": record is locked by another operation, retry")
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Table is the CRUD plumbing shared by the repositories of one table.
// Columns come from the "db" tags of T, embedded structs included.
type Table[T any] struct {
	txm     *TxManager
	name    string
	columns []string
}

// NewTable creates a table helper for T.
func NewTable[T any](txm *TxManager, name string) *Table[T] {
	return &Table[T]{
		txm:     txm,
		name:    name,
		columns: ExtractDBColumns[T](),
	}
}

// Name returns the table name.
func (t *Table[T]) Name() string { return t.name }

// Columns returns the mapped columns.
func (t *Table[T]) Columns() []string { return t.columns }

// Querier returns the transaction in ctx or the pool.
func (t *Table[T]) Querier(ctx context.Context) Querier {
	return t.txm.GetQuerier(ctx)
}

// Select starts a SELECT of every mapped column.
func (t *Table[T]) Select() squirrel.SelectBuilder {
	return Builder().Select(t.columns...).From(t.name)
}

// values returns the mapped columns of v, skipping the excluded ones.
func (t *Table[T]) values(v *T, exclude ...string) map[string]any {
	data := StructToMap(v)
	out := make(map[string]any, len(t.columns))
	for _, col := range t.columns {
		if contains(exclude, col) {
			continue
		}
		if val, ok := data[col]; ok {
			out[col] = val
		}
	}
	return out
}

// Insert writes v.
func (t *Table[T]) Insert(ctx context.Context, v *T) error {
	sql, args, err := Builder().Insert(t.name).SetMap(t.values(v)).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := t.Querier(ctx).Exec(ctx, sql, args...); err != nil {
		return MapError("insert "+t.name, err)
	}
	return nil
}

// Args returns the values of v in Columns order.
func (t *Table[T]) Args(v *T) []any { return rowArgs(v, t.columns) }

// UpdateVersioned writes every column except the write-once header columns
// where the stored version equals expected. It fails with
// CONCURRENT_MODIFICATION otherwise.
func (t *Table[T]) UpdateVersioned(ctx context.Context, v *T, entityID any, expected int) error {
	q := Builder().
		Update(t.name).
		SetMap(t.values(v, writeOnceColumns...)).
		Where(squirrel.Eq{"id": entityID}).
		Where(squirrel.Eq{"version": expected})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	tag, err := t.Querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return MapError("update "+t.name, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification(t.name, entityID)
	}
	return nil
}

// Get scans the single row of q into dst. A missing row becomes NotFound(entity, key).
func (t *Table[T]) Get(ctx context.Context, dst *T, q squirrel.Sqlizer, entity string, key any) error {
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Get(ctx, t.Querier(ctx), dst, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return apperror.NewNotFound(entity, key)
		}
		return MapError("get "+t.name, err)
	}
	return nil
}

// List scans every row of q.
func (t *Table[T]) List(ctx context.Context, q squirrel.Sqlizer) ([]*T, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var out []*T
	if err := pgxscan.Select(ctx, t.Querier(ctx), &out, sql, args...); err != nil {
		return nil, MapError("list "+t.name, err)
	}
	return out, nil
}

// Exec runs a statement built elsewhere and returns the affected row count.
func (t *Table[T]) Exec(ctx context.Context, q squirrel.Sqlizer) (int64, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build statement: %w", err)
	}
	tag, err := t.Querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, MapError("exec "+t.name, err)
	}
	return tag.RowsAffected(), nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
