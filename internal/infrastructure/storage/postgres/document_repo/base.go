// Package document_repo provides PostgreSQL implementations of the document
// repositories: carts, orders, sales and quotations.
package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"almacen/internal/core/id"
	"almacen/internal/infrastructure/storage/postgres"
)

// insertLines writes document lines in one multi-row INSERT.
func insertLines[T any](ctx context.Context, tbl *postgres.Table[T], lines []T) error {
	if len(lines) == 0 {
		return nil
	}
	cols := tbl.Columns()
	q := postgres.Builder().Insert(tbl.Name()).Columns(cols...)
	for i := range lines {
		q = q.Values(tbl.Args(&lines[i])...)
	}
	if _, err := tbl.Exec(ctx, q); err != nil {
		return fmt.Errorf("insert %s: %w", tbl.Name(), err)
	}
	return nil
}

// replaceLines deletes the lines of a document and writes the given ones.
func replaceLines[T any](ctx context.Context, tbl *postgres.Table[T], parentCol string, parentID id.ID, lines []T) error {
	del := postgres.Builder().Delete(tbl.Name()).Where(squirrel.Eq{parentCol: parentID})
	if _, err := tbl.Exec(ctx, del); err != nil {
		return fmt.Errorf("delete %s: %w", tbl.Name(), err)
	}
	return insertLines(ctx, tbl, lines)
}

// listLines loads the lines of a document ordered by orderBy.
func listLines[T any](ctx context.Context, tbl *postgres.Table[T], parentCol string, parentID id.ID, orderBy ...string) ([]T, error) {
	rows, err := tbl.List(ctx, tbl.Select().Where(squirrel.Eq{parentCol: parentID}).OrderBy(orderBy...))
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		out = append(out, *r)
	}
	return out, nil
}
