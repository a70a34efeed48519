package catalog_repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/georgysavva/scany/v2/pgxscan"

	"almacen/internal/core/apperror"
	"almacen/internal/core/id"
	"almacen/internal/domain/catalogs/category"
	"almacen/internal/infrastructure/storage/postgres"
)

const categoryTable = "cat_categories"

// CategoryRepo implements category.Repository.
type CategoryRepo struct {
	table *postgres.Table[category.Category]
}

var _ category.Repository = (*CategoryRepo)(nil)

// NewCategoryRepo creates a new category repository.
func NewCategoryRepo(txm *postgres.TxManager) *CategoryRepo {
	return &CategoryRepo{table: postgres.NewTable[category.Category](txm, categoryTable)}
}

// Create inserts a category.
func (r *CategoryRepo) Create(ctx context.Context, c *category.Category) error {
	return r.table.Insert(ctx, c)
}

// GetChain walks parent links upward with a recursive CTE, nearest first.
func (r *CategoryRepo) GetChain(ctx context.Context, categoryID id.ID) ([]*category.Category, error) {
	cols := r.table.Columns()
	prefixed := make([]string, len(cols))
	for i, c := range cols {
		prefixed[i] = "p." + c
	}

	sql := fmt.Sprintf(`
		WITH RECURSIVE chain AS (
			SELECT %[1]s, 1 AS depth FROM %[2]s WHERE id = $1
			UNION ALL
			SELECT %[3]s, chain.depth + 1
			FROM %[2]s p
			JOIN chain ON p.id = chain.parent_id
			WHERE chain.depth < $2
		)
		SELECT %[1]s FROM chain ORDER BY depth`,
		strings.Join(cols, ", "), categoryTable, strings.Join(prefixed, ", "))

	var chain []*category.Category
	if err := pgxscan.Select(ctx, r.table.Querier(ctx), &chain, sql, categoryID, category.MaxDepth); err != nil {
		return nil, fmt.Errorf("category chain: %w", err)
	}
	if len(chain) == 0 {
		return nil, apperror.NewNotFound("category", categoryID)
	}
	return chain, nil
}
