// Package catalog_repo provides PostgreSQL implementations of the catalog
// lookups: products, warehouses, categories, currencies and settings.
package catalog_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"almacen/internal/core/id"
	"almacen/internal/domain/catalogs/product"
	"almacen/internal/infrastructure/storage/postgres"
)

const productTable = "cat_products"

// ProductRepo implements product.Repository.
type ProductRepo struct {
	table *postgres.Table[product.Product]
}

var _ product.Repository = (*ProductRepo)(nil)

// NewProductRepo creates a new product repository.
func NewProductRepo(txm *postgres.TxManager) *ProductRepo {
	return &ProductRepo{table: postgres.NewTable[product.Product](txm, productTable)}
}

// Create inserts a product.
func (r *ProductRepo) Create(ctx context.Context, p *product.Product) error {
	return r.table.Insert(ctx, p)
}

// GetByID retrieves a product.
func (r *ProductRepo) GetByID(ctx context.Context, productID id.ID) (*product.Product, error) {
	var p product.Product
	q := r.table.Select().Where(squirrel.Eq{"id": productID})
	if err := r.table.Get(ctx, &p, q, "product", productID); err != nil {
		return nil, err
	}
	return &p, nil
}
