// Package product provides read access to the sellable items referenced by inventory.
package product

import (
	"context"

	"almacen/internal/core/entity"
	"almacen/internal/core/id"
	"almacen/internal/core/types"
)

// Product is a sellable item. Catalog CRUD lives outside this module.
type Product struct {
	entity.Catalog

	// SKU is the stock keeping unit (entity.Catalog.Code holds the internal code)
	SKU string `db:"sku" json:"sku"`

	// CategoryID drives margin policy inheritance
	CategoryID *id.ID `db:"category_id" json:"categoryId,omitempty"`

	// MinStock is the reorder threshold
	MinStock types.Quantity `db:"min_stock" json:"minStock"`
}

// Repository defines read access to products.
type Repository interface {
	GetByID(ctx context.Context, id id.ID) (*Product, error)
}
