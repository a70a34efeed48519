// Package category provides the category hierarchy that carries margin policy.
package category

import (
	"context"

	"almacen/internal/core/entity"
	"almacen/internal/core/id"
	"almacen/internal/core/types"
)

// MaxDepth is the deepest supported level (root = 1).
const MaxDepth = 3

// Category is a node of the product category tree.
// Nil margins are inherited from the nearest ancestor that defines them.
type Category struct {
	entity.Catalog

	ParentID *id.ID `db:"parent_id" json:"parentId,omitempty"`
	Level    int    `db:"level" json:"level"`

	NormalMarginPercentage *types.Money `db:"normal_margin_percentage" json:"normalMarginPercentage,omitempty"`
	MinMarginPercentage    *types.Money `db:"min_margin_percentage" json:"minMarginPercentage,omitempty"`
}

// Repository defines read access to categories.
type Repository interface {
	// GetChain returns the category followed by its ancestors, nearest first.
	// The chain has at most MaxDepth elements.
	GetChain(ctx context.Context, categoryID id.ID) ([]*Category, error)
}
