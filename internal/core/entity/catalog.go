package entity

import (
	"context"

	"almacen/internal/core/apperror"
	"almacen/internal/core/id"
)

// Catalog is the base type for reference data (products, warehouses, categories).
type Catalog struct {
	ID id.ID `db:"id" json:"id"`

	// Code is a human-readable identifier
	Code string `db:"code" json:"code"`

	// Name is the display name
	Name string `db:"name" json:"name"`
}

// NewCatalog creates a new Catalog with generated ID.
func NewCatalog(code, name string) Catalog {
	return Catalog{
		ID:   id.New(),
		Code: code,
		Name: name,
	}
}

// Validate implements Validatable interface.
func (c *Catalog) Validate(ctx context.Context) error {
	if c.Name == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}
	return nil
}
