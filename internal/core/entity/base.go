// Package entity provides the base fields shared by persisted records.
package entity

import (
	"context"
	"time"

	"almacen/internal/core/id"
)

// Validatable is implemented by entities that support self-validation.
// Validation checks internal invariants (without database access).
type Validatable interface {
	Validate(ctx context.Context) error
}

// BaseEntity contains the primary key and audit timestamps.
type BaseEntity struct {
	ID        id.ID     `db:"id" json:"id"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewBaseEntity creates a new BaseEntity with generated ID and timestamps.
func NewBaseEntity() BaseEntity {
	now := time.Now().UTC()
	return BaseEntity{
		ID:        id.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch updates the UpdatedAt timestamp.
func (b *BaseEntity) Touch() {
	b.UpdatedAt = time.Now().UTC()
}

// BaseDocument extends BaseEntity with a human-readable number and an optimistic lock version.
type BaseDocument struct {
	BaseEntity

	// Number is assigned by the numerator (e.g. ORD-2026-00001)
	Number string `db:"number" json:"number"`

	// Version is incremented on each update
	Version int `db:"version" json:"version"`

	CreatedBy string `db:"created_by" json:"createdBy,omitempty"`
}

// NewBaseDocument creates a new BaseDocument at version 1.
func NewBaseDocument(createdBy string) BaseDocument {
	return BaseDocument{
		BaseEntity: NewBaseEntity(),
		Version:    1,
		CreatedBy:  createdBy,
	}
}

// Touch updates the timestamp and increments version.
func (b *BaseDocument) Touch() {
	b.BaseEntity.Touch()
	b.Version++
}
