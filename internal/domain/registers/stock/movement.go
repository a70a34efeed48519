package stock

import (
	"time"

	"almacen/internal/core/apperror"
	"almacen/internal/core/id"
	"almacen/internal/core/types"
)

// MovementType classifies a stock movement.
type MovementType string

const (
	TypeIn         MovementType = "in"
	TypeOut        MovementType = "out"
	TypeTransfer   MovementType = "transfer"
	TypeAdjustment MovementType = "adjustment"

	// Reserve and release record changes of reserved stock. They never touch
	// available stock and are skipped when reconstructing it.
	TypeReserve MovementType = "reserve"
	TypeRelease MovementType = "release"
)

// AffectsAvailable reports whether movements of this type change available stock.
func (t MovementType) AffectsAvailable() bool {
	switch t {
	case TypeIn, TypeOut, TypeTransfer, TypeAdjustment:
		return true
	}
	return false
}

// Valid reports whether t is a known type.
func (t MovementType) Valid() bool {
	return t.AffectsAvailable() || t == TypeReserve || t == TypeRelease
}

// Business references that cause movements.
const (
	RefPurchase     = "purchase"
	RefSale         = "sale"
	RefOrder        = "order"
	RefTransfer     = "transfer"
	RefAdjustment   = "adjustment"
	RefCancellation = "cancellation"
	RefSync         = "sync"
)

// Movement is an append-only ledger entry. Quantity is signed: positive adds
// to the warehouse, negative takes from it.
type Movement struct {
	ID          id.ID        `db:"id" json:"id"`
	ProductID   id.ID        `db:"product_id" json:"productId"`
	WarehouseID id.ID        `db:"warehouse_id" json:"warehouseId"`
	LotID       *id.ID       `db:"lot_id" json:"lotId,omitempty"`
	Type        MovementType `db:"movement_type" json:"type"`

	Quantity types.Quantity `db:"quantity" json:"quantity"`
	UnitCost types.Money    `db:"unit_cost" json:"unitCost"`

	ReferenceType string `db:"reference_type" json:"referenceType"`
	ReferenceID   string `db:"reference_id" json:"referenceId"`
	Notes         string `db:"notes" json:"notes,omitempty"`

	Actor      string    `db:"actor" json:"actor"`
	OccurredAt time.Time `db:"occurred_at" json:"occurredAt"`
}

// Validate checks a movement before it is appended.
func (m *Movement) Validate() error {
	if !m.Type.Valid() {
		return apperror.NewValidation("unknown movement type").WithDetail("type", m.Type)
	}
	if id.IsNil(m.ProductID) || id.IsNil(m.WarehouseID) {
		return apperror.NewValidation("movement product and warehouse are required")
	}
	if m.Quantity.IsZero() {
		return apperror.NewValidation("movement quantity must not be zero")
	}
	if m.Type == TypeIn && m.Quantity.IsNegative() {
		return apperror.NewValidation("inbound movement must be positive").WithDetail("quantity", m.Quantity)
	}
	if m.Type == TypeOut && m.Quantity.IsPositive() {
		return apperror.NewValidation("outbound movement must be negative").WithDetail("quantity", m.Quantity)
	}
	if m.ReferenceType == "" || m.ReferenceID == "" {
		return apperror.NewValidation("movement reference is required")
	}
	if m.UnitCost.IsNegative() {
		return apperror.NewValidation("movement unit cost must not be negative")
	}
	return nil
}

// Reconstruct sums the movements that change available stock.
func Reconstruct(movements []Movement) types.Quantity {
	var total types.Quantity
	for _, m := range movements {
		if m.Type.AffectsAvailable() {
			total += m.Quantity
		}
	}
	return total
}
