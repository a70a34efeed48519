package dto

import (
	"almacen/internal/core/id"
	"almacen/internal/core/types"
	"almacen/internal/domain/allocation"
	"almacen/internal/domain/pricing"
)

// SetPriceRequest sets the sale price of a pair.
type SetPriceRequest struct {
	SalePrice types.Money `json:"salePrice"`
}

// RepriceRequest derives the sale price from cost. A nil TargetMargin uses
// the product's normal margin.
type RepriceRequest struct {
	TargetMargin *types.Money `json:"targetMargin,omitempty"`
}

// EvaluateRequest checks a price against the margin floor. When UnitCost is
// nil the weighted-average cost of WarehouseID (global when nil) is used.
type EvaluateRequest struct {
	ProductID   id.ID        `json:"productId"`
	UnitPrice   types.Money  `json:"unitPrice"`
	UnitCost    *types.Money `json:"unitCost,omitempty"`
	WarehouseID *id.ID       `json:"warehouseId,omitempty"`
}

// EvaluateResponse is the margin of a price plus the policy in force.
type EvaluateResponse struct {
	pricing.Evaluation
	UnitCost       types.Money    `json:"unitCost"`
	Policy         pricing.Policy `json:"policy"`
	SuggestedPrice types.Money    `json:"suggestedPrice"`
}

// AllocationRequest previews the warehouse split of a set of items.
type AllocationRequest struct {
	Items []allocation.Request `json:"items"`
}

// AllocationResponse is a previewed plan.
type AllocationResponse struct {
	Plan allocation.Plan `json:"plan"`
}
