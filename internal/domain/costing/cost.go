// Package costing computes weighted-average unit costs from active lots.
package costing

import (
	"context"
	"fmt"

	"almacen/internal/core/id"
	"almacen/internal/core/types"
	"almacen/internal/domain/lots"
)

// WeightedAverage returns Σ(available·price) / Σ(available) over active lots,
// rounded to storage precision. It is zero when no lot has stock.
func WeightedAverage(active []*lots.Lot) types.Money {
	var qty types.Quantity
	total := types.Zero()
	for _, l := range active {
		if !l.IsActive() || !l.QuantityAvailable.IsPositive() {
			continue
		}
		qty += l.QuantityAvailable
		total = total.Add(l.QuantityAvailable.Decimal().Mul(l.PurchasePrice))
	}
	if qty.IsZero() {
		return types.Zero()
	}
	return types.RoundStorage(total.Div(qty.Decimal()))
}

// Display rounds a stored cost for presentation.
func Display(cost types.Money) types.Money { return types.RoundDisplay(cost) }

// LotReader is the slice of the lot ledger the cost engine needs.
type LotReader interface {
	ActiveLots(ctx context.Context, productID id.ID, warehouseID *id.ID) ([]*lots.Lot, error)
}

// Engine reads lots and computes costs. It never writes.
type Engine struct {
	lots LotReader
}

// NewEngine creates a cost engine.
func NewEngine(lots LotReader) *Engine {
	return &Engine{lots: lots}
}

// WeightedAverageCost returns the cost of a product in one warehouse, or across
// every warehouse when warehouseID is nil.
func (e *Engine) WeightedAverageCost(ctx context.Context, productID id.ID, warehouseID *id.ID) (types.Money, error) {
	active, err := e.lots.ActiveLots(ctx, productID, warehouseID)
	if err != nil {
		return types.Zero(), fmt.Errorf("load active lots: %w", err)
	}
	return WeightedAverage(active), nil
}
