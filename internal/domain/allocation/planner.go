package allocation

import (
	"context"
	"fmt"

	"almacen/internal/core/id"
	"almacen/internal/domain/catalogs/warehouse"
)

// StockReader returns free stock (available minus reserved) for the given products.
type StockReader interface {
	StockLevels(ctx context.Context, productIDs []id.ID) ([]StockLevel, error)
}

// Planner reads the warehouse ranking and a stock snapshot, then builds a plan.
// Reads are not locked; reservation re-checks every entry under a row lock.
type Planner struct {
	warehouses warehouse.Repository
	stock      StockReader
}

// NewPlanner creates an allocation planner.
func NewPlanner(warehouses warehouse.Repository, stock StockReader) *Planner {
	return &Planner{warehouses: warehouses, stock: stock}
}

// Plan allocates requests across active warehouses.
func (p *Planner) Plan(ctx context.Context, requests []Request) (Plan, error) {
	merged, err := Merge(requests)
	if err != nil {
		return nil, err
	}

	whs, err := p.warehouses.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list warehouses: %w", err)
	}

	productIDs := make([]id.ID, 0, len(merged))
	for _, r := range merged {
		productIDs = append(productIDs, r.ProductID)
	}
	levels, err := p.stock.StockLevels(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("read stock levels: %w", err)
	}

	return Build(merged, whs, levels)
}

// MainWarehouse returns the first warehouse in picking order, or nil when none is active.
func (p *Planner) MainWarehouse(ctx context.Context) (*warehouse.Warehouse, error) {
	whs, err := p.warehouses.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list warehouses: %w", err)
	}
	if len(whs) == 0 {
		return nil, nil
	}
	warehouse.SortForAllocation(whs)
	return whs[0], nil
}
