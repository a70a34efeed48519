// Package allocation splits requested quantities across warehouses in
// picking order. Planning has no side effects.
package allocation

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"almacen/internal/core/apperror"
	"almacen/internal/core/id"
	"almacen/internal/core/types"
	"almacen/internal/domain/catalogs/warehouse"
)

// Request asks for a quantity of one product.
type Request struct {
	ProductID id.ID          `json:"productId"`
	Quantity  types.Quantity `json:"quantity"`
}

// StockLevel is the free stock of a product in a warehouse at planning time.
type StockLevel struct {
	ProductID   id.ID
	WarehouseID id.ID
	Free        types.Quantity
}

// Entry is the share of a product taken from one warehouse.
type Entry struct {
	WarehouseID   id.ID          `json:"warehouse_id"`
	WarehouseName string         `json:"warehouse_name"`
	Quantity      types.Quantity `json:"quantity"`
}

// ProductAllocation is the ordered split of one product.
type ProductAllocation struct {
	ProductID  id.ID   `json:"product_id"`
	Allocation []Entry `json:"allocation"`
}

// Total returns the allocated quantity.
func (a ProductAllocation) Total() types.Quantity {
	var q types.Quantity
	for _, e := range a.Allocation {
		q += e.Quantity
	}
	return q
}

// Plan is the allocation of every requested product, in request order.
// It is stored on orders as JSON.
type Plan []ProductAllocation

// Line is one (product, warehouse, quantity) step of a plan.
type Line struct {
	ProductID   id.ID
	WarehouseID id.ID
	Quantity    types.Quantity
}

// Merge validates requests and folds duplicates of a product into one request,
// keeping the position of its first occurrence.
func Merge(requests []Request) ([]Request, error) {
	if len(requests) == 0 {
		return nil, apperror.NewValidation("at least one product is required")
	}

	index := make(map[id.ID]int, len(requests))
	merged := make([]Request, 0, len(requests))
	for _, r := range requests {
		if id.IsNil(r.ProductID) {
			return nil, apperror.NewValidation("product is required")
		}
		if !r.Quantity.IsPositive() {
			return nil, apperror.NewValidation("requested quantity must be positive").
				WithDetail("product_id", r.ProductID.String()).
				WithDetail("quantity", r.Quantity)
		}
		if i, ok := index[r.ProductID]; ok {
			merged[i].Quantity += r.Quantity
			continue
		}
		index[r.ProductID] = len(merged)
		merged = append(merged, r)
	}
	return merged, nil
}

// Build plans requests against a stock snapshot. Inactive warehouses are skipped.
// It fails with INSUFFICIENT_GLOBAL_STOCK for the first product that cannot be
// covered, returning no partial plan.
func Build(requests []Request, warehouses []*warehouse.Warehouse, levels []StockLevel) (Plan, error) {
	merged, err := Merge(requests)
	if err != nil {
		return nil, err
	}

	ordered := make([]*warehouse.Warehouse, 0, len(warehouses))
	for _, w := range warehouses {
		if w != nil && w.IsActive {
			ordered = append(ordered, w)
		}
	}
	warehouse.SortForAllocation(ordered)

	type key struct{ product, warehouse id.ID }
	free := make(map[key]types.Quantity, len(levels))
	for _, l := range levels {
		free[key{l.ProductID, l.WarehouseID}] += l.Free
	}

	plan := make(Plan, 0, len(merged))
	for _, r := range merged {
		remaining := r.Quantity
		var available types.Quantity
		pa := ProductAllocation{ProductID: r.ProductID}

		for _, w := range ordered {
			stock := free[key{r.ProductID, w.ID}]
			if !stock.IsPositive() {
				continue
			}
			available += stock
			if remaining.IsZero() {
				continue
			}
			take := types.MinQuantity(remaining, stock)
			pa.Allocation = append(pa.Allocation, Entry{
				WarehouseID:   w.ID,
				WarehouseName: w.Name,
				Quantity:      take,
			})
			remaining -= take
		}

		if remaining.IsPositive() {
			return nil, apperror.NewInsufficientGlobalStock(r.ProductID.String(), r.Quantity, available)
		}
		plan = append(plan, pa)
	}
	return plan, nil
}

// For returns the allocation of a product.
func (p Plan) For(productID id.ID) (ProductAllocation, bool) {
	for _, a := range p {
		if a.ProductID == productID {
			return a, true
		}
	}
	return ProductAllocation{}, false
}

// IsSplit reports whether a product is sourced from more than one warehouse.
func (p Plan) IsSplit(productID id.ID) bool {
	a, ok := p.For(productID)
	return ok && len(a.Allocation) > 1
}

// Lines flattens the plan ordered by product then warehouse id, the order in
// which inventory rows are locked.
func (p Plan) Lines() []Line {
	var lines []Line
	for _, a := range p {
		for _, e := range a.Allocation {
			lines = append(lines, Line{ProductID: a.ProductID, WarehouseID: e.WarehouseID, Quantity: e.Quantity})
		}
	}
	sort.SliceStable(lines, func(i, j int) bool {
		if lines[i].ProductID != lines[j].ProductID {
			return id.Less(lines[i].ProductID, lines[j].ProductID)
		}
		return id.Less(lines[i].WarehouseID, lines[j].WarehouseID)
	})
	return lines
}

// Notes describes products that are split or picked outside the main warehouse.
// names maps product ids to display names; missing names fall back to the id.
func (p Plan) Notes(mainWarehouseID id.ID, names map[id.ID]string) []string {
	var notes []string
	for _, a := range p {
		if len(a.Allocation) == 0 {
			continue
		}
		if len(a.Allocation) == 1 && a.Allocation[0].WarehouseID == mainWarehouseID {
			continue
		}

		name := names[a.ProductID]
		if name == "" {
			name = a.ProductID.String()
		}
		parts := make([]string, 0, len(a.Allocation))
		for _, e := range a.Allocation {
			parts = append(parts, fmt.Sprintf("%s from %s", e.Quantity, e.WarehouseName))
		}
		notes = append(notes, fmt.Sprintf("%s: %s", name, strings.Join(parts, ", ")))
	}
	return notes
}

// JSON encodes the plan for storage.
func (p Plan) JSON() ([]byte, error) {
	if p == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(p)
}

// ParsePlan decodes a stored plan.
func ParsePlan(data []byte) (Plan, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var p Plan
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse allocation plan: %w", err)
	}
	return p, nil
}

// Scan implements sql.Scanner for the jsonb allocation column.
func (p *Plan) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*p = nil
		return nil
	case []byte:
		parsed, err := ParsePlan(v)
		*p = parsed
		return err
	case string:
		parsed, err := ParsePlan([]byte(v))
		*p = parsed
		return err
	default:
		return fmt.Errorf("unsupported type for Plan: %T", src)
	}
}

// Value implements driver.Valuer.
func (p Plan) Value() (driver.Value, error) {
	return p.JSON()
}
