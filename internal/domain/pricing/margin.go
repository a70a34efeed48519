// Package pricing implements margin arithmetic and the minimum-margin floor
// inherited down the category tree.
package pricing

import (
	"github.com/shopspring/decimal"

	"almacen/internal/core/apperror"
	"almacen/internal/core/id"
	"almacen/internal/core/types"
	"almacen/internal/domain/catalogs/category"
)

var hundred = decimal.NewFromInt(100)

// CalculateMargin returns the markup over cost in percent: (price-cost)/cost*100.
// A non-positive cost has no defined margin and yields zero.
func CalculateMargin(unitPrice, unitCost types.Money) types.Money {
	if !unitCost.IsPositive() {
		return types.Zero()
	}
	return types.RoundStorage(unitPrice.Sub(unitCost).Div(unitCost).Mul(hundred))
}

// SuggestedPrice returns cost*(1+target/100).
func SuggestedPrice(cost, targetMarginPercent types.Money) types.Money {
	return types.RoundStorage(cost.Mul(decimal.NewFromInt(1).Add(targetMarginPercent.Div(hundred))))
}

// Policy is the margin pair in force for a category.
type Policy struct {
	NormalMargin types.Money `json:"normalMargin"`
	MinMargin    types.Money `json:"minMargin"`
}

// ResolvePolicy walks chain (category first, then ancestors) and takes, for each
// margin independently, the first value defined. Missing values fall back to def.
func ResolvePolicy(chain []*category.Category, def Policy) Policy {
	p := def
	var normalSet, minSet bool
	for _, c := range chain {
		if c == nil {
			continue
		}
		if !normalSet && c.NormalMarginPercentage != nil {
			p.NormalMargin = *c.NormalMarginPercentage
			normalSet = true
		}
		if !minSet && c.MinMarginPercentage != nil {
			p.MinMargin = *c.MinMarginPercentage
			minSet = true
		}
		if normalSet && minSet {
			break
		}
	}
	return p
}

// Evaluation is the margin of a price against the floor in force.
type Evaluation struct {
	Margin       types.Money `json:"margin"`
	MinMargin    types.Money `json:"minMargin"`
	BelowMinimum bool        `json:"belowMinimum"`
}

// Evaluate computes the margin of unitPrice over unitCost against minMargin.
func Evaluate(unitPrice, unitCost, minMargin types.Money) Evaluation {
	m := CalculateMargin(unitPrice, unitCost)
	return Evaluation{
		Margin:       m,
		MinMargin:    minMargin,
		BelowMinimum: m.LessThan(minMargin),
	}
}

// ValidateMinimum fails with LOW_MARGIN when the margin is under minMargin and
// the low-margin alert is enabled. With the alert disabled every price passes.
func ValidateMinimum(productID id.ID, unitPrice, unitCost, minMargin types.Money, alertEnabled bool) error {
	ev := Evaluate(unitPrice, unitCost, minMargin)
	if !alertEnabled || !ev.BelowMinimum {
		return nil
	}
	return apperror.NewLowMargin(productID.String(), types.RoundDisplay(ev.Margin), minMargin).
		WithDetail("unit_price", unitPrice).
		WithDetail("unit_cost", unitCost)
}
