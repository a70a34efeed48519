package order

import (
	"github.com/shopspring/decimal"

	"almacen/internal/core/types"
)

// Totals are the monetary amounts of an order in one currency.
type Totals struct {
	Subtotal types.Money `json:"subtotal"`
	Tax      types.Money `json:"tax"`
	Shipping types.Money `json:"shipping"`
	Total    types.Money `json:"total"`
}

// Charges are the settings that turn a subtotal into totals.
type Charges struct {
	TaxRate               types.Money
	ShippingCost          types.Money
	FreeShippingThreshold types.Money
}

// ComputeTotals applies tax on the subtotal and adds shipping. Shipping is
// waived when a positive threshold is reached.
func ComputeTotals(subtotal types.Money, c Charges) Totals {
	tax := types.RoundDisplay(subtotal.Mul(c.TaxRate).Div(decimal.NewFromInt(100)))
	shipping := c.ShippingCost
	if c.FreeShippingThreshold.IsPositive() && subtotal.GreaterThanOrEqual(c.FreeShippingThreshold) {
		shipping = types.Zero()
	}
	subtotal = types.RoundDisplay(subtotal)
	shipping = types.RoundDisplay(shipping)
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    subtotal.Add(tax).Add(shipping),
	}
}

// Convert expresses the totals in another currency with convert applied to each amount.
// Total is re-added from the converted parts so it always equals their sum.
func (t Totals) Convert(convert func(types.Money) types.Money) Totals {
	out := Totals{
		Subtotal: convert(t.Subtotal),
		Tax:      convert(t.Tax),
		Shipping: convert(t.Shipping),
	}
	out.Total = out.Subtotal.Add(out.Tax).Add(out.Shipping)
	return out
}
