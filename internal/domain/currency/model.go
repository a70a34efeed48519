// Package currency converts base-currency amounts into the display currency
// chosen at checkout.
package currency

import (
	"context"
	"regexp"
	"strings"

	"almacen/internal/core/apperror"
	"almacen/internal/core/types"
)

var isoCode = regexp.MustCompile(`^[A-Z]{3}$`)

// Currency is a monetary unit with its rate against the base currency.
// ExchangeRate is the base amount worth one unit of this currency; the base
// currency has rate 1.
type Currency struct {
	Code          string      `db:"code" json:"code"`
	Name          string      `db:"name" json:"name"`
	Symbol        string      `db:"symbol" json:"symbol"`
	DecimalPlaces int         `db:"decimal_places" json:"decimalPlaces"`
	IsBase        bool        `db:"is_base" json:"isBase"`
	ExchangeRate  types.Money `db:"exchange_rate" json:"exchangeRate"`
}

// Validate checks a currency definition.
func (c *Currency) Validate(ctx context.Context) error {
	if !isoCode.MatchString(c.Code) {
		return apperror.NewValidation("currency code must be 3 uppercase letters").
			WithDetail("field", "code").
			WithDetail("value", c.Code)
	}
	if c.DecimalPlaces < 0 || c.DecimalPlaces > 8 {
		return apperror.NewValidation("decimal places must be between 0 and 8").
			WithDetail("field", "decimalPlaces")
	}
	if !c.ExchangeRate.IsPositive() {
		return apperror.NewValidation("exchange rate must be positive").
			WithDetail("field", "exchangeRate")
	}
	return nil
}

// Format renders amount with the currency symbol.
func (c *Currency) Format(amount types.Money) string {
	return c.Symbol + amount.StringFixed(int32(c.DecimalPlaces))
}

// NormalizeCode upper-cases and trims a currency code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// FromBase converts a base amount using rate: amount ÷ rate, rounded for display.
func FromBase(amount, rate types.Money) types.Money {
	if rate.IsZero() {
		return types.RoundDisplay(amount)
	}
	return types.RoundDisplay(amount.Div(rate))
}
