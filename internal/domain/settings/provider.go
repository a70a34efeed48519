// Package settings exposes the group/key business settings consumed by pricing and checkout.
package settings

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"almacen/internal/core/types"
)

// Groups and keys read by this module.
const (
	GroupPricing = "pricing"
	GroupSales   = "sales"

	KeyDefaultMargin    = "default_margin"
	KeyDefaultMinMargin = "default_min_margin"
	KeyAlertLowMargin   = "alert_low_margin"

	KeyTaxRate               = "tax_rate"
	KeyShippingCost          = "shipping_cost"
	KeyFreeShippingThreshold = "free_shipping_threshold"
)

// Defaults applied when a setting row is missing.
var (
	DefaultMargin    = types.MustMoney("30")
	DefaultMinMargin = types.MustMoney("10")
	DefaultTaxRate   = types.MustMoney("18")
)

// Provider resolves a raw setting value. ok is false when the key is not set.
type Provider interface {
	Get(ctx context.Context, group, key string) (value string, ok bool, err error)
}

// Decimal reads a numeric setting, falling back to def when missing.
func Decimal(ctx context.Context, p Provider, group, key string, def types.Money) (types.Money, error) {
	raw, ok, err := p.Get(ctx, group, key)
	if err != nil {
		return def, fmt.Errorf("get setting %s.%s: %w", group, key, err)
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return def, nil
	}
	v, err := types.NewMoneyFromString(strings.TrimSpace(raw))
	if err != nil {
		return def, fmt.Errorf("parse setting %s.%s: %w", group, key, err)
	}
	return v, nil
}

// Bool reads a boolean setting ("1", "true", "yes", "on"), falling back to def when missing.
func Bool(ctx context.Context, p Provider, group, key string, def bool) (bool, error) {
	raw, ok, err := p.Get(ctx, group, key)
	if err != nil {
		return def, fmt.Errorf("get setting %s.%s: %w", group, key, err)
	}
	if !ok {
		return def, nil
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yes", "on":
		return true, nil
	case "no", "off", "":
		return false, nil
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return def, fmt.Errorf("parse setting %s.%s: %w", group, key, err)
	}
	return v, nil
}

// Static is a fixed in-memory Provider keyed by "group.key".
type Static map[string]string

// Get implements Provider.
func (s Static) Get(_ context.Context, group, key string) (string, bool, error) {
	v, ok := s[group+"."+key]
	return v, ok, nil
}
