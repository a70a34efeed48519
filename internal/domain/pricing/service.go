package pricing

import (
	"context"
	"fmt"

	"almacen/internal/core/id"
	"almacen/internal/core/types"
	"almacen/internal/domain/catalogs/category"
	"almacen/internal/domain/catalogs/product"
	"almacen/internal/domain/settings"
)

// Service resolves category margin policy and applies the floor.
type Service struct {
	categories category.Repository
	products   product.Repository
	settings   settings.Provider
}

// NewService creates a pricing service.
func NewService(categories category.Repository, products product.Repository, provider settings.Provider) *Service {
	return &Service{
		categories: categories,
		products:   products,
		settings:   provider,
	}
}

// DefaultPolicy reads the system-wide margins.
func (s *Service) DefaultPolicy(ctx context.Context) (Policy, error) {
	normal, err := settings.Decimal(ctx, s.settings, settings.GroupPricing, settings.KeyDefaultMargin, settings.DefaultMargin)
	if err != nil {
		return Policy{}, err
	}
	minimum, err := settings.Decimal(ctx, s.settings, settings.GroupPricing, settings.KeyDefaultMinMargin, settings.DefaultMinMargin)
	if err != nil {
		return Policy{}, err
	}
	return Policy{NormalMargin: normal, MinMargin: minimum}, nil
}

// EffectivePolicy resolves the margins in force for a category.
// A nil category gets the system default.
func (s *Service) EffectivePolicy(ctx context.Context, categoryID *id.ID) (Policy, error) {
	def, err := s.DefaultPolicy(ctx)
	if err != nil {
		return Policy{}, err
	}
	if categoryID == nil {
		return def, nil
	}

	chain, err := s.categories.GetChain(ctx, *categoryID)
	if err != nil {
		return Policy{}, fmt.Errorf("load category chain: %w", err)
	}
	return ResolvePolicy(chain, def), nil
}

// EffectiveMinMargin returns the minimum margin in force for a category.
func (s *Service) EffectiveMinMargin(ctx context.Context, categoryID *id.ID) (types.Money, error) {
	p, err := s.EffectivePolicy(ctx, categoryID)
	return p.MinMargin, err
}

// EffectiveNormalMargin returns the target margin in force for a category.
func (s *Service) EffectiveNormalMargin(ctx context.Context, categoryID *id.ID) (types.Money, error) {
	p, err := s.EffectivePolicy(ctx, categoryID)
	return p.NormalMargin, err
}

// ProductPolicy resolves the policy of a product's category.
func (s *Service) ProductPolicy(ctx context.Context, productID id.ID) (Policy, error) {
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return Policy{}, err
	}
	return s.EffectivePolicy(ctx, p.CategoryID)
}

// AlertEnabled reports whether the low-margin floor is enforced.
func (s *Service) AlertEnabled(ctx context.Context) (bool, error) {
	return settings.Bool(ctx, s.settings, settings.GroupPricing, settings.KeyAlertLowMargin, true)
}

// Evaluate computes a product price's margin against its category floor without failing.
func (s *Service) Evaluate(ctx context.Context, productID id.ID, unitPrice, unitCost types.Money) (Evaluation, error) {
	policy, err := s.ProductPolicy(ctx, productID)
	if err != nil {
		return Evaluation{}, err
	}
	return Evaluate(unitPrice, unitCost, policy.MinMargin), nil
}

// ValidateMinimum enforces the floor for a product price.
func (s *Service) ValidateMinimum(ctx context.Context, productID id.ID, unitPrice, unitCost types.Money) error {
	policy, err := s.ProductPolicy(ctx, productID)
	if err != nil {
		return err
	}
	alert, err := s.AlertEnabled(ctx)
	if err != nil {
		return err
	}
	return ValidateMinimum(productID, unitPrice, unitCost, policy.MinMargin, alert)
}
