package cart

import (
	"context"
	"fmt"
	"time"

	"almacen/internal/core/apperror"
	"almacen/internal/core/id"
	"almacen/internal/core/types"
	"almacen/internal/domain/catalogs/product"
)

// Repository stores one cart per user.
type Repository interface {
	// Get returns an empty cart when the user has none.
	Get(ctx context.Context, userID string) (*Cart, error)
	Save(ctx context.Context, cart *Cart) error
}

// Service edits carts. Stock is not checked here; checkout re-validates every line.
type Service struct {
	repo     Repository
	products product.Repository
	now      func() time.Time
}

// NewService creates a cart service.
func NewService(repo Repository, products product.Repository) *Service {
	return &Service{repo: repo, products: products, now: time.Now}
}

// Get returns the cart of a user.
func (s *Service) Get(ctx context.Context, userID string) (*Cart, error) {
	if userID == "" {
		return nil, apperror.NewValidation("user is required")
	}
	return s.repo.Get(ctx, userID)
}

// AddItem adds a product to a cart.
func (s *Service) AddItem(ctx context.Context, userID string, productID id.ID, qty types.Quantity) (*Cart, error) {
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return nil, err
	}
	return s.mutate(ctx, userID, func(c *Cart, now time.Time) error {
		return c.AddLine(productID, qty, now)
	})
}

// SetQuantity changes the quantity of a cart line.
func (s *Service) SetQuantity(ctx context.Context, userID string, productID id.ID, qty types.Quantity) (*Cart, error) {
	return s.mutate(ctx, userID, func(c *Cart, now time.Time) error {
		return c.SetQuantity(productID, qty, now)
	})
}

// RemoveItem removes a product from a cart.
func (s *Service) RemoveItem(ctx context.Context, userID string, productID id.ID) (*Cart, error) {
	return s.mutate(ctx, userID, func(c *Cart, now time.Time) error {
		if !c.RemoveLine(productID, now) {
			return apperror.NewNotFound("cart line", productID)
		}
		return nil
	})
}

// Clear empties a cart.
func (s *Service) Clear(ctx context.Context, userID string) error {
	_, err := s.mutate(ctx, userID, func(c *Cart, now time.Time) error {
		c.Clear(now)
		return nil
	})
	return err
}

func (s *Service) mutate(ctx context.Context, userID string, fn func(*Cart, time.Time) error) (*Cart, error) {
	c, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := fn(c, s.now().UTC()); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}
	return c, nil
}
