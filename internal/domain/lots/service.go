package lots

import (
	"context"
	"fmt"

	"almacen/internal/core/apperror"
	"almacen/internal/core/id"
	"almacen/internal/core/tx"
	"almacen/internal/core/types"
	"almacen/pkg/logger"
)

// Service is the only writer of lot rows.
type Service struct {
	repo      Repository
	txManager tx.Manager
}

// NewService creates a lot ledger service.
func NewService(repo Repository, txManager tx.Manager) *Service {
	return &Service{repo: repo, txManager: txManager}
}

// CreateLot records a new active lot.
func (s *Service) CreateLot(ctx context.Context, req NewLot) (*Lot, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	lot := req.Build()
	if err := s.repo.Create(ctx, lot); err != nil {
		return nil, fmt.Errorf("create lot: %w", err)
	}

	logger.Debug(ctx, "lot created",
		"lot_id", lot.ID,
		"product_id", lot.ProductID,
		"warehouse_id", lot.WarehouseID,
		"quantity", lot.QuantityPurchased,
		"origin", lot.Origin,
	)
	return lot, nil
}

// ConsumeFIFO depletes the oldest active lots of a product in a warehouse.
// Fails with INSUFFICIENT_LOT_STOCK, leaving every lot untouched, when the
// active lots hold less than qty.
func (s *Service) ConsumeFIFO(ctx context.Context, productID, warehouseID id.ID, qty types.Quantity) ([]Consumption, error) {
	if !qty.IsPositive() {
		return nil, apperror.NewValidation("quantity to consume must be positive").
			WithDetail("quantity", qty)
	}

	var used []Consumption
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		active, err := s.repo.ListActiveForUpdate(ctx, productID, warehouseID)
		if err != nil {
			return fmt.Errorf("lock lots: %w", err)
		}

		consumed, changed, ok := ConsumeFIFO(active, qty)
		if !ok {
			return apperror.NewInsufficientLotStock(
				productID.String(), warehouseID.String(), qty, TotalAvailable(active),
			)
		}

		if err := s.repo.SaveAvailability(ctx, changed); err != nil {
			return fmt.Errorf("save lots: %w", err)
		}
		used = consumed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return used, nil
}

// AvailableBatches returns the active lots of a product in a warehouse, oldest first.
func (s *Service) AvailableBatches(ctx context.Context, productID, warehouseID id.ID) ([]*Lot, error) {
	return s.repo.ListActive(ctx, Filter{ProductID: &productID, WarehouseID: &warehouseID})
}

// ActiveLots returns active lots of a product, optionally restricted to one warehouse.
func (s *Service) ActiveLots(ctx context.Context, productID id.ID, warehouseID *id.ID) ([]*Lot, error) {
	return s.repo.ListActive(ctx, Filter{ProductID: &productID, WarehouseID: warehouseID})
}

// ActiveTotals sums active availability per product/warehouse.
func (s *Service) ActiveTotals(ctx context.Context, filter Filter) ([]Total, error) {
	return s.repo.ActiveTotals(ctx, filter)
}
