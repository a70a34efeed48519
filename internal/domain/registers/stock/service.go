package stock

import (
	"context"
	"fmt"
	"time"

	appctx "almacen/internal/core/context"
	"almacen/internal/core/id"
	"almacen/internal/core/types"
	"almacen/pkg/logger"
)

// Service records movements. Transactions are owned by the caller (the inventory ledger).
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a new stock register service.
func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// Record validates and appends movements, stamping id, time and actor where unset.
func (s *Service) Record(ctx context.Context, movements ...Movement) error {
	if len(movements) == 0 {
		return nil
	}

	now := s.now().UTC()
	actor := appctx.ActorID(ctx)
	for i := range movements {
		m := &movements[i]
		if id.IsNil(m.ID) {
			m.ID = id.New()
		}
		if m.OccurredAt.IsZero() {
			m.OccurredAt = now
		}
		if m.Actor == "" {
			m.Actor = actor
		}
		if err := m.Validate(); err != nil {
			return fmt.Errorf("movement %d: %w", i, err)
		}
	}

	if err := s.repo.Append(ctx, movements); err != nil {
		return fmt.Errorf("append movements: %w", err)
	}

	logger.Debug(ctx, "recorded stock movements",
		"count", len(movements),
		"reference_type", movements[0].ReferenceType,
		"reference_id", movements[0].ReferenceID,
	)
	return nil
}

// History returns the movement history of a product.
func (s *Service) History(ctx context.Context, productID id.ID, filter MovementFilter) ([]Movement, error) {
	return s.repo.History(ctx, productID, filter)
}

// AvailableFromMovements rebuilds the available stock of a product in a
// warehouse from its full movement history.
func (s *Service) AvailableFromMovements(ctx context.Context, productID, warehouseID id.ID) (types.Quantity, error) {
	movements, err := s.repo.History(ctx, productID, MovementFilter{WarehouseID: &warehouseID})
	if err != nil {
		return 0, fmt.Errorf("load movements: %w", err)
	}
	return Reconstruct(movements), nil
}
