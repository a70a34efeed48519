package quotation

import (
	"context"
	"fmt"
	"time"

	"almacen/internal/core/apperror"
	appctx "almacen/internal/core/context"
	"almacen/internal/core/id"
	"almacen/internal/core/numerator"
	"almacen/internal/core/tx"
	"almacen/internal/core/types"
	"almacen/internal/domain/catalogs/product"
	"almacen/internal/domain/costing"
	"almacen/internal/domain/pricing"
	"almacen/internal/domain/settings"
	"almacen/pkg/logger"
)

// DefaultValidDays is the validity of a quotation when none is given.
const DefaultValidDays = 15

// CreateInput opens a draft.
type CreateInput struct {
	CustomerName  string `json:"customerName"`
	CustomerEmail string `json:"customerEmail"`
	ValidDays     int    `json:"validDays"`
	Notes         string `json:"notes"`
}

// ItemInput adds a product to a draft. For warehouse items the cost is the
// weighted-average cost of WarehouseID (global when nil). Supplier items need
// SupplierCost. A nil UnitPrice defaults to the suggested price at the
// product's normal margin.
type ItemInput struct {
	ProductID    id.ID          `json:"productId"`
	SourceType   SourceType     `json:"sourceType"`
	WarehouseID  *id.ID         `json:"warehouseId,omitempty"`
	SupplierName string         `json:"supplierName,omitempty"`
	SupplierCost *types.Money   `json:"supplierCost,omitempty"`
	Quantity     types.Quantity `json:"quantity"`
	UnitPrice    *types.Money   `json:"unitPrice,omitempty"`
}

// ItemUpdate changes quantity and/or price of a line.
type ItemUpdate struct {
	Quantity  *types.Quantity `json:"quantity,omitempty"`
	UnitPrice *types.Money    `json:"unitPrice,omitempty"`
}

// Service manages the quotation lifecycle.
type Service struct {
	repo      Repository
	products  product.Repository
	costs     *costing.Engine
	pricing   *pricing.Service
	settings  settings.Provider
	numerator numerator.Generator
	txManager tx.Manager
	now       func() time.Time
}

// NewService creates a quotation service.
func NewService(
	repo Repository,
	products product.Repository,
	costs *costing.Engine,
	pricingService *pricing.Service,
	provider settings.Provider,
	gen numerator.Generator,
	txManager tx.Manager,
) *Service {
	return &Service{
		repo:      repo,
		products:  products,
		costs:     costs,
		pricing:   pricingService,
		settings:  provider,
		numerator: gen,
		txManager: txManager,
		now:       time.Now,
	}
}

// Get returns a quotation with its details.
func (s *Service) Get(ctx context.Context, quotationID id.ID) (*Quotation, error) {
	return s.repo.GetByID(ctx, quotationID)
}

// Create opens a numbered draft.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Quotation, error) {
	taxRate, err := settings.Decimal(ctx, s.settings, settings.GroupSales, settings.KeyTaxRate, settings.DefaultTaxRate)
	if err != nil {
		return nil, err
	}

	days := in.ValidDays
	if days <= 0 {
		days = DefaultValidDays
	}
	now := s.now().UTC()

	q := New(in.CustomerName, in.CustomerEmail, now.AddDate(0, 0, days), taxRate, appctx.ActorID(ctx))
	q.Notes = in.Notes
	if err := q.Validate(ctx); err != nil {
		return nil, err
	}

	number, err := numerator.Next(ctx, s.numerator, numerator.PrefixQuotation, now)
	if err != nil {
		return nil, fmt.Errorf("generate quotation number: %w", err)
	}
	q.Number = number

	if err := s.repo.Create(ctx, q); err != nil {
		return nil, fmt.Errorf("create quotation: %w", err)
	}

	logger.Info(ctx, "quotation created", "quotation_id", q.ID, "number", q.Number)
	return q, nil
}

// AddItem prices and appends a line. The price must clear the minimum margin.
func (s *Service) AddItem(ctx context.Context, quotationID id.ID, in ItemInput) (*Quotation, error) {
	if !in.Quantity.IsPositive() {
		return nil, apperror.NewValidation("quantity must be positive").WithDetail("quantity", in.Quantity)
	}

	return s.edit(ctx, quotationID, func(ctx context.Context, q *Quotation) error {
		if _, err := s.products.GetByID(ctx, in.ProductID); err != nil {
			return err
		}

		cost, err := s.resolveCost(ctx, in)
		if err != nil {
			return err
		}
		policy, err := s.pricing.ProductPolicy(ctx, in.ProductID)
		if err != nil {
			return err
		}

		price := pricing.SuggestedPrice(cost, policy.NormalMargin)
		if in.UnitPrice != nil {
			price = *in.UnitPrice
		}

		d := Detail{
			ID:           id.New(),
			QuotationID:  q.ID,
			LineNo:       len(q.Details) + 1,
			ProductID:    in.ProductID,
			SourceType:   in.SourceType,
			WarehouseID:  in.WarehouseID,
			SupplierName: in.SupplierName,
			Quantity:     in.Quantity,
			UnitCost:     cost,
			UnitPrice:    price,
		}
		if err := s.priceDetail(ctx, &d); err != nil {
			return err
		}
		q.Details = append(q.Details, d)
		return nil
	})
}

// UpdateItem changes a line and re-validates its margin.
func (s *Service) UpdateItem(ctx context.Context, quotationID, detailID id.ID, in ItemUpdate) (*Quotation, error) {
	if in.Quantity != nil && !in.Quantity.IsPositive() {
		return nil, apperror.NewValidation("quantity must be positive").WithDetail("quantity", *in.Quantity)
	}

	return s.edit(ctx, quotationID, func(ctx context.Context, q *Quotation) error {
		d, err := q.Detail(detailID)
		if err != nil {
			return err
		}
		updated := *d
		if in.Quantity != nil {
			updated.Quantity = *in.Quantity
		}
		if in.UnitPrice != nil {
			updated.UnitPrice = *in.UnitPrice
		}
		if err := s.priceDetail(ctx, &updated); err != nil {
			return err
		}
		*d = updated
		return nil
	})
}

// RemoveItem drops a line from a draft.
func (s *Service) RemoveItem(ctx context.Context, quotationID, detailID id.ID) (*Quotation, error) {
	return s.edit(ctx, quotationID, func(_ context.Context, q *Quotation) error {
		return q.RemoveDetail(detailID)
	})
}

// Send freezes a draft with at least one line.
func (s *Service) Send(ctx context.Context, quotationID id.ID) (*Quotation, error) {
	return s.move(ctx, quotationID, func(q *Quotation, now time.Time) error {
		if len(q.Details) == 0 {
			return apperror.NewValidation("quotation has no items")
		}
		return q.Transition(StatusSent, now)
	})
}

// Accept records the customer's acceptance. A sent quotation past its
// validity cannot be accepted.
func (s *Service) Accept(ctx context.Context, quotationID id.ID) (*Quotation, error) {
	return s.move(ctx, quotationID, func(q *Quotation, now time.Time) error {
		if q.Status == StatusSent && q.IsExpiredAt(now) {
			return apperror.NewBusinessRule(apperror.CodeBusinessRule, "quotation has expired").
				WithDetail("valid_until", q.ValidUntil)
		}
		return q.Transition(StatusAccepted, now)
	})
}

// Reject records the customer's rejection.
func (s *Service) Reject(ctx context.Context, quotationID id.ID, reason string) (*Quotation, error) {
	return s.move(ctx, quotationID, func(q *Quotation, now time.Time) error {
		if err := q.Transition(StatusRejected, now); err != nil {
			return err
		}
		q.RejectionReason = reason
		return nil
	})
}

// MarkConverted links an accepted quotation to the order created from it.
func (s *Service) MarkConverted(ctx context.Context, quotationID, orderID id.ID) (*Quotation, error) {
	return s.move(ctx, quotationID, func(q *Quotation, now time.Time) error {
		if err := q.Transition(StatusConverted, now); err != nil {
			return err
		}
		q.ConvertedOrderID = &orderID
		return nil
	})
}

// ExpireDue expires sent quotations whose validity ended before now.
func (s *Service) ExpireDue(ctx context.Context) (int, error) {
	now := s.now().UTC()
	due, err := s.repo.ListSentBefore(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list due quotations: %w", err)
	}

	expired := 0
	for _, q := range due {
		_, err := s.move(ctx, q.ID, func(q *Quotation, now time.Time) error {
			return q.Transition(StatusExpired, now)
		})
		if apperror.IsInvalidTransition(err) {
			// answered since it was listed
			continue
		}
		if err != nil {
			return expired, err
		}
		expired++
	}

	if expired > 0 {
		logger.Info(ctx, "quotations expired", "count", expired)
	}
	return expired, nil
}

func (s *Service) resolveCost(ctx context.Context, in ItemInput) (types.Money, error) {
	switch in.SourceType {
	case SourceWarehouse:
		return s.costs.WeightedAverageCost(ctx, in.ProductID, in.WarehouseID)
	case SourceSupplier:
		if in.SupplierCost == nil || in.SupplierCost.IsNegative() {
			return types.Zero(), apperror.NewValidation("supplier cost is required").WithDetail("field", "supplierCost")
		}
		return types.RoundStorage(*in.SupplierCost), nil
	default:
		return types.Zero(), apperror.NewValidation("unknown source type").WithDetail("sourceType", in.SourceType)
	}
}

// priceDetail fills margin fields and enforces the floor.
func (s *Service) priceDetail(ctx context.Context, d *Detail) error {
	if d.UnitPrice.IsNegative() {
		return apperror.NewValidation("unit price must not be negative")
	}
	ev, err := s.pricing.Evaluate(ctx, d.ProductID, d.UnitPrice, d.UnitCost)
	if err != nil {
		return err
	}
	if err := s.pricing.ValidateMinimum(ctx, d.ProductID, d.UnitPrice, d.UnitCost); err != nil {
		return err
	}
	d.MarginPercent = types.RoundDisplay(ev.Margin)
	d.MinMarginPercent = ev.MinMargin
	return nil
}

// edit runs fn on a locked draft and saves it with fresh totals.
func (s *Service) edit(ctx context.Context, quotationID id.ID, fn func(context.Context, *Quotation) error) (*Quotation, error) {
	var out *Quotation
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		q, err := s.repo.GetForUpdate(ctx, quotationID)
		if err != nil {
			return err
		}
		if err := q.EnsureDraft(); err != nil {
			return err
		}
		if err := fn(ctx, q); err != nil {
			return err
		}
		q.Recalculate()
		q.Touch()
		if err := s.repo.Update(ctx, q); err != nil {
			return fmt.Errorf("update quotation: %w", err)
		}
		out = q
		return nil
	})
	return out, err
}

// move runs a lifecycle change on a locked quotation.
func (s *Service) move(ctx context.Context, quotationID id.ID, fn func(*Quotation, time.Time) error) (*Quotation, error) {
	var out *Quotation
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		q, err := s.repo.GetForUpdate(ctx, quotationID)
		if err != nil {
			return err
		}
		from := q.Status
		if err := fn(q, s.now().UTC()); err != nil {
			return err
		}
		q.Touch()
		if err := s.repo.Update(ctx, q); err != nil {
			return fmt.Errorf("update quotation: %w", err)
		}
		logger.Info(ctx, "quotation status changed",
			"quotation_id", q.ID,
			"from", from,
			"to", q.Status,
		)
		out = q
		return nil
	})
	return out, err
}
