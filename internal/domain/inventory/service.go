package inventory

import (
	"context"
	"fmt"
	"time"

	"almacen/internal/core/apperror"
	"almacen/internal/core/id"
	"almacen/internal/core/tx"
	"almacen/internal/core/types"
	"almacen/internal/domain/allocation"
	"almacen/internal/domain/catalogs/warehouse"
	"almacen/internal/domain/costing"
	"almacen/internal/domain/lots"
	"almacen/internal/domain/pricing"
	"almacen/internal/domain/registers/stock"
	"almacen/pkg/logger"
)

// Service owns every write to inventory records and lots. Each mutating call
// locks the affected records and runs in one transaction.
type Service struct {
	repo       Repository
	lots       *lots.Service
	costs      *costing.Engine
	movements  *stock.Service
	warehouses warehouse.Repository
	pricing    *pricing.Service
	txManager  tx.Manager
	now        func() time.Time
}

// NewService creates the inventory ledger.
func NewService(
	repo Repository,
	lotService *lots.Service,
	costs *costing.Engine,
	movements *stock.Service,
	warehouses warehouse.Repository,
	pricingService *pricing.Service,
	txManager tx.Manager,
) *Service {
	return &Service{
		repo:       repo,
		lots:       lotService,
		costs:      costs,
		movements:  movements,
		warehouses: warehouses,
		pricing:    pricingService,
		txManager:  txManager,
		now:        time.Now,
	}
}

// --- Reads ---

// Record returns the record of a product in a warehouse.
func (s *Service) Record(ctx context.Context, productID, warehouseID id.ID) (*Record, error) {
	return s.repo.Get(ctx, productID, warehouseID)
}

// RecordsByProduct returns the records of a product in every warehouse.
func (s *Service) RecordsByProduct(ctx context.Context, productID id.ID) ([]*Record, error) {
	return s.repo.List(ctx, Filter{ProductID: &productID})
}

// FreeStock returns available minus reserved stock of a pair, zero when it has no record.
func (s *Service) FreeStock(ctx context.Context, productID, warehouseID id.ID) (types.Quantity, error) {
	rec, err := s.repo.Get(ctx, productID, warehouseID)
	if apperror.IsNotFound(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return rec.Free(), nil
}

// GlobalFreeStock sums free stock of a product over active warehouses.
func (s *Service) GlobalFreeStock(ctx context.Context, productID id.ID) (types.Quantity, error) {
	levels, err := s.StockLevels(ctx, []id.ID{productID})
	if err != nil {
		return 0, err
	}
	var total types.Quantity
	for _, l := range levels {
		total += l.Free
	}
	return total, nil
}

// StockLevels returns positive free stock per product and active warehouse.
// It implements allocation.StockReader.
func (s *Service) StockLevels(ctx context.Context, productIDs []id.ID) ([]allocation.StockLevel, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}

	active, err := s.warehouses.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list warehouses: %w", err)
	}
	open := make(map[id.ID]bool, len(active))
	for _, w := range active {
		open[w.ID] = true
	}

	records, err := s.repo.List(ctx, Filter{ProductIDs: productIDs})
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	levels := make([]allocation.StockLevel, 0, len(records))
	for _, r := range records {
		if !open[r.WarehouseID] || !r.Free().IsPositive() {
			continue
		}
		levels = append(levels, allocation.StockLevel{
			ProductID:   r.ProductID,
			WarehouseID: r.WarehouseID,
			Free:        r.Free(),
		})
	}
	return levels, nil
}

// --- Inbound ---

// ReceivePurchase creates a purchase lot and adds it to available stock.
func (s *Service) ReceivePurchase(ctx context.Context, req PurchaseReceipt) (*lots.Lot, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var created *lots.Lot
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.requireReceiving(ctx, req.WarehouseID); err != nil {
			return err
		}
		rec, err := s.repo.GetForUpdate(ctx, req.ProductID, req.WarehouseID)
		if err != nil {
			return fmt.Errorf("lock record: %w", err)
		}

		lot, err := s.lots.CreateLot(ctx, lots.NewLot{
			ProductID:         req.ProductID,
			WarehouseID:       req.WarehouseID,
			Quantity:          req.Quantity,
			PurchasePrice:     req.UnitCost,
			DistributionPrice: req.DistributionCost,
			AcquiredAt:        req.AcquiredAt,
			Origin:            lots.OriginPurchase,
			OriginNote:        req.Notes,
		})
		if err != nil {
			return err
		}

		rec.AvailableStock += req.Quantity
		if err := s.movements.Record(ctx, stock.Movement{
			ProductID:     req.ProductID,
			WarehouseID:   req.WarehouseID,
			LotID:         &lot.ID,
			Type:          stock.TypeIn,
			Quantity:      req.Quantity,
			UnitCost:      req.UnitCost,
			ReferenceType: stock.RefPurchase,
			ReferenceID:   req.Reference,
			Notes:         req.Notes,
		}); err != nil {
			return err
		}

		created = lot
		return s.saveWithCost(ctx, rec)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "purchase received",
		"product_id", req.ProductID,
		"warehouse_id", req.WarehouseID,
		"quantity", req.Quantity,
		"lot_id", created.ID,
	)
	return created, nil
}

// AdjustIn adds stock through a new adjustment lot.
func (s *Service) AdjustIn(ctx context.Context, adj Adjustment) (*lots.Lot, error) {
	if err := adj.Validate(); err != nil {
		return nil, err
	}

	var created *lots.Lot
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.requireReceiving(ctx, adj.WarehouseID); err != nil {
			return err
		}
		rec, err := s.repo.GetForUpdate(ctx, adj.ProductID, adj.WarehouseID)
		if err != nil {
			return fmt.Errorf("lock record: %w", err)
		}

		unitCost, err := s.adjustmentCost(ctx, rec, adj.UnitCost)
		if err != nil {
			return err
		}

		lot, err := s.lots.CreateLot(ctx, lots.NewLot{
			ProductID:     adj.ProductID,
			WarehouseID:   adj.WarehouseID,
			Quantity:      adj.Quantity,
			PurchasePrice: unitCost,
			AcquiredAt:    s.now().UTC(),
			Origin:        lots.OriginAdjustment,
			OriginNote:    adj.Reason,
		})
		if err != nil {
			return err
		}

		rec.AvailableStock += adj.Quantity
		if err := s.movements.Record(ctx, stock.Movement{
			ProductID:     adj.ProductID,
			WarehouseID:   adj.WarehouseID,
			LotID:         &lot.ID,
			Type:          stock.TypeAdjustment,
			Quantity:      adj.Quantity,
			UnitCost:      unitCost,
			ReferenceType: stock.RefAdjustment,
			ReferenceID:   lot.ID.String(),
			Notes:         adj.Reason,
		}); err != nil {
			return err
		}

		created = lot
		return s.saveWithCost(ctx, rec)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock adjusted in",
		"product_id", adj.ProductID,
		"warehouse_id", adj.WarehouseID,
		"quantity", adj.Quantity,
		"reason", adj.Reason,
	)
	return created, nil
}

// Restock returns committed stock after a cancellation by creating a
// compensating lot at the given cost.
func (s *Service) Restock(ctx context.Context, productID, warehouseID id.ID, qty types.Quantity, unitCost types.Money, reference string) (*lots.Lot, error) {
	if err := validatePair(productID, warehouseID, qty); err != nil {
		return nil, err
	}

	var created *lots.Lot
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		rec, err := s.repo.GetForUpdate(ctx, productID, warehouseID)
		if err != nil {
			return fmt.Errorf("lock record: %w", err)
		}

		lot, err := s.lots.CreateLot(ctx, lots.NewLot{
			ProductID:     productID,
			WarehouseID:   warehouseID,
			Quantity:      qty,
			PurchasePrice: unitCost,
			AcquiredAt:    s.now().UTC(),
			Origin:        lots.OriginReturn,
			OriginNote:    reference,
		})
		if err != nil {
			return err
		}

		rec.AvailableStock += qty
		if err := s.movements.Record(ctx, stock.Movement{
			ProductID:     productID,
			WarehouseID:   warehouseID,
			LotID:         &lot.ID,
			Type:          stock.TypeIn,
			Quantity:      qty,
			UnitCost:      unitCost,
			ReferenceType: stock.RefCancellation,
			ReferenceID:   reference,
		}); err != nil {
			return err
		}

		created = lot
		return s.saveWithCost(ctx, rec)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// --- Reservations ---

// Reserve claims free stock for a pending order. Available stock is unchanged.
func (s *Service) Reserve(ctx context.Context, productID, warehouseID id.ID, qty types.Quantity, reference string) error {
	if err := validatePair(productID, warehouseID, qty); err != nil {
		return err
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		rec, err := s.repo.GetForUpdate(ctx, productID, warehouseID)
		if err != nil {
			return fmt.Errorf("lock record: %w", err)
		}
		if rec.Free() < qty {
			return apperror.NewInsufficientStock(productID.String(), warehouseID.String(), qty, rec.Free())
		}

		rec.ReservedStock += qty
		if err := s.movements.Record(ctx, stock.Movement{
			ProductID:     productID,
			WarehouseID:   warehouseID,
			Type:          stock.TypeReserve,
			Quantity:      qty,
			UnitCost:      rec.AverageCost,
			ReferenceType: stock.RefOrder,
			ReferenceID:   reference,
		}); err != nil {
			return err
		}
		return s.save(ctx, rec)
	})
}

// ReserveAllocation reserves every entry of a plan. Records are locked in
// product then warehouse order; any shortfall rolls back the whole plan.
func (s *Service) ReserveAllocation(ctx context.Context, plan allocation.Plan, reference string) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		for _, line := range plan.Lines() {
			if err := s.Reserve(ctx, line.ProductID, line.WarehouseID, line.Quantity, reference); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReleaseReservation gives reserved stock back without consuming lots.
func (s *Service) ReleaseReservation(ctx context.Context, productID, warehouseID id.ID, qty types.Quantity, reference string) error {
	if err := validatePair(productID, warehouseID, qty); err != nil {
		return err
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		rec, err := s.repo.GetForUpdate(ctx, productID, warehouseID)
		if err != nil {
			return fmt.Errorf("lock record: %w", err)
		}
		if rec.ReservedStock < qty {
			return apperror.NewBusinessRule(apperror.CodeBusinessRule, "release exceeds reserved stock").
				WithDetail("product_id", productID.String()).
				WithDetail("warehouse_id", warehouseID.String()).
				WithDetail("requested", qty).
				WithDetail("reserved", rec.ReservedStock)
		}

		rec.ReservedStock -= qty
		if err := s.movements.Record(ctx, stock.Movement{
			ProductID:     productID,
			WarehouseID:   warehouseID,
			Type:          stock.TypeRelease,
			Quantity:      qty.Neg(),
			UnitCost:      rec.AverageCost,
			ReferenceType: stock.RefCancellation,
			ReferenceID:   reference,
		}); err != nil {
			return err
		}
		return s.save(ctx, rec)
	})
}

// ReleaseAllocation releases every entry of a plan.
func (s *Service) ReleaseAllocation(ctx context.Context, plan allocation.Plan, reference string) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		for _, line := range plan.Lines() {
			if err := s.ReleaseReservation(ctx, line.ProductID, line.WarehouseID, line.Quantity, reference); err != nil {
				return err
			}
		}
		return nil
	})
}

// CommitReservation turns reserved stock into a sale: lots are consumed FIFO,
// available and reserved stock drop by qty and one out movement is written per lot.
func (s *Service) CommitReservation(ctx context.Context, productID, warehouseID id.ID, qty types.Quantity, saleReference string) ([]lots.Consumption, error) {
	if err := validatePair(productID, warehouseID, qty); err != nil {
		return nil, err
	}

	var used []lots.Consumption
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		rec, err := s.repo.GetForUpdate(ctx, productID, warehouseID)
		if err != nil {
			return fmt.Errorf("lock record: %w", err)
		}
		if rec.AvailableStock < qty {
			return apperror.NewInsufficientStock(productID.String(), warehouseID.String(), qty, rec.AvailableStock)
		}
		if rec.ReservedStock < qty {
			return apperror.NewBusinessRule(apperror.CodeBusinessRule, "commit exceeds reserved stock").
				WithDetail("product_id", productID.String()).
				WithDetail("warehouse_id", warehouseID.String()).
				WithDetail("requested", qty).
				WithDetail("reserved", rec.ReservedStock)
		}

		consumed, err := s.lots.ConsumeFIFO(ctx, productID, warehouseID, qty)
		if err != nil {
			return err
		}

		rec.AvailableStock -= qty
		rec.ReservedStock -= qty
		if err := s.movements.Record(ctx, outMovements(productID, warehouseID, stock.TypeOut, consumed, stock.RefSale, saleReference, "")...); err != nil {
			return err
		}

		used = consumed
		return s.saveWithCost(ctx, rec)
	})
	if err != nil {
		return nil, err
	}
	return used, nil
}

// CommitAllocation commits every entry of a plan and returns the consumed
// lots grouped by product.
func (s *Service) CommitAllocation(ctx context.Context, plan allocation.Plan, saleReference string) (map[id.ID][]lots.Consumption, error) {
	out := make(map[id.ID][]lots.Consumption, len(plan))
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		for _, line := range plan.Lines() {
			used, err := s.CommitReservation(ctx, line.ProductID, line.WarehouseID, line.Quantity, saleReference)
			if err != nil {
				return err
			}
			out[line.ProductID] = append(out[line.ProductID], used...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// --- Outbound ---

// AdjustOut removes stock FIFO. Reserved stock cannot be adjusted away.
func (s *Service) AdjustOut(ctx context.Context, adj Adjustment) ([]lots.Consumption, error) {
	if err := adj.Validate(); err != nil {
		return nil, err
	}

	var used []lots.Consumption
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		rec, err := s.repo.GetForUpdate(ctx, adj.ProductID, adj.WarehouseID)
		if err != nil {
			return fmt.Errorf("lock record: %w", err)
		}
		if rec.Free() < adj.Quantity {
			return apperror.NewInsufficientStock(adj.ProductID.String(), adj.WarehouseID.String(), adj.Quantity, rec.Free())
		}

		consumed, err := s.lots.ConsumeFIFO(ctx, adj.ProductID, adj.WarehouseID, adj.Quantity)
		if err != nil {
			return err
		}

		rec.AvailableStock -= adj.Quantity
		ref := id.New().String()
		if err := s.movements.Record(ctx, outMovements(adj.ProductID, adj.WarehouseID, stock.TypeAdjustment, consumed, stock.RefAdjustment, ref, adj.Reason)...); err != nil {
			return err
		}

		used = consumed
		return s.saveWithCost(ctx, rec)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock adjusted out",
		"product_id", adj.ProductID,
		"warehouse_id", adj.WarehouseID,
		"quantity", adj.Quantity,
		"reason", adj.Reason,
	)
	return used, nil
}

// Transfer moves stock between warehouses. Each consumed source lot becomes a
// destination lot with the same cost basis and acquisition date.
func (s *Service) Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	result := &TransferResult{TransferID: id.New().String()}
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.requireReceiving(ctx, req.To); err != nil {
			return err
		}

		// lock both rows in id order
		first, second := req.From, req.To
		if id.Less(second, first) {
			first, second = second, first
		}
		a, err := s.repo.GetForUpdate(ctx, req.ProductID, first)
		if err != nil {
			return fmt.Errorf("lock record: %w", err)
		}
		b, err := s.repo.GetForUpdate(ctx, req.ProductID, second)
		if err != nil {
			return fmt.Errorf("lock record: %w", err)
		}
		src, dst := a, b
		if first != req.From {
			src, dst = b, a
		}

		if src.Free() < req.Quantity {
			return apperror.NewInsufficientStock(req.ProductID.String(), req.From.String(), req.Quantity, src.Free())
		}

		consumed, err := s.lots.ConsumeFIFO(ctx, req.ProductID, req.From, req.Quantity)
		if err != nil {
			return err
		}
		movements := outMovements(req.ProductID, req.From, stock.TypeTransfer, consumed, stock.RefTransfer, result.TransferID, req.Notes)

		for _, c := range consumed {
			source := c.LotID
			lot, err := s.lots.CreateLot(ctx, lots.NewLot{
				ProductID:         req.ProductID,
				WarehouseID:       req.To,
				Quantity:          c.Quantity,
				PurchasePrice:     c.PurchasePrice,
				DistributionPrice: c.DistributionPrice,
				AcquiredAt:        c.AcquiredAt,
				Origin:            lots.OriginTransfer,
				OriginNote:        req.Notes,
				SourceLotID:       &source,
			})
			if err != nil {
				return err
			}
			result.Created = append(result.Created, lot)
			movements = append(movements, stock.Movement{
				ProductID:     req.ProductID,
				WarehouseID:   req.To,
				LotID:         &lot.ID,
				Type:          stock.TypeTransfer,
				Quantity:      c.Quantity,
				UnitCost:      c.PurchasePrice,
				ReferenceType: stock.RefTransfer,
				ReferenceID:   result.TransferID,
				Notes:         req.Notes,
			})
		}

		src.AvailableStock -= req.Quantity
		dst.AvailableStock += req.Quantity
		if err := s.movements.Record(ctx, movements...); err != nil {
			return err
		}

		result.Consumed = consumed
		if err := s.saveWithCost(ctx, src); err != nil {
			return err
		}
		return s.saveWithCost(ctx, dst)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock transferred",
		"product_id", req.ProductID,
		"from", req.From,
		"to", req.To,
		"quantity", req.Quantity,
		"transfer_id", result.TransferID,
	)
	return result, nil
}

// --- Maintenance ---

// SyncWithLots sets available stock of every matching record to the sum of its
// active lots. Each correction is logged and recorded as an adjustment
// movement. Running it twice changes nothing the second time.
func (s *Service) SyncWithLots(ctx context.Context, productID, warehouseID *id.ID) ([]Correction, error) {
	var corrections []Correction
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		totals, err := s.lots.ActiveTotals(ctx, lots.Filter{ProductID: productID, WarehouseID: warehouseID})
		if err != nil {
			return fmt.Errorf("sum active lots: %w", err)
		}
		records, err := s.repo.List(ctx, Filter{ProductID: productID, WarehouseID: warehouseID})
		if err != nil {
			return fmt.Errorf("list records: %w", err)
		}

		type pair struct{ product, warehouse id.ID }
		expected := make(map[pair]types.Quantity, len(totals))
		for _, t := range totals {
			expected[pair{t.ProductID, t.WarehouseID}] = t.Quantity
		}

		pairs := make([]pair, 0, len(records)+len(totals))
		seen := make(map[pair]bool, len(records)+len(totals))
		for _, r := range records {
			k := pair{r.ProductID, r.WarehouseID}
			if r.AvailableStock != expected[k] && !seen[k] {
				pairs = append(pairs, k)
			}
			seen[k] = true
		}
		for _, t := range totals {
			k := pair{t.ProductID, t.WarehouseID}
			if !seen[k] {
				pairs = append(pairs, k)
				seen[k] = true
			}
		}

		for _, k := range pairs {
			rec, err := s.repo.GetForUpdate(ctx, k.product, k.warehouse)
			if err != nil {
				return fmt.Errorf("lock record: %w", err)
			}
			want := expected[k]
			if rec.AvailableStock == want {
				continue
			}

			c := Correction{ProductID: k.product, WarehouseID: k.warehouse, Before: rec.AvailableStock, After: want}
			if err := s.movements.Record(ctx, stock.Movement{
				ProductID:     k.product,
				WarehouseID:   k.warehouse,
				Type:          stock.TypeAdjustment,
				Quantity:      want - rec.AvailableStock,
				UnitCost:      rec.AverageCost,
				ReferenceType: stock.RefSync,
				ReferenceID:   id.New().String(),
				Notes:         "inventory synced with lots",
			}); err != nil {
				return err
			}

			rec.AvailableStock = want
			if err := s.saveWithCost(ctx, rec); err != nil {
				return err
			}
			corrections = append(corrections, c)

			logger.Warn(ctx, "inventory drift corrected",
				"product_id", c.ProductID,
				"warehouse_id", c.WarehouseID,
				"before", c.Before,
				"after", c.After,
			)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return corrections, nil
}

// --- Prices ---

// SetSalePrice sets the sale price of a pair after checking it against the
// minimum margin over the current average cost.
func (s *Service) SetSalePrice(ctx context.Context, productID, warehouseID id.ID, price types.Money) (*Record, error) {
	if price.IsNegative() {
		return nil, apperror.NewValidation("sale price must not be negative")
	}

	var out *Record
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		rec, err := s.repo.GetForUpdate(ctx, productID, warehouseID)
		if err != nil {
			return fmt.Errorf("lock record: %w", err)
		}
		if err := s.pricing.ValidateMinimum(ctx, productID, price, rec.AverageCost); err != nil {
			return err
		}
		rec.SalePrice = types.RoundStorage(price)
		rec.UpdatedAt = s.now().UTC()
		out = rec
		return s.repo.Save(ctx, rec)
	})
	return out, err
}

// RepriceFromCost sets the sale price to the average cost marked up by target
// percent, or by the effective normal margin of the product when target is nil.
func (s *Service) RepriceFromCost(ctx context.Context, productID, warehouseID id.ID, target *types.Money) (*Record, error) {
	margin := types.Zero()
	if target != nil {
		margin = *target
	} else {
		policy, err := s.pricing.ProductPolicy(ctx, productID)
		if err != nil {
			return nil, err
		}
		margin = policy.NormalMargin
	}

	var out *Record
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		rec, err := s.repo.GetForUpdate(ctx, productID, warehouseID)
		if err != nil {
			return fmt.Errorf("lock record: %w", err)
		}
		price := pricing.SuggestedPrice(rec.AverageCost, margin)
		if err := s.pricing.ValidateMinimum(ctx, productID, price, rec.AverageCost); err != nil {
			return err
		}
		rec.SalePrice = price
		rec.UpdatedAt = s.now().UTC()
		out = rec
		return s.repo.Save(ctx, rec)
	})
	return out, err
}

// --- helpers ---

func (s *Service) requireReceiving(ctx context.Context, warehouseID id.ID) error {
	w, err := s.warehouses.GetByID(ctx, warehouseID)
	if err != nil {
		return err
	}
	if !w.CanAcceptStock() {
		return apperror.NewBusinessRule(apperror.CodeBusinessRule, "warehouse does not accept stock").
			WithDetail("warehouse_id", warehouseID.String())
	}
	return nil
}

func (s *Service) adjustmentCost(ctx context.Context, rec *Record, given *types.Money) (types.Money, error) {
	if given != nil {
		return *given, nil
	}
	if rec.AverageCost.IsPositive() {
		return rec.AverageCost, nil
	}
	return s.costs.WeightedAverageCost(ctx, rec.ProductID, nil)
}

// saveWithCost refreshes the average cost from active lots, stamps the movement time and saves.
func (s *Service) saveWithCost(ctx context.Context, rec *Record) error {
	wh := rec.WarehouseID
	cost, err := s.costs.WeightedAverageCost(ctx, rec.ProductID, &wh)
	if err != nil {
		return err
	}
	rec.AverageCost = cost
	return s.save(ctx, rec)
}

func (s *Service) save(ctx context.Context, rec *Record) error {
	rec.moved(s.now().UTC())
	if err := s.repo.Save(ctx, rec); err != nil {
		return fmt.Errorf("save inventory record: %w", err)
	}
	return nil
}

func outMovements(productID, warehouseID id.ID, typ stock.MovementType, used []lots.Consumption, refType, refID, notes string) []stock.Movement {
	out := make([]stock.Movement, 0, len(used))
	for _, c := range used {
		lotID := c.LotID
		out = append(out, stock.Movement{
			ProductID:     productID,
			WarehouseID:   warehouseID,
			LotID:         &lotID,
			Type:          typ,
			Quantity:      c.Quantity.Neg(),
			UnitCost:      c.PurchasePrice,
			ReferenceType: refType,
			ReferenceID:   refID,
			Notes:         notes,
		})
	}
	return out
}
