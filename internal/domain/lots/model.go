// Package lots implements the lot ledger: purchase batches per product and
// warehouse, consumed first-in first-out.
package lots

import (
	"sort"
	"time"

	"almacen/internal/core/apperror"
	"almacen/internal/core/id"
	"almacen/internal/core/types"
)

// Status is the depletion state of a lot.
type Status string

const (
	StatusActive   Status = "active"
	StatusDepleted Status = "depleted"
)

// Origin records which business event created a lot.
type Origin string

const (
	OriginPurchase   Origin = "purchase"
	OriginAdjustment Origin = "adjustment"
	OriginTransfer   Origin = "transfer"
	OriginReturn     Origin = "return"
)

// Lot is one acquisition of stock with its own cost basis.
// Only QuantityAvailable and Status ever change after creation.
type Lot struct {
	ID          id.ID `db:"id" json:"id"`
	ProductID   id.ID `db:"product_id" json:"productId"`
	WarehouseID id.ID `db:"warehouse_id" json:"warehouseId"`

	QuantityPurchased types.Quantity `db:"quantity_purchased" json:"quantityPurchased"`
	QuantityAvailable types.Quantity `db:"quantity_available" json:"quantityAvailable"`

	PurchasePrice     types.Money `db:"purchase_price" json:"purchasePrice"`
	DistributionPrice types.Money `db:"distribution_price" json:"distributionPrice"`

	AcquiredAt time.Time `db:"acquired_at" json:"acquiredAt"`
	Status     Status    `db:"status" json:"status"`
	Origin     Origin    `db:"origin" json:"origin"`
	OriginNote string    `db:"origin_note" json:"originNote,omitempty"`

	// SourceLotID links a transfer destination lot to the lot it was cut from.
	SourceLotID *id.ID `db:"source_lot_id" json:"sourceLotId,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// NewLot describes a lot to create.
type NewLot struct {
	ProductID         id.ID
	WarehouseID       id.ID
	Quantity          types.Quantity
	PurchasePrice     types.Money
	DistributionPrice types.Money
	AcquiredAt        time.Time
	Origin            Origin
	OriginNote        string
	SourceLotID       *id.ID
}

// Validate checks the request before a lot is built.
func (n NewLot) Validate() error {
	if id.IsNil(n.ProductID) || id.IsNil(n.WarehouseID) {
		return apperror.NewValidation("product and warehouse are required")
	}
	if !n.Quantity.IsPositive() {
		return apperror.NewValidation("lot quantity must be positive").
			WithDetail("quantity", n.Quantity)
	}
	if n.PurchasePrice.IsNegative() || n.DistributionPrice.IsNegative() {
		return apperror.NewValidation("lot prices must not be negative")
	}
	return nil
}

// Build materializes an active lot with all of its quantity available.
func (n NewLot) Build() *Lot {
	acquired := n.AcquiredAt
	if acquired.IsZero() {
		acquired = time.Now().UTC()
	}
	origin := n.Origin
	if origin == "" {
		origin = OriginPurchase
	}
	return &Lot{
		ID:                id.New(),
		ProductID:         n.ProductID,
		WarehouseID:       n.WarehouseID,
		QuantityPurchased: n.Quantity,
		QuantityAvailable: n.Quantity,
		PurchasePrice:     types.RoundStorage(n.PurchasePrice),
		DistributionPrice: types.RoundStorage(n.DistributionPrice),
		AcquiredAt:        acquired,
		Status:            StatusActive,
		Origin:            origin,
		OriginNote:        n.OriginNote,
		SourceLotID:       n.SourceLotID,
		CreatedAt:         time.Now().UTC(),
	}
}

// IsActive reports whether the lot still has stock.
func (l *Lot) IsActive() bool { return l.Status == StatusActive }

// take removes up to q from the lot and returns the amount taken.
// The lot becomes depleted the moment its availability reaches zero.
func (l *Lot) take(q types.Quantity) types.Quantity {
	taken := types.MinQuantity(q, l.QuantityAvailable)
	l.QuantityAvailable -= taken
	if l.QuantityAvailable.IsZero() {
		l.Status = StatusDepleted
	}
	return taken
}

// Consumption is the portion of one lot used to satisfy a request.
type Consumption struct {
	LotID             id.ID          `json:"lotId"`
	Quantity          types.Quantity `json:"quantity"`
	PurchasePrice     types.Money    `json:"purchasePrice"`
	DistributionPrice types.Money    `json:"distributionPrice"`
	AcquiredAt        time.Time      `json:"acquiredAt"`
}

// SortFIFO orders lots by acquisition date, then id.
func SortFIFO(lots []*Lot) {
	sort.SliceStable(lots, func(i, j int) bool {
		if !lots[i].AcquiredAt.Equal(lots[j].AcquiredAt) {
			return lots[i].AcquiredAt.Before(lots[j].AcquiredAt)
		}
		return id.Less(lots[i].ID, lots[j].ID)
	})
}

// TotalAvailable sums availability across active lots.
func TotalAvailable(lots []*Lot) types.Quantity {
	var total types.Quantity
	for _, l := range lots {
		if l.IsActive() {
			total += l.QuantityAvailable
		}
	}
	return total
}

// ConsumeFIFO takes qty from lots oldest first, mutating them in place.
// It is all-or-nothing: when active lots hold less than qty no lot is touched
// and ok is false. The returned slice lists the lots that changed.
func ConsumeFIFO(lots []*Lot, qty types.Quantity) (used []Consumption, changed []*Lot, ok bool) {
	if TotalAvailable(lots) < qty {
		return nil, nil, false
	}

	ordered := make([]*Lot, 0, len(lots))
	for _, l := range lots {
		if l.IsActive() && l.QuantityAvailable.IsPositive() {
			ordered = append(ordered, l)
		}
	}
	SortFIFO(ordered)

	remaining := qty
	for _, l := range ordered {
		if remaining.IsZero() {
			break
		}
		taken := l.take(remaining)
		remaining -= taken
		used = append(used, Consumption{
			LotID:             l.ID,
			Quantity:          taken,
			PurchasePrice:     l.PurchasePrice,
			DistributionPrice: l.DistributionPrice,
			AcquiredAt:        l.AcquiredAt,
		})
		changed = append(changed, l)
	}
	return used, changed, true
}

// SplitConsumption takes qty off the front of used, splitting a lot entry when
// it only partly belongs to the taken share.
func SplitConsumption(used []Consumption, qty types.Quantity) (taken, rest []Consumption) {
	for i, c := range used {
		if !qty.IsPositive() {
			return taken, append(rest, used[i:]...)
		}
		if c.Quantity <= qty {
			taken = append(taken, c)
			qty -= c.Quantity
			continue
		}
		head, tail := c, c
		head.Quantity = qty
		tail.Quantity = c.Quantity - qty
		taken = append(taken, head)
		rest = append(rest, tail)
		qty = 0
	}
	return taken, rest
}

// ConsumedCost returns the quantity-weighted purchase price of a consumption.
func ConsumedCost(used []Consumption) types.Money {
	var qty types.Quantity
	total := types.Zero()
	for _, c := range used {
		qty += c.Quantity
		total = total.Add(c.Quantity.Decimal().Mul(c.PurchasePrice))
	}
	if qty.IsZero() {
		return types.Zero()
	}
	return types.RoundStorage(total.Div(qty.Decimal()))
}
