package inventory

import (
	"time"

	"almacen/internal/core/apperror"
	"almacen/internal/core/id"
	"almacen/internal/core/types"
	"almacen/internal/domain/lots"
)

// PurchaseReceipt brings purchased stock into a warehouse.
type PurchaseReceipt struct {
	ProductID        id.ID          `json:"productId"`
	WarehouseID      id.ID          `json:"warehouseId"`
	Quantity         types.Quantity `json:"quantity"`
	UnitCost         types.Money    `json:"unitCost"`
	DistributionCost types.Money    `json:"distributionCost"`
	AcquiredAt       time.Time      `json:"acquiredAt"`
	Reference        string         `json:"reference"`
	Notes            string         `json:"notes"`
}

// Adjustment is a manual correction of stock. UnitCost only applies to
// adjustments in; when nil the current average cost is used.
type Adjustment struct {
	ProductID   id.ID          `json:"productId"`
	WarehouseID id.ID          `json:"warehouseId"`
	Quantity    types.Quantity `json:"quantity"`
	Reason      string         `json:"reason"`
	UnitCost    *types.Money   `json:"unitCost,omitempty"`
}

// TransferRequest moves stock between two warehouses.
type TransferRequest struct {
	ProductID id.ID          `json:"productId"`
	From      id.ID          `json:"fromWarehouseId"`
	To        id.ID          `json:"toWarehouseId"`
	Quantity  types.Quantity `json:"quantity"`
	Notes     string         `json:"notes"`
}

// TransferResult lists what a transfer consumed and created.
type TransferResult struct {
	TransferID string             `json:"transferId"`
	Consumed   []lots.Consumption `json:"consumed"`
	Created    []*lots.Lot        `json:"created"`
}

// Correction is one drift repaired by a sync.
type Correction struct {
	ProductID   id.ID          `json:"productId"`
	WarehouseID id.ID          `json:"warehouseId"`
	Before      types.Quantity `json:"before"`
	After       types.Quantity `json:"after"`
}

func validatePair(productID, warehouseID id.ID, qty types.Quantity) error {
	if id.IsNil(productID) || id.IsNil(warehouseID) {
		return apperror.NewValidation("product and warehouse are required")
	}
	if !qty.IsPositive() {
		return apperror.NewValidation("quantity must be positive").WithDetail("quantity", qty)
	}
	return nil
}

// Validate checks a purchase receipt.
func (r PurchaseReceipt) Validate() error {
	if err := validatePair(r.ProductID, r.WarehouseID, r.Quantity); err != nil {
		return err
	}
	if r.UnitCost.IsNegative() || r.DistributionCost.IsNegative() {
		return apperror.NewValidation("costs must not be negative")
	}
	if r.Reference == "" {
		return apperror.NewValidation("purchase reference is required")
	}
	return nil
}

// Validate checks an adjustment.
func (a Adjustment) Validate() error {
	if err := validatePair(a.ProductID, a.WarehouseID, a.Quantity); err != nil {
		return err
	}
	if a.Reason == "" {
		return apperror.NewValidation("adjustment reason is required")
	}
	if a.UnitCost != nil && a.UnitCost.IsNegative() {
		return apperror.NewValidation("unit cost must not be negative")
	}
	return nil
}

// Validate checks a transfer.
func (t TransferRequest) Validate() error {
	if err := validatePair(t.ProductID, t.From, t.Quantity); err != nil {
		return err
	}
	if id.IsNil(t.To) {
		return apperror.NewValidation("destination warehouse is required")
	}
	if t.From == t.To {
		return apperror.NewValidation("source and destination warehouse must differ")
	}
	return nil
}
