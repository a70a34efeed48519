package dto

import (
	"time"

	"almacen/internal/core/id"
	"almacen/internal/core/types"
	"almacen/internal/domain/inventory"
	"almacen/internal/domain/lots"
	"almacen/internal/domain/registers/stock"
)

// ReservationRequest reserves or releases stock of one pair.
type ReservationRequest struct {
	ProductID   id.ID          `json:"productId"`
	WarehouseID id.ID          `json:"warehouseId"`
	Quantity    types.Quantity `json:"quantity"`
	Reference   string         `json:"reference"`
}

// SyncRequest narrows a lot/record reconciliation. Empty means everything.
type SyncRequest struct {
	ProductID   *id.ID `json:"productId,omitempty"`
	WarehouseID *id.ID `json:"warehouseId,omitempty"`
}

// SyncResponse lists the repaired drifts.
type SyncResponse struct {
	Corrections []inventory.Correction `json:"corrections"`
}

// FreeStockResponse is the unreserved stock of a product.
type FreeStockResponse struct {
	ProductID   id.ID          `json:"productId"`
	WarehouseID *id.ID         `json:"warehouseId,omitempty"`
	Free        types.Quantity `json:"free"`
}

// AdjustOutResponse lists the lots an adjustment out consumed.
type AdjustOutResponse struct {
	Consumed []lots.Consumption `json:"consumed"`
}

// CostResponse is the weighted-average cost of a product.
type CostResponse struct {
	ProductID   id.ID       `json:"productId"`
	WarehouseID *id.ID      `json:"warehouseId,omitempty"`
	AverageCost types.Money `json:"averageCost"`
}

// MovementQuery filters movement history.
type MovementQuery struct {
	WarehouseID   string     `form:"warehouseId"`
	Type          string     `form:"type"`
	ReferenceType string     `form:"referenceType"`
	ReferenceID   string     `form:"referenceId"`
	FromDate      *time.Time `form:"fromDate" time_format:"2006-01-02T15:04:05Z07:00"`
	ToDate        *time.Time `form:"toDate" time_format:"2006-01-02T15:04:05Z07:00"`
	Limit         int        `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset        int        `form:"offset" binding:"omitempty,min=0"`
}

// MovementList is a page of movement history.
type MovementList = ListResponse[stock.Movement]
