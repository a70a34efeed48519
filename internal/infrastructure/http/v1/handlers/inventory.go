package handlers

import (
	"github.com/gin-gonic/gin"

	"almacen/internal/core/apperror"
	"almacen/internal/core/id"
	"almacen/internal/domain/costing"
	"almacen/internal/domain/inventory"
	"almacen/internal/domain/lots"
	"almacen/internal/domain/registers/stock"
	"almacen/internal/infrastructure/http/v1/dto"
)

// InventoryHandler handles stock ledger endpoints.
type InventoryHandler struct {
	*BaseHandler
	inventory *inventory.Service
	lots      *lots.Service
	costs     *costing.Engine
	movements *stock.Service
}

// NewInventoryHandler creates a new inventory handler.
func NewInventoryHandler(inv *inventory.Service, lotService *lots.Service, costs *costing.Engine, movements *stock.Service) *InventoryHandler {
	return &InventoryHandler{
		BaseHandler: NewBaseHandler(),
		inventory:   inv,
		lots:        lotService,
		costs:       costs,
		movements:   movements,
	}
}

// Receive books a purchase into a new lot.
// POST /inventory/receipts
func (h *InventoryHandler) Receive(c *gin.Context) {
	var req inventory.PurchaseReceipt
	if !h.BindJSON(c, &req) {
		return
	}
	lot, err := h.inventory.ReceivePurchase(c.Request.Context(), req)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, lot)
}

// AdjustIn adds stock outside a purchase.
// POST /inventory/adjustments/in
func (h *InventoryHandler) AdjustIn(c *gin.Context) {
	var req inventory.Adjustment
	if !h.BindJSON(c, &req) {
		return
	}
	lot, err := h.inventory.AdjustIn(c.Request.Context(), req)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, lot)
}

// AdjustOut removes stock FIFO.
// POST /inventory/adjustments/out
func (h *InventoryHandler) AdjustOut(c *gin.Context) {
	var req inventory.Adjustment
	if !h.BindJSON(c, &req) {
		return
	}
	consumed, err := h.inventory.AdjustOut(c.Request.Context(), req)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.AdjustOutResponse{Consumed: consumed})
}

// Transfer moves stock between warehouses.
// POST /inventory/transfers
func (h *InventoryHandler) Transfer(c *gin.Context) {
	var req inventory.TransferRequest
	if !h.BindJSON(c, &req) {
		return
	}
	res, err := h.inventory.Transfer(c.Request.Context(), req)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, res)
}

// Reserve claims free stock of a pair.
// POST /inventory/reservations
func (h *InventoryHandler) Reserve(c *gin.Context) {
	var req dto.ReservationRequest
	if !h.BindJSON(c, &req) {
		return
	}
	if err := h.inventory.Reserve(c.Request.Context(), req.ProductID, req.WarehouseID, req.Quantity, req.Reference); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "stock reserved")
}

// Release gives back a reservation.
// POST /inventory/reservations/release
func (h *InventoryHandler) Release(c *gin.Context) {
	var req dto.ReservationRequest
	if !h.BindJSON(c, &req) {
		return
	}
	if err := h.inventory.ReleaseReservation(c.Request.Context(), req.ProductID, req.WarehouseID, req.Quantity, req.Reference); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "reservation released")
}

// Sync realigns records with their active lots.
// POST /inventory/sync
func (h *InventoryHandler) Sync(c *gin.Context) {
	var req dto.SyncRequest
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &req) {
		return
	}
	corrections, err := h.inventory.SyncWithLots(c.Request.Context(), req.ProductID, req.WarehouseID)
	if err != nil {
		h.Error(c, err)
		return
	}
	if corrections == nil {
		corrections = []inventory.Correction{}
	}
	h.OK(c, dto.SyncResponse{Corrections: corrections})
}

// Records lists the stock of a product per warehouse.
// GET /products/:id/inventory
func (h *InventoryHandler) Records(c *gin.Context) {
	productID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	records, err := h.inventory.RecordsByProduct(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(records, 0, 0))
}

// FreeStock returns unreserved stock, in one warehouse or across all.
// GET /products/:id/free-stock?warehouseId=
func (h *InventoryHandler) FreeStock(c *gin.Context) {
	productID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	warehouseID, ok := h.QueryID(c, "warehouseId")
	if !ok {
		return
	}

	resp := dto.FreeStockResponse{ProductID: productID, WarehouseID: warehouseID}
	var err error
	if warehouseID != nil {
		resp.Free, err = h.inventory.FreeStock(c.Request.Context(), productID, *warehouseID)
	} else {
		resp.Free, err = h.inventory.GlobalFreeStock(c.Request.Context(), productID)
	}
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, resp)
}

// Batches lists active lots in FIFO order.
// GET /products/:id/batches?warehouseId=
func (h *InventoryHandler) Batches(c *gin.Context) {
	productID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	warehouseID, ok := h.QueryID(c, "warehouseId")
	if !ok {
		return
	}
	active, err := h.lots.ActiveLots(c.Request.Context(), productID, warehouseID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(active, 0, 0))
}

// Cost returns the weighted-average cost of the active lots.
// GET /products/:id/cost?warehouseId=
func (h *InventoryHandler) Cost(c *gin.Context) {
	productID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	warehouseID, ok := h.QueryID(c, "warehouseId")
	if !ok {
		return
	}
	cost, err := h.costs.WeightedAverageCost(c.Request.Context(), productID, warehouseID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.CostResponse{
		ProductID:   productID,
		WarehouseID: warehouseID,
		AverageCost: costing.Display(cost),
	})
}

// Movements returns the movement history of a product, newest first.
// GET /products/:id/movements
func (h *InventoryHandler) Movements(c *gin.Context) {
	productID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var q dto.MovementQuery
	if !h.BindQuery(c, &q) {
		return
	}

	filter := stock.MovementFilter{
		ReferenceType: q.ReferenceType,
		ReferenceID:   q.ReferenceID,
		FromDate:      q.FromDate,
		ToDate:        q.ToDate,
		Limit:         q.Limit,
		Offset:        q.Offset,
	}
	if filter.Limit == 0 {
		filter.Limit = 100
	}
	if q.WarehouseID != "" {
		wid, err := id.Parse(q.WarehouseID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid warehouseId").WithDetail("warehouseId", q.WarehouseID))
			return
		}
		filter.WarehouseID = &wid
	}
	if q.Type != "" {
		t := stock.MovementType(q.Type)
		if !t.Valid() {
			h.Error(c, apperror.NewValidation("invalid movement type").WithDetail("type", q.Type))
			return
		}
		filter.Type = &t
	}

	history, err := h.movements.History(c.Request.Context(), productID, filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(history, filter.Limit, filter.Offset))
}
