package handlers

import (
	"github.com/gin-gonic/gin"

	"almacen/internal/domain/allocation"
	"almacen/internal/domain/costing"
	"almacen/internal/domain/inventory"
	"almacen/internal/domain/pricing"
	"almacen/internal/infrastructure/http/v1/dto"
)

// PricingHandler handles margin and sale price endpoints.
type PricingHandler struct {
	*BaseHandler
	pricing   *pricing.Service
	costs     *costing.Engine
	inventory *inventory.Service
	planner   *allocation.Planner
}

// NewPricingHandler creates a new pricing handler.
func NewPricingHandler(p *pricing.Service, costs *costing.Engine, inv *inventory.Service, planner *allocation.Planner) *PricingHandler {
	return &PricingHandler{
		BaseHandler: NewBaseHandler(),
		pricing:     p,
		costs:       costs,
		inventory:   inv,
		planner:     planner,
	}
}

// Policy returns the margin policy in force for a product.
// GET /products/:id/margin-policy
func (h *PricingHandler) Policy(c *gin.Context) {
	productID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	policy, err := h.pricing.ProductPolicy(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, policy)
}

// Evaluate computes the margin of a price without changing anything.
// POST /pricing/evaluate
func (h *PricingHandler) Evaluate(c *gin.Context) {
	var req dto.EvaluateRequest
	if !h.BindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()

	cost := req.UnitCost
	if cost == nil {
		avg, err := h.costs.WeightedAverageCost(ctx, req.ProductID, req.WarehouseID)
		if err != nil {
			h.Error(c, err)
			return
		}
		cost = &avg
	}

	ev, err := h.pricing.Evaluate(ctx, req.ProductID, req.UnitPrice, *cost)
	if err != nil {
		h.Error(c, err)
		return
	}
	policy, err := h.pricing.ProductPolicy(ctx, req.ProductID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.EvaluateResponse{
		Evaluation:     ev,
		UnitCost:       costing.Display(*cost),
		Policy:         policy,
		SuggestedPrice: pricing.SuggestedPrice(*cost, policy.NormalMargin),
	})
}

// SetPrice sets the sale price of a pair, enforcing the margin floor.
// PUT /products/:id/warehouses/:warehouseId/price
func (h *PricingHandler) SetPrice(c *gin.Context) {
	productID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	warehouseID, ok := h.ParamID(c, "warehouseId")
	if !ok {
		return
	}
	var req dto.SetPriceRequest
	if !h.BindJSON(c, &req) {
		return
	}
	rec, err := h.inventory.SetSalePrice(c.Request.Context(), productID, warehouseID, req.SalePrice)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, rec)
}

// Reprice derives the sale price from the current average cost.
// POST /products/:id/warehouses/:warehouseId/reprice
func (h *PricingHandler) Reprice(c *gin.Context) {
	productID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	warehouseID, ok := h.ParamID(c, "warehouseId")
	if !ok {
		return
	}
	var req dto.RepriceRequest
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &req) {
		return
	}
	rec, err := h.inventory.RepriceFromCost(c.Request.Context(), productID, warehouseID, req.TargetMargin)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, rec)
}

// PreviewAllocation plans the warehouse split of items without reserving.
// POST /allocation/preview
func (h *PricingHandler) PreviewAllocation(c *gin.Context) {
	var req dto.AllocationRequest
	if !h.BindJSON(c, &req) {
		return
	}
	plan, err := h.planner.Plan(c.Request.Context(), req.Items)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.AllocationResponse{Plan: plan})
}
