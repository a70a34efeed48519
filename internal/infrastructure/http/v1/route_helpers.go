package v1

import (
	"github.com/gin-gonic/gin"

	"almacen/internal/app"
	"almacen/internal/infrastructure/http/v1/handlers"
	"almacen/internal/infrastructure/http/v1/middleware"
)

// registerInventoryRoutes wires stock ledger, lot and cost endpoints.
func registerInventoryRoutes(rg *gin.RouterGroup, s *app.Services) {
	h := handlers.NewInventoryHandler(s.Inventory, s.Lots, s.Costing, s.Movements)

	inv := rg.Group("/inventory")
	inv.POST("/receipts", h.Receive)
	inv.POST("/adjustments/in", h.AdjustIn)
	inv.POST("/adjustments/out", h.AdjustOut)
	inv.POST("/transfers", h.Transfer)
	inv.POST("/reservations", h.Reserve)
	inv.POST("/reservations/release", h.Release)
	inv.POST("/sync", h.Sync)

	products := rg.Group("/products/:id")
	products.GET("/inventory", h.Records)
	products.GET("/free-stock", h.FreeStock)
	products.GET("/batches", h.Batches)
	products.GET("/cost", h.Cost)
	products.GET("/movements", h.Movements)
}

// registerPricingRoutes wires margin, price, exchange rate and allocation preview endpoints.
func registerPricingRoutes(rg *gin.RouterGroup, s *app.Services) {
	h := handlers.NewPricingHandler(s.Pricing, s.Costing, s.Inventory, s.Planner)

	rg.POST("/pricing/evaluate", h.Evaluate)
	rg.POST("/allocation/preview", h.PreviewAllocation)

	rates := handlers.NewCurrencyHandler(s.Converter)
	rg.GET("/currencies/:code/rate", rates.GetRate)
	rg.PUT("/currencies/:code/rate", rates.SetRate)

	products := rg.Group("/products/:id")
	products.GET("/margin-policy", h.Policy)
	products.PUT("/warehouses/:warehouseId/price", h.SetPrice)
	products.POST("/warehouses/:warehouseId/reprice", h.Reprice)
}

// registerQuotationRoutes wires the quotation lifecycle.
func registerQuotationRoutes(rg *gin.RouterGroup, s *app.Services) {
	h := handlers.NewQuotationHandler(s.Quotations)

	q := rg.Group("/quotations")
	q.POST("", h.Create)
	q.GET("/:id", h.Get)
	q.POST("/:id/items", h.AddItem)
	q.PATCH("/:id/items/:itemId", h.UpdateItem)
	q.DELETE("/:id/items/:itemId", h.RemoveItem)
	q.POST("/:id/send", h.Send)
	q.POST("/:id/accept", h.Accept)
	q.POST("/:id/reject", h.Reject)
}

// registerShopRoutes wires cart, checkout and orders. They belong to a user,
// so an identity is required.
func registerShopRoutes(rg *gin.RouterGroup, s *app.Services, trail handlers.AuditTrail) {
	carts := handlers.NewCartHandler(s.Carts)
	orders := handlers.NewOrderHandler(s.Checkout)

	shop := rg.Group("")
	shop.Use(middleware.RequireActor())

	shop.GET("/cart", carts.Get)
	shop.DELETE("/cart", carts.Clear)
	shop.POST("/cart/items", carts.AddItem)
	shop.PUT("/cart/items/:productId", carts.SetQuantity)
	shop.DELETE("/cart/items/:productId", carts.RemoveItem)

	shop.POST("/checkout", orders.Checkout)
	shop.POST("/quotations/:id/checkout", orders.CheckoutQuotation)

	shop.GET("/orders", orders.List)
	shop.GET("/orders/:id", orders.Get)
	shop.POST("/orders/:id/confirm", orders.Confirm)
	shop.POST("/orders/:id/cancel", orders.Cancel)
	shop.POST("/orders/:id/status", orders.AdvanceStatus)

	if trail != nil {
		shop.GET("/orders/:id/events", handlers.NewEventHandler(trail).OrderEvents)
	}
}
