// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"almacen/internal/app"
	"almacen/internal/infrastructure/http/v1/handlers"
	"almacen/internal/infrastructure/http/v1/middleware"
	"almacen/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Services are the wired domain services
	Services *app.Services

	// Logger for request logging
	Logger *logger.Logger

	// Health serves /health; nil registers only liveness
	Health *handlers.HealthHandler

	// Audit serves the event trail of orders when set
	Audit handlers.AuditTrail

	// Idempotency enables X-Idempotency-Key replay on writes when set
	Idempotency middleware.IdempotencyStore

	// Production switches gin to release mode
	Production bool
}

// NewRouter creates and configures the HTTP router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware (order matters)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Actor())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	health := router.Group("/health")
	if cfg.Health != nil {
		health.GET("/live", cfg.Health.Live)
		health.GET("/ready", cfg.Health.Ready)
		health.GET("/info", cfg.Health.Info)
	} else {
		health.GET("/live", handlers.NewHealthHandler(nil, "", nil).Live)
	}

	v1 := router.Group("/api/v1")
	if cfg.Idempotency != nil {
		v1.Use(middleware.Idempotency(cfg.Idempotency))
	}

	registerInventoryRoutes(v1, cfg.Services)
	registerPricingRoutes(v1, cfg.Services)
	registerQuotationRoutes(v1, cfg.Services)
	registerShopRoutes(v1, cfg.Services, cfg.Audit)

	return router
}
