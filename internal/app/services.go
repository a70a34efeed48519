// Package app wires domain services on top of a storage backend. The server,
// the worker and the end-to-end tests share this wiring.
package app

import (
	"time"

	"almacen/internal/core/numerator"
	"almacen/internal/core/tx"
	"almacen/internal/domain/allocation"
	"almacen/internal/domain/cart"
	"almacen/internal/domain/catalogs/category"
	"almacen/internal/domain/catalogs/product"
	"almacen/internal/domain/catalogs/warehouse"
	"almacen/internal/domain/checkout"
	"almacen/internal/domain/costing"
	"almacen/internal/domain/currency"
	"almacen/internal/domain/documents/order"
	"almacen/internal/domain/documents/quotation"
	"almacen/internal/domain/documents/sale"
	"almacen/internal/domain/events"
	"almacen/internal/domain/inventory"
	"almacen/internal/domain/lots"
	"almacen/internal/domain/pricing"
	"almacen/internal/domain/registers/stock"
	"almacen/internal/domain/settings"
)

// Backend is a storage implementation: one transaction manager plus every
// repository, all bound to it.
type Backend interface {
	tx.Manager

	Products() product.Repository
	Warehouses() warehouse.Repository
	Categories() category.Repository
	Currencies() currency.Repository
	Settings() settings.Provider

	Lots() lots.Repository
	Inventory() inventory.Repository
	Movements() stock.Repository

	Carts() cart.Repository
	Orders() order.Repository
	Sales() sale.Repository
	Quotations() quotation.Repository

	Numerator() numerator.Generator
	Outbox() events.Publisher
}

// Options tune the wiring. Zero values are valid.
type Options struct {
	// BaseCurrency is the currency of every stored price (default PEN)
	BaseCurrency string

	// RateCache and Locker are optional (redis in production)
	RateCache currency.RateCache
	RateTTL   time.Duration
	Locker    checkout.Locker

	// SettingsTTL enables an in-process settings cache when positive
	SettingsTTL time.Duration
}

// DefaultBaseCurrency is used when Options.BaseCurrency is empty.
const DefaultBaseCurrency = "PEN"

// Services is the set of domain services.
type Services struct {
	Settings   settings.Provider
	Pricing    *pricing.Service
	Lots       *lots.Service
	Costing    *costing.Engine
	Movements  *stock.Service
	Inventory  *inventory.Service
	Planner    *allocation.Planner
	Converter  *currency.Converter
	Carts      *cart.Service
	Quotations *quotation.Service
	Checkout   *checkout.Service
}

// New builds every service over b.
func New(b Backend, opts Options) *Services {
	base := opts.BaseCurrency
	if base == "" {
		base = DefaultBaseCurrency
	}

	provider := b.Settings()
	if opts.SettingsTTL > 0 {
		provider = settings.NewCachedProvider(provider, opts.SettingsTTL)
	}

	pricingService := pricing.NewService(b.Categories(), b.Products(), provider)
	lotService := lots.NewService(b.Lots(), b)
	costs := costing.NewEngine(lotService)
	movements := stock.NewService(b.Movements())
	inv := inventory.NewService(b.Inventory(), lotService, costs, movements, b.Warehouses(), pricingService, b)
	planner := allocation.NewPlanner(b.Warehouses(), inv)
	converter := currency.NewConverter(base, b.Currencies(), opts.RateCache, opts.RateTTL)
	quotations := quotation.NewService(b.Quotations(), b.Products(), costs, pricingService, provider, b.Numerator(), b)

	return &Services{
		Settings:   provider,
		Pricing:    pricingService,
		Lots:       lotService,
		Costing:    costs,
		Movements:  movements,
		Inventory:  inv,
		Planner:    planner,
		Converter:  converter,
		Carts:      cart.NewService(b.Carts(), b.Products()),
		Quotations: quotations,
		Checkout: checkout.NewService(checkout.Deps{
			Carts:      b.Carts(),
			Products:   b.Products(),
			Orders:     b.Orders(),
			Sales:      b.Sales(),
			Quotations: quotations,
			Planner:    planner,
			Inventory:  inv,
			Converter:  converter,
			Settings:   provider,
			Numerator:  b.Numerator(),
			Events:     b.Outbox(),
			Locker:     opts.Locker,
			TxManager:  b,
		}),
	}
}
