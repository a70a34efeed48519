// Package main is the entry point for the almacen API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"almacen/internal/app"
	"almacen/internal/config"
	"almacen/internal/infrastructure/cache"
	v1 "almacen/internal/infrastructure/http/v1"
	"almacen/internal/infrastructure/http/v1/handlers"
	"almacen/internal/infrastructure/storage/postgres"
	"almacen/internal/infrastructure/storage/postgres/store"
	"almacen/pkg/logger"
)

const version = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: !cfg.IsProduction(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Infow("starting almacen server", "env", cfg.Env, "base_currency", cfg.BaseCurrency)

	// --- Database ---
	poolCfg := postgres.DefaultPoolConfig(cfg.DatabaseURL, postgres.RoleServer)
	poolCfg.MaxConns = cfg.DBMaxConns
	poolCfg.LockTimeout = cfg.DBLockTimeout
	poolCfg.StatementTimeout = cfg.DBStatementTimeout
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	st, err := store.New(pool, store.Options{})
	if err != nil {
		log.Fatalw("failed to create store", "error", err)
	}
	defer st.Close()

	// --- Redis (optional) ---
	opts := app.Options{
		BaseCurrency: cfg.BaseCurrency,
		RateTTL:      cfg.ExchangeRateTTL,
		SettingsTTL:  cfg.SettingsCacheTTL,
	}
	healthChecks := map[string]handlers.Check{}
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = cache.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalw("failed to connect to redis", "error", err)
		}
		defer rdb.Close()

		opts.RateCache = cache.NewRateCache(rdb)
		opts.Locker = cache.NewLocker(rdb, cfg.CheckoutLockTTL)
		healthChecks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		log.Info("redis connection established")
	} else {
		log.Warn("REDIS_URL not set: exchange rates are not cached and checkouts are not locked")
	}

	services := app.New(st, opts)

	// settings changed by another process reach this one through LISTEN/NOTIFY
	var listener *cache.SettingsListener
	if inv, ok := services.Settings.(cache.Invalidator); ok {
		listener = cache.NewSettingsListener(pool.Unwrap(), inv)
		listener.Start(ctx)
		defer listener.Stop()
	}

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Services:    services,
		Logger:      log,
		Health:      handlers.NewHealthHandler(pool, version, healthChecks),
		Audit:       st.Audit,
		Idempotency: st.Idempotency,
		Production:  cfg.IsProduction(),
	})

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}
