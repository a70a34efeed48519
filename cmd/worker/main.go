// Package main is the entry point for the almacen background worker: it
// relays outbox events, expires quotations, realigns stock records with their
// lots and prunes idempotency keys.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"almacen/internal/app"
	"almacen/internal/config"
	appctx "almacen/internal/core/context"
	"almacen/internal/infrastructure/storage/postgres"
	"almacen/internal/infrastructure/storage/postgres/store"
	"almacen/pkg/logger"
)

// Published outbox rows are kept this long before purging.
const outboxRetention = 7 * 24 * time.Hour

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

	log.Info("starting almacen worker")

	poolCfg := postgres.DefaultPoolConfig(cfg.DatabaseURL, postgres.RoleWorker)
	poolCfg.LockTimeout = cfg.DBLockTimeout
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	st, err := store.New(pool, store.Options{})
	if err != nil {
		log.Fatalw("failed to create store", "error", err)
	}
	defer st.Close()

	worker := NewWorker(cfg, st, app.New(st, app.Options{BaseCurrency: cfg.BaseCurrency}), log)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()

	wg.Wait()
	log.Info("worker stopped")
}

// Worker runs the periodic jobs.
type Worker struct {
	cfg      *config.Config
	store    *store.Store
	services *app.Services
	relay    *postgres.OutboxRelay
	log      *logger.Logger
}

// NewWorker creates a worker.
func NewWorker(cfg *config.Config, st *store.Store, services *app.Services, log *logger.Logger) *Worker {
	w := &Worker{
		cfg:      cfg,
		store:    st,
		services: services,
		log:      log.WithComponent("worker"),
	}
	w.relay = postgres.NewOutboxRelay(st.TxManager, 100, postgres.OutboxHandlerFunc(w.deliver))
	return w
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	outbox := time.NewTicker(w.cfg.WorkerOutboxInterval)
	defer outbox.Stop()

	syncTicker := time.NewTicker(w.cfg.WorkerSyncInterval)
	defer syncTicker.Stop()

	hourly := time.NewTicker(time.Hour)
	defer hourly.Stop()

	// quotations that expired while the worker was down
	w.expireQuotations(jobContext(ctx))

	for {
		select {
		case <-ctx.Done():
			return
		case <-outbox.C:
			w.processOutbox(jobContext(ctx))
		case <-syncTicker.C:
			w.syncInventory(jobContext(ctx))
		case <-hourly.C:
			jobCtx := jobContext(ctx)
			w.expireQuotations(jobCtx)
			w.cleanup(jobCtx)
		}
	}
}

// jobContext gives each run its own trace id so its log lines correlate.
func jobContext(ctx context.Context) context.Context {
	return appctx.WithTrace(ctx, appctx.NewTraceContext())
}

// deliver hands an event to downstream consumers. There are none in-process
// yet, so events are logged; a failure here would be retried by the relay.
func (w *Worker) deliver(ctx context.Context, msg *postgres.OutboxMessage) error {
	w.log.WithContext(ctx).Infow("order event",
		"event_type", msg.EventType,
		"aggregate_type", msg.AggregateType,
		"aggregate_id", msg.AggregateID,
		"payload", string(msg.Payload),
	)
	return nil
}

func (w *Worker) processOutbox(ctx context.Context) {
	n, err := w.relay.ProcessBatch(ctx)
	if err != nil {
		w.log.WithContext(ctx).Errorw("outbox batch failed", "error", err)
		return
	}
	if n > 0 {
		w.log.WithContext(ctx).Debugw("processed outbox batch", "count", n)
	}
}

func (w *Worker) syncInventory(ctx context.Context) {
	corrections, err := w.services.Inventory.SyncWithLots(ctx, nil, nil)
	if err != nil {
		w.log.WithContext(ctx).Errorw("inventory sync failed", "error", err)
		return
	}
	if len(corrections) > 0 {
		w.log.WithContext(ctx).Warnw("inventory records realigned with lots", "count", len(corrections))
	}
}

func (w *Worker) expireQuotations(ctx context.Context) {
	n, err := w.services.Quotations.ExpireDue(ctx)
	if err != nil {
		w.log.WithContext(ctx).Errorw("quotation expiry failed", "error", err)
		return
	}
	if n > 0 {
		w.log.WithContext(ctx).Infow("expired quotations", "count", n)
	}
}

func (w *Worker) cleanup(ctx context.Context) {
	postgres.LogPoolStats(ctx, w.store.Pool())

	if n, err := w.relay.MoveToDLQ(ctx); err != nil {
		w.log.WithContext(ctx).Errorw("outbox dlq move failed", "error", err)
	} else if n > 0 {
		w.log.WithContext(ctx).Warnw("moved failed events to dlq", "count", n)
	}

	if n, err := w.relay.PurgePublished(ctx, time.Now().Add(-outboxRetention)); err != nil {
		w.log.WithContext(ctx).Errorw("outbox purge failed", "error", err)
	} else if n > 0 {
		w.log.WithContext(ctx).Infow("purged published events", "count", n)
	}

	if n, err := w.store.Idempotency.CleanupExpired(ctx); err != nil {
		w.log.WithContext(ctx).Errorw("idempotency cleanup failed", "error", err)
	} else if n > 0 {
		w.log.WithContext(ctx).Infow("cleaned up idempotency keys", "count", n)
	}
}
