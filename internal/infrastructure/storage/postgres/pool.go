// Package postgres provides the PostgreSQL connection pool, transaction manager
// and the shared plumbing (outbox, audit, batch insert) of the repositories.
package postgres

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"almacen/pkg/logger"
)

// Role is the process a pool serves. It names the session in
// pg_stat_activity and picks the pool size.
type Role string

const (
	RoleServer Role = "server"
	RoleWorker Role = "worker"
	RoleSeed   Role = "seed"
)

// PoolConfig holds connection pool configuration.
type PoolConfig struct {
	DSN      string
	Role     Role
	MaxConns int32
	MinConns int32

	// LockTimeout bounds the wait on a locked inventory, lot or order row.
	// A checkout that cannot lock in time fails with CONFLICT instead of queueing.
	LockTimeout time.Duration

	// StatementTimeout is applied to every transaction started on the pool.
	StatementTimeout time.Duration

	// IdleInTxTimeout ends sessions that sit on row locks without working.
	IdleInTxTimeout time.Duration
}

// DefaultPoolConfig sizes the pool for role. The HTTP server holds one
// connection per in-flight checkout; the worker runs its jobs one at a time.
func DefaultPoolConfig(dsn string, role Role) PoolConfig {
	cfg := PoolConfig{
		DSN:              dsn,
		Role:             role,
		MaxConns:         25,
		MinConns:         5,
		LockTimeout:      5 * time.Second,
		StatementTimeout: 30 * time.Second,
		IdleInTxTimeout:  time.Minute,
	}
	switch role {
	case RoleWorker:
		cfg.MaxConns, cfg.MinConns = 5, 1
		// the sync job scans every inventory record
		cfg.StatementTimeout = 2 * time.Minute
	case RoleSeed:
		cfg.MaxConns, cfg.MinConns = 2, 0
	}
	return cfg
}

// runtimeParams are sent in the startup packet, so they hold for every
// session of the pool, including the LISTEN connection.
func (c PoolConfig) runtimeParams() map[string]string {
	role := c.Role
	if role == "" {
		role = RoleServer
	}
	params := map[string]string{
		"application_name": "almacen-" + string(role),
		"timezone":         "UTC",
	}
	if c.LockTimeout > 0 {
		params["lock_timeout"] = strconv.FormatInt(c.LockTimeout.Milliseconds(), 10)
	}
	if c.IdleInTxTimeout > 0 {
		params["idle_in_transaction_session_timeout"] = strconv.FormatInt(c.IdleInTxTimeout.Milliseconds(), 10)
	}
	return params
}

// Pool is the shared pgx pool plus the per-transaction limits derived from its config.
type Pool struct {
	*pgxpool.Pool
	statementTimeout time.Duration
}

// Unwrap returns the underlying pgxpool.Pool.
func (p *Pool) Unwrap() *pgxpool.Pool {
	return p.Pool
}

// NewPool connects and pings the database.
func NewPool(ctx context.Context, cfg PoolConfig) (*Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute
	for k, v := range cfg.runtimeParams() {
		poolConfig.ConnConfig.RuntimeParams[k] = v
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Pool{Pool: pool, statementTimeout: cfg.StatementTimeout}, nil
}

// LogPoolStats logs pool usage. A pool with every connection acquired logs
// at Warn: checkouts are queueing for connections.
func LogPoolStats(ctx context.Context, pool *pgxpool.Pool) {
	stat := pool.Stat()
	kv := []any{
		"total", stat.TotalConns(),
		"acquired", stat.AcquiredConns(),
		"idle", stat.IdleConns(),
		"max", stat.MaxConns(),
		"waited_acquires", stat.EmptyAcquireCount(),
		"canceled_acquires", stat.CanceledAcquireCount(),
		"acquire_duration", stat.AcquireDuration(),
	}
	if stat.AcquiredConns() >= stat.MaxConns() {
		logger.Warn(ctx, "database pool saturated", kv...)
		return
	}
	logger.Info(ctx, "database pool stats", kv...)
}
