package postgres

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"almacen/internal/core/apperror"
)

func TestDefaultPoolConfig_SizesByRole(t *testing.T) {
	server := DefaultPoolConfig("postgres://x", RoleServer)
	worker := DefaultPoolConfig("postgres://x", RoleWorker)
	seed := DefaultPoolConfig("postgres://x", RoleSeed)

	assert.Equal(t, int32(25), server.MaxConns)
	assert.Equal(t, int32(5), worker.MaxConns)
	assert.Equal(t, int32(2), seed.MaxConns)
	assert.Greater(t, worker.StatementTimeout, server.StatementTimeout)
	assert.Equal(t, 5*time.Second, server.LockTimeout)
}

func TestPoolConfig_RuntimeParams(t *testing.T) {
	cfg := DefaultPoolConfig("postgres://x", RoleWorker)
	cfg.LockTimeout = 1500 * time.Millisecond

	params := cfg.runtimeParams()

	assert.Equal(t, "almacen-worker", params["application_name"])
	assert.Equal(t, "UTC", params["timezone"])
	assert.Equal(t, "1500", params["lock_timeout"])
	assert.Equal(t, "60000", params["idle_in_transaction_session_timeout"])

	cfg.LockTimeout = 0
	cfg.Role = ""
	params = cfg.runtimeParams()
	assert.NotContains(t, params, "lock_timeout")
	assert.Equal(t, "almacen-server", params["application_name"])
}

func TestMapError_LockTimeoutIsConflict(t *testing.T) {
	err := MapError("get reg_inventory", &pgconn.PgError{Code: pgLockNotAvailable})

	assert.True(t, apperror.HasCode(err, apperror.CodeConflict))
}
