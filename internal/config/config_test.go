package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(viper.New(), t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "PEN", cfg.BaseCurrency)
	assert.Equal(t, time.Hour, cfg.ExchangeRateTTL)
	assert.Equal(t, 15*time.Minute, cfg.WorkerSyncInterval)
	assert.Equal(t, 5*time.Second, cfg.DBLockTimeout)
	assert.Equal(t, 30*time.Second, cfg.DBStatementTimeout)
	assert.Empty(t, cfg.RedisURL)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, ":8080", cfg.Addr())
}

func TestLoad_EnvOverridesDotEnv(t *testing.T) {
	dir := t.TempDir()
	content := "APP_PORT=9000\nBASE_CURRENCY=usd\nEXCHANGE_RATE_TTL=10m\nAPP_ENV=production\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0o600))
	t.Setenv("APP_PORT", "9100")

	cfg, err := load(viper.New(), dir)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, "USD", cfg.BaseCurrency)
	assert.Equal(t, 10*time.Minute, cfg.ExchangeRateTTL)
	assert.True(t, cfg.IsProduction())
}

func TestLoad_RejectsBadCurrency(t *testing.T) {
	t.Setenv("BASE_CURRENCY", "SOLES")

	_, err := load(viper.New(), t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BASE_CURRENCY")
}

func TestLoad_RejectsNegativeLockTimeout(t *testing.T) {
	t.Setenv("DB_LOCK_TIMEOUT", "-1s")

	_, err := load(viper.New(), t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeouts")
}
