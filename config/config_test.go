package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv evita que variables del entorno del CI contaminen los tests.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"STORAGE_DRIVER", "STORAGE_DSN", "SQLITE_PATH", "REDIS_ADDR", "REDIS_PASSWORD",
		"REDIS_DB", "FEATURE_CACHE_TTL_DAYS", "MAX_WORKERS", "HOLDING_DAYS",
		"LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "alphaspike.db", cfg.StorageDSN())
	assert.Equal(t, 14*24*time.Hour, cfg.CacheTTL())
	assert.Equal(t, 2*time.Second, cfg.RedisTimeout())
	assert.Equal(t, 6, cfg.Scan.Workers)
	assert.Equal(t, 5, cfg.Backtest.HoldingDays)
	assert.Equal(t, 6, cfg.Backtest.Workers)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoad_YAMLAndEnvOverrides(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
storage:
  sqlite_path: data/stocks.db
redis:
  addr: localhost:6379
  db: 2
cache:
  ttl_days: 7
scan:
  workers: 3
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	t.Setenv("MAX_WORKERS", "12")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "data/stocks.db", cfg.StorageDSN())
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, 7*24*time.Hour, cfg.CacheTTL())
	assert.Equal(t, 12, cfg.Scan.Workers, "env wins over YAML")
	assert.Equal(t, 12, cfg.Backtest.Workers, "MAX_WORKERS sizes both pools")
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_DSNTakesPrecedence(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("STORAGE_DSN", "postgres://u:p@localhost/alpha?sslmode=disable")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, "postgres://u:p@localhost/alpha?sslmode=disable", cfg.StorageDSN())
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	t.Run("bad integer env", func(t *testing.T) {
		t.Setenv("REDIS_DB", "two")
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "REDIS_DB")
	})

	t.Run("bad yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("scan: [unclosed"), 0o600))
		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse YAML")
	})
}
