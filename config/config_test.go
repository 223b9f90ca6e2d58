package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/fee-engine/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr())
	assert.Equal(t, "fee-engine.db", cfg.DB.Path)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fee-engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
cache:
  backend: redis
  ttl: 1m
redis:
  addr: cache:6379
log:
  level: debug
`), 0o600))
	t.Setenv("FEE_ENGINE_DB_PATH", "/var/lib/fee-engine/data.db")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/var/lib/fee-engine/data.db", cfg.DB.Path)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("FEE_ENGINE_CACHE_BACKEND", "memcached")
	_, err := config.Load("")
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	log, err := config.LogConfig{Level: "warn"}.NewLogger()
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(-1))

	_, err = config.LogConfig{Level: "loud"}.NewLogger()
	assert.Error(t, err)
}
