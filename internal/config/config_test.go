package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.HTTPPort)
	assert.Equal(t, BackendPostgres, cfg.StoreBackend)
	assert.Equal(t, 168*time.Hour, cfg.AccessTTL)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.True(t, cfg.UseRedis())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "sqlite")
	t.Setenv("QUEUE_BACKEND", "memory")
	t.Setenv("RATE_LIMIT_PER_MIN", "30")
	t.Setenv("ACCESS_TTL", "2h")
	t.Setenv("TIME_ZONE", "Asia/Kolkata")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, cfg.StoreBackend)
	assert.Equal(t, 30, cfg.RateLimitPerMin)
	assert.Equal(t, 2*time.Hour, cfg.AccessTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.False(t, cfg.UseRedis())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Kolkata", loc.String())
}

func TestLoadBackendNamesIgnoreCase(t *testing.T) {
	t.Setenv("STORE_BACKEND", "SQLite")
	t.Setenv("QUEUE_BACKEND", " Memory ")
	t.Setenv("RATE_LIMIT_BACKEND", "REDIS")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, cfg.StoreBackend)
	assert.Equal(t, BackendMemory, cfg.QueueBackend)
	assert.Equal(t, BackendRedis, cfg.RateLimitBackend)
	assert.True(t, cfg.UseRedis())

	t.Setenv("RATE_LIMIT_BACKEND", "Memory")
	cfg, err = Load()
	require.NoError(t, err)
	assert.False(t, cfg.UseRedis(), "memory queue and limiter need no redis client")
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{name: "bad int", key: "RATE_LIMIT_PER_MIN", value: "lots"},
		{name: "zero rate", key: "RATE_LIMIT_PER_MIN", value: "0"},
		{name: "bad duration", key: "ACCESS_TTL", value: "soon"},
		{name: "unknown store", key: "STORE_BACKEND", value: "mongo"},
		{name: "unknown queue", key: "QUEUE_BACKEND", value: "kafka"},
		{name: "unknown zone", key: "TIME_ZONE", value: "Mars/Olympus"},
		{name: "prod with dev key", key: "APP_ENV", value: "production"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
