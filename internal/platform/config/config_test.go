package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{
		"CAELITH_ADDR", "CAELITH_ADMIN_TOKEN", "CAELITH_POSTGRES_DSN",
		"CAELITH_REDIS_URL", "CAELITH_REDIS_POOL_SIZE",
	} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.Addr)
	assert.NotEmpty(t, cfg.AdminToken)
	assert.Empty(t, cfg.Postgres.DSN)
	assert.Empty(t, cfg.Redis.URL)
	assert.Equal(t, 10, cfg.Redis.PoolSize)
	assert.Equal(t, 5*time.Second, cfg.Redis.DialTimeout)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("CAELITH_ADDR", ":9090")
	t.Setenv("CAELITH_ADMIN_TOKEN", "prod-token")
	t.Setenv("CAELITH_POSTGRES_DSN", "postgres://caelith@localhost/ledger")
	t.Setenv("CAELITH_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("CAELITH_REDIS_POOL_SIZE", "25")

	cfg := FromEnv()

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "prod-token", cfg.AdminToken)
	assert.Equal(t, "postgres://caelith@localhost/ledger", cfg.Postgres.DSN)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, 25, cfg.Redis.PoolSize)
}

func TestFromEnv_IgnoresMalformedInts(t *testing.T) {
	t.Setenv("CAELITH_REDIS_POOL_SIZE", "lots")

	cfg := FromEnv()

	assert.Equal(t, 10, cfg.Redis.PoolSize)
}
