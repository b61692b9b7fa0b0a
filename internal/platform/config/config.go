package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr       string
	AdminToken string
	Postgres   PostgresConfig
	Redis      RedisConfig
}

// PostgresConfig holds the ledger database settings. An empty DSN selects
// the in-memory store.
type PostgresConfig struct {
	DSN string
}

// RedisConfig holds the optional shared sequence allocator settings. An
// empty URL disables Redis; sequence allocation then stays store-local.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("CAELITH_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	adminToken := os.Getenv("CAELITH_ADMIN_TOKEN")
	if adminToken == "" {
		// Development default; override in any shared environment.
		adminToken = "dev-admin-token-change-me"
	}

	return Server{
		Addr:       addr,
		AdminToken: adminToken,
		Postgres: PostgresConfig{
			DSN: os.Getenv("CAELITH_POSTGRES_DSN"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("CAELITH_REDIS_URL"),
			PoolSize:     envInt("CAELITH_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("CAELITH_REDIS_MIN_IDLE", 2),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
	}
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
