//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// ledgerSchema mirrors internal/ledger/store/postgres. Snapshot columns are
// JSON, not JSONB: the integrity hash covers the bytes exactly as stored.
const ledgerSchema = `
CREATE TABLE IF NOT EXISTS decision_records (
    id                    UUID PRIMARY KEY,
    decision_type         TEXT NOT NULL,
    tenant_id             UUID NOT NULL,
    subject_id            TEXT,
    asset_id              UUID,
    input_snapshot        JSON NOT NULL,
    rule_version_snapshot JSON NOT NULL,
    result                TEXT NOT NULL,
    result_details        JSON NOT NULL,
    decided_by            TEXT,
    decided_at            TIMESTAMPTZ NOT NULL,
    sequence_number       BIGINT NOT NULL,
    integrity_hash        TEXT,
    previous_hash         TEXT,
    UNIQUE (tenant_id, sequence_number)
);
CREATE TABLE IF NOT EXISTS decision_sequences (
    tenant_id UUID PRIMARY KEY,
    next_seq  BIGINT NOT NULL
);`

// PostgresContainer wraps a testcontainers Postgres instance with an open
// connection pool and the ledger schema applied.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	DB        *sql.DB
}

// NewPostgresContainer starts a new Postgres container and applies the
// ledger schema.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("caelith_test"),
		tcpostgres.WithUsername("caelith"),
		tcpostgres.WithPassword("caelith"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open postgres connection: %v", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to ping postgres: %v", err)
	}

	if _, err := db.ExecContext(ctx, ledgerSchema); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to apply schema: %v", err)
	}

	// Note: We don't register t.Cleanup here because the container is managed
	// by the singleton Manager and shared across test suites. Ryuk handles cleanup.

	return &PostgresContainer{Container: container, DSN: dsn, DB: db}
}

// TruncateTables truncates the given tables. Use between tests to ensure
// isolation.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	_, err := p.DB.ExecContext(ctx,
		fmt.Sprintf("TRUNCATE TABLE %s CASCADE", strings.Join(tables, ", ")))
	return err
}
