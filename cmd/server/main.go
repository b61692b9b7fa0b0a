package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	_ "github.com/lib/pq"

	"github.com/julianlaycock/caelith-sub002/internal/decision"
	ledgerhandler "github.com/julianlaycock/caelith-sub002/internal/ledger/handler"
	ledgersvc "github.com/julianlaycock/caelith-sub002/internal/ledger/service"
	"github.com/julianlaycock/caelith-sub002/internal/ledger/store"
	"github.com/julianlaycock/caelith-sub002/internal/ledger/store/memory"
	ledgerpg "github.com/julianlaycock/caelith-sub002/internal/ledger/store/postgres"
	"github.com/julianlaycock/caelith-sub002/internal/ledger/store/redisseq"
	"github.com/julianlaycock/caelith-sub002/internal/platform/config"
	"github.com/julianlaycock/caelith-sub002/internal/platform/httpserver"
	"github.com/julianlaycock/caelith-sub002/internal/platform/logger"
	"github.com/julianlaycock/caelith-sub002/internal/platform/metrics"
	platformredis "github.com/julianlaycock/caelith-sub002/internal/platform/redis"
	httptransport "github.com/julianlaycock/caelith-sub002/internal/transport/http"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	records, cleanup, err := buildRecordStore(cfg, log)
	if err != nil {
		log.Error("store init failed", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	writer := ledgersvc.NewWriter(records, log)
	integrity := ledgersvc.NewIntegrity(records, log)
	decisions := decision.New(writer, integrity, log, decision.WithMetrics(m))

	handler := httptransport.NewHandler(decisions, log)
	ledgerAdmin := ledgerhandler.New(integrity, m, log)
	router := httptransport.NewRouter(handler, ledgerAdmin, cfg.AdminToken)

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting caelith decision engine", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}

// buildRecordStore selects Postgres when a DSN is configured, otherwise the
// in-memory ledger, optionally with a Redis-backed shared sequence
// allocator for multi-instance deployments.
func buildRecordStore(cfg config.Server, log *slog.Logger) (store.RecordStore, func(), error) {
	cleanup := func() {}

	if cfg.Postgres.DSN != "" {
		db, err := sql.Open("postgres", cfg.Postgres.DSN)
		if err != nil {
			return nil, cleanup, err
		}
		if err := db.Ping(); err != nil {
			return nil, cleanup, err
		}
		log.Info("ledger store: postgres")
		return ledgerpg.New(db), func() { _ = db.Close() }, nil
	}

	var opts []memory.Option
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return nil, cleanup, err
	}
	if redisClient != nil {
		opts = append(opts, memory.WithAllocator(redisseq.New(redisClient.Client)))
		cleanup = func() { _ = redisClient.Close() }
		log.Info("ledger store: memory with redis sequence allocator")
	} else {
		log.Info("ledger store: memory")
	}
	return memory.NewInMemoryStore(opts...), cleanup, nil
}
