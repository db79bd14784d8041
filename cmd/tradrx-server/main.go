package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"tradrx/internal/api"
	"tradrx/internal/config"
	"tradrx/internal/domain"
	"tradrx/internal/httpapi"
	"tradrx/internal/ledger"
	"tradrx/internal/metrics"
	"tradrx/internal/store"
	"tradrx/internal/util"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("loading .env: %v", err)
	}

	// Load config.
	cfgPath := "config/tradrx.yaml"
	if p := os.Getenv("TRADRX_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	// Setup logging.
	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st, err := openStore(cfg.Storage)
	if err != nil {
		log.Fatalf("opening store: %v", err)
	}
	defer st.Close()

	m := metrics.New()
	l, err := ledger.Open(ctx, st,
		ledger.WithLogger(logger),
		ledger.WithMetrics(m),
		ledger.WithRiskManager(riskManager(cfg.Trading)),
	)
	if errors.Is(err, domain.ErrCorruptStorage) {
		log.Fatalf("refusing to start on corrupt storage (fix or move %s): %v", storeLocation(cfg.Storage), err)
	}
	if err != nil {
		log.Fatalf("loading ledger: %v", err)
	}

	hub := api.NewHub(l, logger)
	handler := httpapi.NewLedgerServer(l, logger,
		httpapi.WithMetrics(m),
		httpapi.WithRateLimit(cfg.Server.RateLimitPerSec, cfg.Server.RateLimitBurst),
		httpapi.WithCORSOrigin(cfg.Server.CORSOrigin),
		httpapi.WithLiveFeed(hub),
	).Handler()

	srv := api.NewServer(cfg.Server, handler, hub, logger)
	logger.Info("tradrx-server starting",
		"addr", cfg.Server.Addr(),
		"grpc_port", cfg.Server.GRPCPort,
		"backend", cfg.Storage.Backend,
		"store", storeLocation(cfg.Storage),
	)
	if err := srv.ListenAndServe(ctx); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("tradrx-server stopped")
}

func openStore(cfg config.Storage) (store.SnapshotStore, error) {
	if cfg.Backend == config.BackendSQLite {
		return store.NewSQLiteStore(cfg.SQLitePath)
	}
	return store.NewJSONStore(cfg.DataFile), nil
}

func storeLocation(cfg config.Storage) string {
	if cfg.Backend == config.BackendSQLite {
		return cfg.SQLitePath
	}
	return cfg.DataFile
}

// riskManager returns nil when no limit is configured.
func riskManager(cfg config.Trading) *ledger.RiskManager {
	if cfg.MaxTradeQuantity == 0 && cfg.MaxPosition == 0 {
		return nil
	}
	return ledger.NewRiskManager(cfg.MaxTradeQuantity, cfg.MaxPosition)
}
