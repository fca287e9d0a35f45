package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"

	"github.com/josh-kwaku/transfer-saga/internal/audit"
	"github.com/josh-kwaku/transfer-saga/internal/client"
	"github.com/josh-kwaku/transfer-saga/internal/config"
	"github.com/josh-kwaku/transfer-saga/internal/handler"
	"github.com/josh-kwaku/transfer-saga/internal/logging"
	"github.com/josh-kwaku/transfer-saga/internal/repository"
	"github.com/josh-kwaku/transfer-saga/internal/server"
	"github.com/josh-kwaku/transfer-saga/internal/service/transfer"
	"github.com/josh-kwaku/transfer-saga/internal/telemetry"
)

const serviceName = "transactions"

func main() {
	cfg, err := config.LoadTransactions()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Init(serviceName, cfg.LogLevel, cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Setup(ctx, serviceName, cfg.OTelEndpoint)
	if err != nil {
		slog.Error("failed to set up telemetry", "error", err)
		os.Exit(1)
	}

	db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	})
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	pub, err := audit.New(cfg.KafkaBrokers, cfg.KafkaAuditTopic)
	if err != nil {
		slog.Error("failed to start audit publisher", "error", err)
		os.Exit(1)
	}

	accounts := client.NewAccountsClient(client.Config{
		BaseURL: cfg.AccountServiceURL,
		Timeout: cfg.HTTPClientTimeout,
	})
	svc := transfer.NewService(repository.NewTransferRepository(db), accounts)

	mux := http.NewServeMux()
	handler.NewHealthHandler(map[string]handler.Check{
		"database": db.PingContext,
	}).Register(mux)
	handler.NewTransferHandler(svc).Register(mux)

	srv := server.New(cfg.Port, server.Chain(mux, server.Standard(serviceName, logger, pub)...))
	if err := server.ListenAndRun(ctx, srv, cfg.ShutdownTimeout); err != nil {
		slog.Error("server error", "error", err)
	}

	if err := pub.Close(); err != nil {
		slog.Warn("failed to close audit publisher", "error", err)
	}
	if err := shutdownTelemetry(context.Background()); err != nil {
		slog.Warn("failed to flush traces", "error", err)
	}
}
