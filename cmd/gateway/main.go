package main

import (
	"context"
	_ "embed"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/josh-kwaku/transfer-saga/internal/audit"
	"github.com/josh-kwaku/transfer-saga/internal/auth"
	"github.com/josh-kwaku/transfer-saga/internal/client"
	"github.com/josh-kwaku/transfer-saga/internal/config"
	"github.com/josh-kwaku/transfer-saga/internal/handler"
	"github.com/josh-kwaku/transfer-saga/internal/lock"
	"github.com/josh-kwaku/transfer-saga/internal/logging"
	"github.com/josh-kwaku/transfer-saga/internal/middleware"
	"github.com/josh-kwaku/transfer-saga/internal/repository"
	"github.com/josh-kwaku/transfer-saga/internal/server"
	"github.com/josh-kwaku/transfer-saga/internal/service/saga"
	"github.com/josh-kwaku/transfer-saga/internal/telemetry"
)

const serviceName = "gateway"

//go:embed openapi.yaml
var openAPISpec []byte

func main() {
	cfg, err := config.LoadGateway()
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

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("redis not reachable at startup", "addr", cfg.RedisAddr, "error", err)
	}

	pub, err := audit.New(cfg.KafkaBrokers, cfg.KafkaAuditTopic)
	if err != nil {
		slog.Error("failed to start audit publisher", "error", err)
		os.Exit(1)
	}

	clientCfg := func(baseURL string) client.Config {
		return client.Config{
			BaseURL:            baseURL,
			Timeout:            cfg.HTTPClientTimeout,
			BreakerFailures:    cfg.BreakerFailures,
			BreakerOpenTimeout: cfg.BreakerOpenDelay,
		}
	}

	orchestrator := saga.New(
		client.NewAccountsClient(clientCfg(cfg.AccountServiceURL)),
		client.NewTransfersClient(clientCfg(cfg.TransactionServiceURL)),
		client.NewUsersClient(clientCfg(cfg.UserServiceURL)),
		lock.NewRedisLocker(rdb),
		saga.Options{LockTTL: cfg.ExecuteLockTTL, OutcomeTimeout: cfg.OutcomeTimeout},
	)

	mux := http.NewServeMux()
	handler.NewHealthHandler(map[string]handler.Check{
		"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	}).Register(mux)
	mux.HandleFunc("GET /docs", handler.ServeDocs("Transfer Gateway API", "/docs/openapi.yaml"))
	mux.HandleFunc("GET /docs/openapi.yaml", handler.ServeSpec(openAPISpec))

	idempotency := repository.NewIdempotencyRepository(rdb, cfg.IdempotencyTTL)
	handler.NewGatewayHandler(orchestrator).Register(mux,
		middleware.Auth(auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer)),
		middleware.Idempotency(idempotency),
	)

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
