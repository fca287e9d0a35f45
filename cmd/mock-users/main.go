package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/josh-kwaku/transfer-saga/internal/audit"
	"github.com/josh-kwaku/transfer-saga/internal/config"
	"github.com/josh-kwaku/transfer-saga/internal/handler"
	"github.com/josh-kwaku/transfer-saga/internal/logging"
	"github.com/josh-kwaku/transfer-saga/internal/server"
	"github.com/josh-kwaku/transfer-saga/internal/service/directory"
)

const serviceName = "mock-users"

func main() {
	cfg, err := config.LoadUsers()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Init(serviceName, cfg.LogLevel, cfg.AppEnv)

	users, err := directory.Load(cfg.UsersFile)
	if err != nil {
		slog.Error("failed to load user directory", "error", err)
		os.Exit(1)
	}
	slog.Info("user directory loaded", "users", users.Len())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mux := http.NewServeMux()
	handler.NewHealthHandler(nil).Register(mux)
	handler.NewUserHandler(users).Register(mux)

	srv := server.New(cfg.Port, server.Chain(mux, server.Standard(serviceName, logger, audit.Nop{})...))
	if err := server.ListenAndRun(ctx, srv, cfg.ShutdownTimeout); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
