package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/josh-kwaku/transfer-saga/internal/audit"
	"github.com/josh-kwaku/transfer-saga/internal/middleware"
)

type Middleware func(http.Handler) http.Handler

// Chain applies mws so that the first one listed is the outermost.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Standard is the stack every service runs behind.
func Standard(service string, logger *slog.Logger, pub audit.Publisher) []Middleware {
	return []Middleware{
		middleware.Recovery,
		middleware.Telemetry(service),
		middleware.Tracing,
		middleware.Logging(logger),
		middleware.BodyLimit(middleware.MaxRequestBody),
		middleware.Audit(service, pub),
	}
}

func New(port int, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           h,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Run serves on ln until ctx is cancelled, then drains in-flight requests
// for at most shutdownTimeout.
func Run(ctx context.Context, srv *http.Server, ln net.Listener, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server started", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server.Run: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server.Run: shutdown: %w", err)
	}
	slog.Info("server stopped")
	return nil
}

// ListenAndRun opens srv.Addr and calls Run.
func ListenAndRun(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration) error {
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("server.ListenAndRun: %w", err)
	}
	return Run(ctx, srv, ln, shutdownTimeout)
}
