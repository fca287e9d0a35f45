// Package client calls the accounts, transactions and user services over
// HTTP. Transport failures, timeouts, 5xx responses and an open breaker all
// surface as domain.ErrUnavailable; business errors come back as the same
// domain errors the remote service produced.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/josh-kwaku/transfer-saga/internal/api"
	"github.com/josh-kwaku/transfer-saga/internal/domain"
	"github.com/josh-kwaku/transfer-saga/internal/logging"
	"github.com/josh-kwaku/transfer-saga/internal/middleware"
)

const maxResponseBytes = 1 << 20

type Config struct {
	BaseURL string
	Timeout time.Duration
	// BreakerFailures consecutive unavailable responses open the breaker for
	// BreakerOpenTimeout.
	BreakerFailures    uint32
	BreakerOpenTimeout time.Duration
}

type base struct {
	name    string
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
}

func newBase(name string, cfg Config) *base {
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.FromContext(context.Background()).Warn("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		// Business rejections mean the remote side is healthy.
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, domain.ErrUnavailable)
		},
	}

	return &base{
		name:    name,
		baseURL: cfg.BaseURL,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

func (b *base) do(ctx context.Context, method, path string, body, out any) error {
	_, err := b.breaker.Execute(func() (any, error) {
		return nil, b.roundTrip(ctx, method, path, body, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%s %s %s: %w: %v", b.name, method, path, domain.ErrUnavailable, err)
	}
	return err
}

func (b *base) roundTrip(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s %s %s: encode: %w", b.name, method, path, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s %s %s: %w", b.name, method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := middleware.TraceIDFromContext(ctx); id != "" {
		req.Header.Set(middleware.RequestIDHeader, id)
	}

	resp, err := b.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s %s: %w: %v", b.name, method, path, domain.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	var env api.Envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&env); err != nil {
		return fmt.Errorf("%s %s %s: %w: status %d with unreadable body: %v",
			b.name, method, path, domain.ErrUnavailable, resp.StatusCode, err)
	}

	if resp.StatusCode < http.StatusBadRequest && env.Success {
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%s %s %s: decode data: %w", b.name, method, path, err)
		}
		return nil
	}

	return remoteError(b.name, method, path, resp.StatusCode, env.Error)
}

func remoteError(name, method, path string, status int, body *api.ErrorBody) error {
	if body == nil {
		return fmt.Errorf("%s %s %s: %w: status %d", name, method, path, domain.ErrUnavailable, status)
	}
	if status < http.StatusInternalServerError {
		if err := domain.FromCode(body.Code, body.Message); err != nil {
			return fmt.Errorf("%s %s %s: %w", name, method, path, err)
		}
		return fmt.Errorf("%s %s %s: %w: status %d code %s: %s",
			name, method, path, domain.ErrInvalidInput, status, body.Code, body.Message)
	}
	if status == http.StatusServiceUnavailable {
		if err := domain.FromCode(body.Code, body.Message); errors.Is(err, domain.ErrUnavailable) {
			return fmt.Errorf("%s %s %s: %w", name, method, path, err)
		}
	}
	return fmt.Errorf("%s %s %s: %w: status %d code %s: %s",
		name, method, path, domain.ErrUnavailable, status, body.Code, body.Message)
}
