package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/transfer-saga/internal/auth"
	"github.com/josh-kwaku/transfer-saga/internal/domain"
	"github.com/josh-kwaku/transfer-saga/internal/handler"
	"github.com/josh-kwaku/transfer-saga/internal/logging"
	"github.com/josh-kwaku/transfer-saga/internal/repository"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	ReplayedHeader       = "X-Idempotent-Replayed"

	maxIdempotencyKeyLen = 128
)

type idempotencyStore interface {
	Reserve(ctx context.Context, entry *repository.IdempotencyCacheEntry) (bool, *repository.IdempotencyCacheEntry, error)
	Set(ctx context.Context, entry *repository.IdempotencyCacheEntry) error
	Release(ctx context.Context, key string, userID uuid.UUID) error
}

// Idempotency makes a mutating route safe to retry. The key is reserved
// before the handler runs, so concurrent requests sharing it reach the
// handler at most once; the others get a conflict while the first is in
// flight and a replay of its response afterwards. A different body under the
// same key is a conflict. Server errors release the key so that a retry
// reaches the handler again. It must run after Auth.
func Idempotency(store idempotencyStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			key := r.Header.Get(IdempotencyKeyHeader)
			switch {
			case key == "":
				handler.RespondAppError(w, handler.ErrMissingIdempotencyKey, nil)
				return
			case len(key) > maxIdempotencyKeyLen:
				handler.RespondValidationError(w, []handler.FieldError{
					{Field: IdempotencyKeyHeader, Message: fmt.Sprintf("must be at most %d characters", maxIdempotencyKeyLen)},
				})
				return
			}

			userID, ok := auth.UserID(ctx)
			if !ok {
				handler.RespondAppError(w, handler.ErrMissingToken, nil)
				return
			}

			body, ok := bufferBody(w, r)
			if !ok {
				return
			}

			log := logging.FromContext(ctx).With("idempotency_key", key)
			entry := &repository.IdempotencyCacheEntry{
				Key:         key,
				UserID:      userID,
				RequestHash: requestFingerprint(r.Method, r.URL.Path, body),
				CreatedAt:   time.Now().UTC(),
			}

			reserved, held, err := store.Reserve(ctx, entry)
			if err != nil {
				handler.RespondDomainError(ctx, w, fmt.Errorf("Idempotency: %w: %v", domain.ErrUnavailable, err))
				return
			}
			if !reserved {
				switch {
				case held != nil && held.RequestHash != entry.RequestHash:
					log.Info("idempotency key reused with a different request")
					handler.RespondAppError(w, handler.ErrIdempotencyConflict, nil)
				case held == nil || !held.Complete():
					log.Info("idempotency key already in flight")
					handler.RespondAppError(w, handler.ErrIdempotencyInFlight, nil)
				default:
					replay(ctx, w, held)
				}
				return
			}

			wctx := context.WithoutCancel(ctx)
			completed := false
			defer func() {
				if completed {
					return
				}
				if err := store.Release(wctx, key, userID); err != nil {
					log.Error("failed to release idempotency key", "error", err)
				}
			}()

			rec := &responseRecorder{ResponseWriter: w, body: &bytes.Buffer{}, statusCode: http.StatusOK}
			next.ServeHTTP(rec, r)
			if rec.statusCode >= http.StatusInternalServerError {
				return
			}

			// The handler ran. If the response cannot be stored the reservation
			// is left to expire rather than inviting a second run.
			completed = true
			entry.StatusCode = rec.statusCode
			entry.ResponseBody = rec.body.Bytes()
			if err := store.Set(wctx, entry); err != nil {
				log.Error("failed to store idempotent response", "error", err)
			}
		})
	}
}

func replay(ctx context.Context, w http.ResponseWriter, e *repository.IdempotencyCacheEntry) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(ReplayedHeader, "true")
	w.WriteHeader(e.StatusCode)
	if _, err := w.Write(e.ResponseBody); err != nil {
		logging.FromContext(ctx).Warn("failed to write replayed response", "error", err)
	}
}

func requestFingerprint(method, path string, body []byte) string {
	h := sha256.New()
	for _, part := range [][]byte{[]byte(method), []byte(path), body} {
		h.Write(part)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// responseRecorder tees the response so middleware can inspect it after the
// handler returns.
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (r *responseRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
