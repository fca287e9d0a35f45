package middleware

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/josh-kwaku/transfer-saga/internal/audit"
)

const maxAuditContent = 4 << 10

type auditPublisher interface {
	Publish(ctx context.Context, e audit.Event)
}

// Audit publishes one record for the incoming request and one for the
// response. Probe traffic is skipped.
func Audit(service string, pub auditPublisher) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/health") {
				next.ServeHTTP(w, r)
				return
			}

			body, ok := bufferBody(w, r)
			if !ok {
				return
			}

			requestID := TraceIDFromContext(r.Context())
			pub.Publish(r.Context(), audit.Event{
				RequestID: requestID,
				Service:   service,
				Direction: audit.DirectionRequest,
				Endpoint:  r.URL.Path,
				Method:    r.Method,
				Content:   truncate(body),
				Timestamp: time.Now().UTC(),
			})

			rec := &responseRecorder{ResponseWriter: w, body: &bytes.Buffer{}, statusCode: http.StatusOK}
			next.ServeHTTP(rec, r)

			pub.Publish(r.Context(), audit.Event{
				RequestID: requestID,
				Service:   service,
				Direction: audit.DirectionResponse,
				Endpoint:  r.URL.Path,
				Method:    r.Method,
				Status:    rec.statusCode,
				Content:   truncate(rec.body.Bytes()),
				Timestamp: time.Now().UTC(),
			})
		})
	}
}

func truncate(b []byte) string {
	if len(b) > maxAuditContent {
		b = b[:maxAuditContent]
	}
	return strings.TrimSpace(string(b))
}
