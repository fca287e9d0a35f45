package middleware

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/josh-kwaku/transfer-saga/internal/handler"
)

// MaxRequestBody caps every request body read by the services.
const MaxRequestBody = 1 << 20

// BodyLimit makes reads past limit fail with *http.MaxBytesError.
func BodyLimit(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// bufferBody reads the whole body and puts a replayable copy back on r. On
// failure the error response has been written and ok is false.
func bufferBody(w http.ResponseWriter, r *http.Request) (body []byte, ok bool) {
	if r.Body == nil {
		return nil, true
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			handler.RespondAppError(w, handler.ErrRequestTooLarge, nil)
		} else {
			handler.RespondAppError(w, handler.ErrInvalidRequest, nil)
		}
		return nil, false
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, true
}
