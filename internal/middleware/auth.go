package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/josh-kwaku/transfer-saga/internal/auth"
	"github.com/josh-kwaku/transfer-saga/internal/handler"
	"github.com/josh-kwaku/transfer-saga/internal/logging"
)

type tokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// Auth admits requests carrying a valid bearer token and scopes the request
// logger to the caller.
func Auth(v tokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
			if !found && scheme == "" {
				handler.RespondAppError(w, handler.ErrMissingToken, nil)
				return
			}
			if !strings.EqualFold(scheme, "Bearer") || token == "" {
				handler.RespondAppError(w, handler.ErrInvalidToken, nil)
				return
			}

			claims, err := v.Verify(token)
			if err != nil {
				log := logging.FromContext(r.Context())
				if errors.Is(err, jwt.ErrTokenExpired) {
					log.Info("expired bearer token")
				} else {
					log.Warn("bearer token rejected", "error", err)
				}
				handler.RespondAppError(w, handler.ErrInvalidToken, nil)
				return
			}

			ctx := auth.WithUserID(r.Context(), claims.UserID)
			ctx = logging.WithLogger(ctx, logging.FromContext(ctx).With("user_id", claims.UserID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
