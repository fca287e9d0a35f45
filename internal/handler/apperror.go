package handler

import (
	"errors"
	"net/http"

	"github.com/josh-kwaku/transfer-saga/internal/domain"
)

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrMissingToken          = &AppError{http.StatusUnauthorized, "MISSING_TOKEN", "Authorization header required"}
	ErrInvalidToken          = &AppError{http.StatusUnauthorized, "INVALID_TOKEN", "Token is invalid or expired"}
	ErrInvalidRequest        = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed      = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrResourceNotFound      = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrInternalError         = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}
	ErrMissingIdempotencyKey = &AppError{http.StatusBadRequest, "MISSING_IDEMPOTENCY_KEY", "Idempotency-Key header is required"}
	ErrIdempotencyConflict   = &AppError{http.StatusConflict, "IDEMPOTENCY_CONFLICT", "Idempotency key already used with a different request"}
	ErrIdempotencyInFlight   = &AppError{http.StatusConflict, "IDEMPOTENCY_IN_FLIGHT", "A request with this idempotency key is still being processed"}
	ErrRequestTooLarge       = &AppError{http.StatusRequestEntityTooLarge, "REQUEST_TOO_LARGE", "Request body too large"}
)

var kindStatus = []struct {
	kind   error
	status int
}{
	{domain.ErrInvalidInput, http.StatusBadRequest},
	{domain.ErrNotFound, http.StatusNotFound},
	{domain.ErrInvalidAccountState, http.StatusUnprocessableEntity},
	{domain.ErrInsufficientFunds, http.StatusUnprocessableEntity},
	{domain.ErrInvalidTransaction, http.StatusConflict},
	{domain.ErrUnavailable, http.StatusServiceUnavailable},
	{domain.ErrReconciliation, http.StatusInternalServerError},
}

// appErrorFor maps a domain error onto its wire code and HTTP status. Errors
// outside the taxonomy become ErrInternalError.
func appErrorFor(err error) (*AppError, bool) {
	code, msg, ok := domain.Describe(err)
	if !ok {
		return ErrInternalError, false
	}
	for _, ks := range kindStatus {
		if errors.Is(err, ks.kind) {
			return &AppError{Status: ks.status, Code: code, Message: msg}, true
		}
	}
	return ErrInternalError, false
}
