package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/josh-kwaku/transfer-saga/internal/api"
	"github.com/josh-kwaku/transfer-saga/internal/domain"
	"github.com/josh-kwaku/transfer-saga/internal/logging"
)

// response is the server-side form of api.Envelope; Data is encoded lazily.
type response struct {
	Success bool           `json:"success"`
	Data    any            `json:"data"`
	Error   *api.ErrorBody `json:"error"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// RespondJSON encodes before writing so a payload that cannot be encoded
// becomes a 500 rather than a truncated body behind a success status.
func RespondJSON(w http.ResponseWriter, status int, payload any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
		status = http.StatusInternalServerError
		buf.Reset()
		buf.WriteString(`{"success":false,"data":null,"error":{"code":"INTERNAL_ERROR","message":"An unexpected error occurred"}}` + "\n")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}

func RespondSuccess(w http.ResponseWriter, status int, data any) {
	RespondJSON(w, status, response{Success: true, Data: data})
}

func RespondAppError(w http.ResponseWriter, appErr *AppError, details any) {
	RespondJSON(w, appErr.Status, response{
		Error: &api.ErrorBody{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: details,
		},
	})
}

func RespondValidationError(w http.ResponseWriter, fields []FieldError) {
	RespondAppError(w, ErrValidationFailed, fields)
}

// RespondDomainError maps err through the error taxonomy. Anything outside
// it is logged in full and reported as INTERNAL_ERROR.
func RespondDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	appErr, ok := appErrorFor(err)
	log := logging.FromContext(ctx)
	switch {
	case !ok:
		log.Error("unhandled error", "error", err)
	case appErr.Status >= http.StatusInternalServerError:
		log.Error("request failed", "code", appErr.Code, "kind", domain.KindOf(err), "error", err)
	default:
		log.Info("request rejected", "code", appErr.Code, "error", err)
	}

	RespondAppError(w, appErr, nil)
}
