package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/josh-kwaku/transfer-saga/internal/api"
	"github.com/josh-kwaku/transfer-saga/internal/domain"
)

type transferService interface {
	RecordInitiation(ctx context.Context, req domain.InitiationRequest) (*domain.Transfer, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Transfer, error)
	MarkOutcome(ctx context.Context, id uuid.UUID, outcome domain.TransferStatus, reason *string) (*domain.Transfer, error)
	History(ctx context.Context, accountID uuid.UUID) ([]domain.HistoryEntry, error)
}

// TransferHandler serves the transfer ledger's internal API.
type TransferHandler struct {
	transfers transferService
}

func NewTransferHandler(transfers transferService) *TransferHandler {
	return &TransferHandler{transfers: transfers}
}

func (h *TransferHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /transfers", h.Create)
	mux.HandleFunc("GET /transfers/{id}", h.Get)
	mux.HandleFunc("POST /transfers/{id}/outcome", h.MarkOutcome)
	mux.HandleFunc("GET /accounts/{id}/transfers", h.History)
}

func validateInitiation(r api.InitiationRequest) []FieldError {
	var errs []FieldError
	if r.FromAccountID == uuid.Nil {
		errs = append(errs, FieldError{Field: "from_account_id", Message: "required"})
	}
	if r.ToAccountID == uuid.Nil {
		errs = append(errs, FieldError{Field: "to_account_id", Message: "required"})
	}
	return errs
}

func (h *TransferHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req api.InitiationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := validateInitiation(req); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	t, err := h.transfers.RecordInitiation(r.Context(), domain.InitiationRequest{
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		Amount:        req.Amount,
		Description:   req.Description,
	})
	if err != nil {
		RespondDomainError(r.Context(), w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, api.FromTransfer(t))
}

func (h *TransferHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	t, err := h.transfers.Get(r.Context(), id)
	if err != nil {
		RespondDomainError(r.Context(), w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, api.FromTransfer(t))
}

func (h *TransferHandler) MarkOutcome(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	var req api.OutcomeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	t, err := h.transfers.MarkOutcome(r.Context(), id, domain.TransferStatus(req.Status), req.FailureReason)
	if err != nil {
		RespondDomainError(r.Context(), w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, api.FromTransfer(t))
}

func (h *TransferHandler) History(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(r, "id")
	if !ok {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	entries, err := h.transfers.History(r.Context(), accountID)
	if err != nil {
		RespondDomainError(r.Context(), w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, api.FromHistory(entries))
}
