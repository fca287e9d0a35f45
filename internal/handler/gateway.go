package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/transfer-saga/internal/api"
	"github.com/josh-kwaku/transfer-saga/internal/domain"
	"github.com/josh-kwaku/transfer-saga/internal/service/saga"
)

type orchestrator interface {
	Initiate(ctx context.Context, req domain.InitiationRequest) (*saga.Result, error)
	Execute(ctx context.Context, transferID uuid.UUID) (*saga.Result, error)
	History(ctx context.Context, accountID uuid.UUID) ([]domain.HistoryEntry, error)
	CreateAccount(ctx context.Context, ownerID uuid.UUID, accountType domain.AccountType, initialBalance decimal.Decimal) (*domain.Account, error)
	Dashboard(ctx context.Context, userID uuid.UUID) (*saga.Dashboard, error)
}

// GatewayHandler is the client-facing API in front of the saga.
type GatewayHandler struct {
	saga orchestrator
}

func NewGatewayHandler(o orchestrator) *GatewayHandler {
	return &GatewayHandler{saga: o}
}

type initiateRequest struct {
	FromAccountID string          `json:"from_account_id"`
	ToAccountID   string          `json:"to_account_id"`
	Amount        decimal.Decimal `json:"amount"`
	Description   *string         `json:"description"`
}

func (r initiateRequest) Validate() (from, to uuid.UUID, errs []FieldError) {
	var err error
	if r.FromAccountID == "" {
		errs = append(errs, FieldError{Field: "from_account_id", Message: "required"})
	} else if from, err = uuid.Parse(r.FromAccountID); err != nil {
		errs = append(errs, FieldError{Field: "from_account_id", Message: "must be a UUID"})
	}
	if r.ToAccountID == "" {
		errs = append(errs, FieldError{Field: "to_account_id", Message: "required"})
	} else if to, err = uuid.Parse(r.ToAccountID); err != nil {
		errs = append(errs, FieldError{Field: "to_account_id", Message: "must be a UUID"})
	}
	if r.Description != nil && len([]rune(*r.Description)) > domain.MaxDescriptionLength {
		errs = append(errs, FieldError{Field: "description", Message: "must be at most 255 characters"})
	}
	return from, to, errs
}

type executeRequest struct {
	TransferID string `json:"transfer_id"`
}

type createUserAccountRequest struct {
	AccountType    string          `json:"account_type"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
}

type transferResultDTO struct {
	TransferID uuid.UUID  `json:"transfer_id"`
	Status     string     `json:"status"`
	Timestamp  *time.Time `json:"timestamp,omitempty"`
}

type accountSummaryDTO struct {
	api.Account
	History []api.HistoryEntry `json:"history"`
}

type dashboardDTO struct {
	Profile  api.UserProfile     `json:"profile"`
	Accounts []accountSummaryDTO `json:"accounts"`
}

func (h *GatewayHandler) Register(mux *http.ServeMux, protect func(http.Handler) http.Handler, idempotent func(http.Handler) http.Handler) {
	mux.Handle("POST /api/v1/transfers/initiate", protect(idempotent(http.HandlerFunc(h.Initiate))))
	mux.Handle("POST /api/v1/transfers/execute", protect(http.HandlerFunc(h.Execute)))
	mux.Handle("GET /api/v1/accounts/{id}/history", protect(http.HandlerFunc(h.History)))
	mux.Handle("POST /api/v1/users/{id}/accounts", protect(http.HandlerFunc(h.CreateAccount)))
	mux.Handle("GET /api/v1/users/{id}/dashboard", protect(http.HandlerFunc(h.Dashboard)))
}

func (h *GatewayHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	var req initiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	from, to, fields := req.Validate()
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	res, err := h.saga.Initiate(r.Context(), domain.InitiationRequest{
		FromAccountID: from,
		ToAccountID:   to,
		Amount:        req.Amount,
		Description:   req.Description,
	})
	if err != nil {
		RespondDomainError(r.Context(), w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, transferResultDTO{
		TransferID: res.TransferID,
		Status:     string(res.Status),
	})
}

func (h *GatewayHandler) Execute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	id, err := uuid.Parse(req.TransferID)
	if err != nil {
		RespondValidationError(w, []FieldError{{Field: "transfer_id", Message: "must be a UUID"}})
		return
	}

	res, err := h.saga.Execute(r.Context(), id)
	if err != nil {
		RespondDomainError(r.Context(), w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, transferResultDTO{
		TransferID: res.TransferID,
		Status:     string(res.Status),
		Timestamp:  &res.Timestamp,
	})
}

func (h *GatewayHandler) History(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(r, "id")
	if !ok {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	entries, err := h.saga.History(r.Context(), accountID)
	if err != nil {
		RespondDomainError(r.Context(), w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, api.FromHistory(entries))
}

func (h *GatewayHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	userID, appErr := ownerFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req createUserAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if req.AccountType == "" {
		RespondValidationError(w, []FieldError{{Field: "account_type", Message: "required"}})
		return
	}

	account, err := h.saga.CreateAccount(r.Context(), userID, domain.AccountType(req.AccountType), req.InitialBalance)
	if err != nil {
		RespondDomainError(r.Context(), w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, api.FromAccount(account))
}

func (h *GatewayHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	userID, appErr := ownerFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	d, err := h.saga.Dashboard(r.Context(), userID)
	if err != nil {
		RespondDomainError(r.Context(), w, err)
		return
	}

	out := dashboardDTO{
		Profile:  api.FromProfile(d.Profile),
		Accounts: make([]accountSummaryDTO, len(d.Accounts)),
	}
	for i, s := range d.Accounts {
		out.Accounts[i] = accountSummaryDTO{
			Account: api.FromAccount(&s.Account),
			History: api.FromHistory(s.History),
		}
	}

	RespondSuccess(w, http.StatusOK, out)
}
