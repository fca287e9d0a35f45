package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/transfer-saga/internal/api"
	"github.com/josh-kwaku/transfer-saga/internal/domain"
)

type accountService interface {
	CreateAccount(ctx context.Context, ownerID uuid.UUID, accountType domain.AccountType, initialBalance decimal.Decimal) (*domain.Account, error)
	GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	ListAccountsByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Account, error)
	SetStatus(ctx context.Context, id uuid.UUID, status domain.AccountStatus) (*domain.Account, error)
	AtomicTransfer(ctx context.Context, req domain.TransferRequest) (*domain.TransferApplication, error)
	GetApplication(ctx context.Context, transferID uuid.UUID) (*domain.TransferApplication, error)
}

// AccountHandler serves the balance authority's internal API.
type AccountHandler struct {
	accounts accountService
}

func NewAccountHandler(accounts accountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

func (h *AccountHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /accounts", h.Create)
	mux.HandleFunc("GET /accounts/{id}", h.Get)
	mux.HandleFunc("PATCH /accounts/{id}/status", h.SetStatus)
	mux.HandleFunc("PUT /accounts/transfer", h.Transfer)
	mux.HandleFunc("GET /accounts/applications/{transfer_id}", h.GetApplication)
	mux.HandleFunc("GET /users/{id}/accounts", h.ListByOwner)
}

func validateCreateAccount(r api.CreateAccountRequest) []FieldError {
	var errs []FieldError
	if r.OwnerID == uuid.Nil {
		errs = append(errs, FieldError{Field: "owner_id", Message: "required"})
	}
	if r.AccountType == "" {
		errs = append(errs, FieldError{Field: "account_type", Message: "required"})
	}
	return errs
}

func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req api.CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := validateCreateAccount(req); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	account, err := h.accounts.CreateAccount(r.Context(), req.OwnerID, domain.AccountType(req.AccountType), req.InitialBalance)
	if err != nil {
		RespondDomainError(r.Context(), w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, api.FromAccount(account))
}

func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	account, err := h.accounts.GetAccount(r.Context(), id)
	if err != nil {
		RespondDomainError(r.Context(), w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, api.FromAccount(account))
}

func (h *AccountHandler) ListByOwner(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := pathID(r, "id")
	if !ok {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	accounts, err := h.accounts.ListAccountsByOwner(r.Context(), ownerID)
	if err != nil {
		RespondDomainError(r.Context(), w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, api.FromAccounts(accounts))
}

func (h *AccountHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	var req api.StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if req.Status == "" {
		RespondValidationError(w, []FieldError{{Field: "status", Message: "required"}})
		return
	}

	account, err := h.accounts.SetStatus(r.Context(), id, domain.AccountStatus(req.Status))
	if err != nil {
		RespondDomainError(r.Context(), w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, api.FromAccount(account))
}

func (h *AccountHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req api.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	var fields []FieldError
	if req.FromAccountID == uuid.Nil {
		fields = append(fields, FieldError{Field: "from_account_id", Message: "required"})
	}
	if req.ToAccountID == uuid.Nil {
		fields = append(fields, FieldError{Field: "to_account_id", Message: "required"})
	}
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	app, err := h.accounts.AtomicTransfer(r.Context(), domain.TransferRequest{
		Reference:     req.Reference,
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		Amount:        req.Amount,
	})
	if err != nil {
		RespondDomainError(r.Context(), w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, api.FromApplication(app))
}

func (h *AccountHandler) GetApplication(w http.ResponseWriter, r *http.Request) {
	transferID, ok := pathID(r, "transfer_id")
	if !ok {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	app, err := h.accounts.GetApplication(r.Context(), transferID)
	if err != nil {
		RespondDomainError(r.Context(), w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, api.FromApplication(app))
}
