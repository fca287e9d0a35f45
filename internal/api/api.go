// Package api holds the JSON shapes exchanged between the services. Handlers
// encode them and the clients in internal/client decode them, so both ends
// stay in step.
package api

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/transfer-saga/internal/domain"
)

// Envelope is the response body every service writes.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *ErrorBody      `json:"error"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type Account struct {
	ID             uuid.UUID       `json:"id"`
	OwnerID        uuid.UUID       `json:"owner_id"`
	AccountNumber  string          `json:"account_number"`
	AccountType    string          `json:"account_type"`
	Balance        decimal.Decimal `json:"balance"`
	Status         string          `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	LastTransferAt *time.Time      `json:"last_transfer_at"`
}

func FromAccount(a *domain.Account) Account {
	return Account{
		ID:             a.ID,
		OwnerID:        a.OwnerID,
		AccountNumber:  a.AccountNumber,
		AccountType:    string(a.Type),
		Balance:        a.Balance.Round(domain.MoneyScale),
		Status:         string(a.Status),
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
		LastTransferAt: a.LastTransferAt,
	}
}

func FromAccounts(list []domain.Account) []Account {
	out := make([]Account, len(list))
	for i := range list {
		out[i] = FromAccount(&list[i])
	}
	return out
}

func (a Account) Domain() *domain.Account {
	return &domain.Account{
		ID:             a.ID,
		OwnerID:        a.OwnerID,
		AccountNumber:  a.AccountNumber,
		Type:           domain.AccountType(a.AccountType),
		Balance:        a.Balance,
		Status:         domain.AccountStatus(a.Status),
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
		LastTransferAt: a.LastTransferAt,
	}
}

type CreateAccountRequest struct {
	OwnerID        uuid.UUID       `json:"owner_id"`
	AccountType    string          `json:"account_type"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
}

type StatusRequest struct {
	Status string `json:"status"`
}

type TransferRequest struct {
	Reference     uuid.UUID       `json:"reference"`
	FromAccountID uuid.UUID       `json:"from_account_id"`
	ToAccountID   uuid.UUID       `json:"to_account_id"`
	Amount        decimal.Decimal `json:"amount"`
}

type Application struct {
	TransferID    uuid.UUID       `json:"transfer_id"`
	FromAccountID uuid.UUID       `json:"from_account_id"`
	ToAccountID   uuid.UUID       `json:"to_account_id"`
	Amount        decimal.Decimal `json:"amount"`
	AppliedAt     time.Time       `json:"applied_at"`
}

func FromApplication(a *domain.TransferApplication) Application {
	return Application{
		TransferID:    a.TransferID,
		FromAccountID: a.FromAccountID,
		ToAccountID:   a.ToAccountID,
		Amount:        a.Amount.Round(domain.MoneyScale),
		AppliedAt:     a.AppliedAt,
	}
}

func (a Application) Domain() *domain.TransferApplication {
	return &domain.TransferApplication{
		TransferID:    a.TransferID,
		FromAccountID: a.FromAccountID,
		ToAccountID:   a.ToAccountID,
		Amount:        a.Amount,
		AppliedAt:     a.AppliedAt,
	}
}

type InitiationRequest struct {
	FromAccountID uuid.UUID       `json:"from_account_id"`
	ToAccountID   uuid.UUID       `json:"to_account_id"`
	Amount        decimal.Decimal `json:"amount"`
	Description   *string         `json:"description,omitempty"`
}

type Transfer struct {
	ID            uuid.UUID       `json:"id"`
	FromAccountID uuid.UUID       `json:"from_account_id"`
	ToAccountID   uuid.UUID       `json:"to_account_id"`
	Amount        decimal.Decimal `json:"amount"`
	Description   *string         `json:"description"`
	Status        string          `json:"status"`
	FailureReason *string         `json:"failure_reason,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func FromTransfer(t *domain.Transfer) Transfer {
	return Transfer{
		ID:            t.ID,
		FromAccountID: t.FromAccountID,
		ToAccountID:   t.ToAccountID,
		Amount:        t.Amount.Round(domain.MoneyScale),
		Description:   t.Description,
		Status:        string(t.Status),
		FailureReason: t.FailureReason,
		Timestamp:     t.Timestamp,
		UpdatedAt:     t.UpdatedAt,
	}
}

func (t Transfer) Domain() *domain.Transfer {
	return &domain.Transfer{
		ID:            t.ID,
		FromAccountID: t.FromAccountID,
		ToAccountID:   t.ToAccountID,
		Amount:        t.Amount,
		Description:   t.Description,
		Status:        domain.TransferStatus(t.Status),
		FailureReason: t.FailureReason,
		Timestamp:     t.Timestamp,
		UpdatedAt:     t.UpdatedAt,
	}
}

type OutcomeRequest struct {
	Status        string  `json:"status"`
	FailureReason *string `json:"failure_reason,omitempty"`
}

type HistoryEntry struct {
	TransferID  uuid.UUID       `json:"transfer_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description *string         `json:"description"`
	Status      string          `json:"status"`
	Timestamp   time.Time       `json:"timestamp"`
}

func FromHistory(entries []domain.HistoryEntry) []HistoryEntry {
	out := make([]HistoryEntry, len(entries))
	for i, e := range entries {
		out[i] = HistoryEntry{
			TransferID:  e.TransferID,
			Amount:      e.Amount.Round(domain.MoneyScale),
			Description: e.Description,
			Status:      string(e.Status),
			Timestamp:   e.Timestamp,
		}
	}
	return out
}

// ToHistory needs the account the entries were requested for, which the wire
// shape leaves implicit.
func ToHistory(accountID uuid.UUID, entries []HistoryEntry) []domain.HistoryEntry {
	out := make([]domain.HistoryEntry, len(entries))
	for i, e := range entries {
		out[i] = domain.HistoryEntry{
			TransferID:  e.TransferID,
			AccountID:   accountID,
			Amount:      e.Amount,
			Description: e.Description,
			Status:      domain.TransferStatus(e.Status),
			Timestamp:   e.Timestamp,
		}
	}
	return out
}

type UserProfile struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
}

func FromProfile(p *domain.UserProfile) UserProfile {
	return UserProfile{
		ID:        p.ID,
		Username:  p.Username,
		Email:     p.Email,
		FirstName: p.FirstName,
		LastName:  p.LastName,
	}
}

func (p UserProfile) Domain() *domain.UserProfile {
	return &domain.UserProfile{
		ID:        p.ID,
		Username:  p.Username,
		Email:     p.Email,
		FirstName: p.FirstName,
		LastName:  p.LastName,
	}
}
