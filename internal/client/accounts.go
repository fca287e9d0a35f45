package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/transfer-saga/internal/api"
	"github.com/josh-kwaku/transfer-saga/internal/domain"
)

// AccountsClient talks to the balance authority.
type AccountsClient struct {
	*base
}

func NewAccountsClient(cfg Config) *AccountsClient {
	return &AccountsClient{base: newBase("accounts", cfg)}
}

func (c *AccountsClient) GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	var out api.Account
	if err := c.do(ctx, http.MethodGet, "/accounts/"+id.String(), nil, &out); err != nil {
		return nil, fmt.Errorf("GetAccount: %w", err)
	}
	return out.Domain(), nil
}

func (c *AccountsClient) ListAccountsByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Account, error) {
	var out []api.Account
	if err := c.do(ctx, http.MethodGet, "/users/"+ownerID.String()+"/accounts", nil, &out); err != nil {
		return nil, fmt.Errorf("ListAccountsByOwner: %w", err)
	}
	accounts := make([]domain.Account, len(out))
	for i := range out {
		accounts[i] = *out[i].Domain()
	}
	return accounts, nil
}

func (c *AccountsClient) CreateAccount(ctx context.Context, ownerID uuid.UUID, accountType domain.AccountType, initialBalance decimal.Decimal) (*domain.Account, error) {
	req := api.CreateAccountRequest{
		OwnerID:        ownerID,
		AccountType:    string(accountType),
		InitialBalance: initialBalance,
	}
	var out api.Account
	if err := c.do(ctx, http.MethodPost, "/accounts", req, &out); err != nil {
		return nil, fmt.Errorf("CreateAccount: %w", err)
	}
	return out.Domain(), nil
}

// AtomicTransfer is not retried here. A timeout leaves the outcome unknown;
// GetApplication answers whether it committed.
func (c *AccountsClient) AtomicTransfer(ctx context.Context, req domain.TransferRequest) (*domain.TransferApplication, error) {
	body := api.TransferRequest{
		Reference:     req.Reference,
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		Amount:        req.Amount,
	}
	var out api.Application
	if err := c.do(ctx, http.MethodPut, "/accounts/transfer", body, &out); err != nil {
		return nil, fmt.Errorf("AtomicTransfer: %w", err)
	}
	return out.Domain(), nil
}

func (c *AccountsClient) GetApplication(ctx context.Context, transferID uuid.UUID) (*domain.TransferApplication, error) {
	var out api.Application
	if err := c.do(ctx, http.MethodGet, "/accounts/applications/"+transferID.String(), nil, &out); err != nil {
		return nil, fmt.Errorf("GetApplication: %w", err)
	}
	return out.Domain(), nil
}
