package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/josh-kwaku/transfer-saga/internal/api"
	"github.com/josh-kwaku/transfer-saga/internal/domain"
)

// TransfersClient talks to the transfer ledger.
type TransfersClient struct {
	*base
}

func NewTransfersClient(cfg Config) *TransfersClient {
	return &TransfersClient{base: newBase("transactions", cfg)}
}

func (c *TransfersClient) RecordInitiation(ctx context.Context, req domain.InitiationRequest) (*domain.Transfer, error) {
	body := api.InitiationRequest{
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		Amount:        req.Amount,
		Description:   req.Description,
	}
	var out api.Transfer
	if err := c.do(ctx, http.MethodPost, "/transfers", body, &out); err != nil {
		return nil, fmt.Errorf("RecordInitiation: %w", err)
	}
	return out.Domain(), nil
}

func (c *TransfersClient) Get(ctx context.Context, id uuid.UUID) (*domain.Transfer, error) {
	var out api.Transfer
	if err := c.do(ctx, http.MethodGet, "/transfers/"+id.String(), nil, &out); err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return out.Domain(), nil
}

func (c *TransfersClient) MarkOutcome(ctx context.Context, id uuid.UUID, outcome domain.TransferStatus, reason *string) (*domain.Transfer, error) {
	body := api.OutcomeRequest{Status: string(outcome), FailureReason: reason}
	var out api.Transfer
	if err := c.do(ctx, http.MethodPost, "/transfers/"+id.String()+"/outcome", body, &out); err != nil {
		return nil, fmt.Errorf("MarkOutcome: %w", err)
	}
	return out.Domain(), nil
}

func (c *TransfersClient) History(ctx context.Context, accountID uuid.UUID) ([]domain.HistoryEntry, error) {
	var out []api.HistoryEntry
	if err := c.do(ctx, http.MethodGet, "/accounts/"+accountID.String()+"/transfers", nil, &out); err != nil {
		return nil, fmt.Errorf("History: %w", err)
	}
	return api.ToHistory(accountID, out), nil
}
