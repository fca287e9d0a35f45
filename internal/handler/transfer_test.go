package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/transfer-saga/internal/api"
	"github.com/josh-kwaku/transfer-saga/internal/domain"
)

type stubTransferService struct {
	rows map[uuid.UUID]*domain.Transfer
}

func (s *stubTransferService) RecordInitiation(_ context.Context, req domain.InitiationRequest) (*domain.Transfer, error) {
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("RecordInitiation: %w", domain.ErrInvalidAmount)
	}
	t := &domain.Transfer{ID: uuid.New(), FromAccountID: req.FromAccountID, ToAccountID: req.ToAccountID, Amount: req.Amount, Status: domain.TransferStatusInitiated, Timestamp: time.Now()}
	s.rows[t.ID] = t
	return t, nil
}

func (s *stubTransferService) Get(_ context.Context, id uuid.UUID) (*domain.Transfer, error) {
	t, ok := s.rows[id]
	if !ok {
		return nil, fmt.Errorf("Get: %w", domain.ErrTransferNotFound)
	}
	return t, nil
}

func (s *stubTransferService) MarkOutcome(_ context.Context, id uuid.UUID, outcome domain.TransferStatus, reason *string) (*domain.Transfer, error) {
	t, ok := s.rows[id]
	if !ok {
		return nil, fmt.Errorf("MarkOutcome: %w", domain.ErrTransferNotFound)
	}
	if !t.Status.CanTransitionTo(outcome) {
		return nil, fmt.Errorf("MarkOutcome: %w", domain.ErrTransferNotPending)
	}
	t.Status, t.FailureReason = outcome, reason
	return t, nil
}

func (s *stubTransferService) History(context.Context, uuid.UUID) ([]domain.HistoryEntry, error) {
	return nil, errors.New("database is down")
}

func TestTransferHandler_Lifecycle(t *testing.T) {
	svc := &stubTransferService{rows: make(map[uuid.UUID]*domain.Transfer)}
	mux := http.NewServeMux()
	NewTransferHandler(svc).Register(mux)

	body := fmt.Sprintf(`{"from_account_id":%q,"to_account_id":%q,"amount":"12.34"}`, uuid.New(), uuid.New())
	rec := serve(mux, httptest.NewRequest(http.MethodPost, "/transfers", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created api.Transfer
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &created))
	assert.Equal(t, "INITIATED", created.Status)

	outcome := "/transfers/" + created.ID.String() + "/outcome"
	rec = serve(mux, httptest.NewRequest(http.MethodPost, outcome, strings.NewReader(`{"status":"FAILED","failure_reason":"INSUFFICIENT_FUNDS"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	var done api.Transfer
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &done))
	assert.Equal(t, "FAILED", done.Status)
	require.NotNil(t, done.FailureReason)
	assert.Equal(t, "INSUFFICIENT_FUNDS", *done.FailureReason)

	rec = serve(mux, httptest.NewRequest(http.MethodPost, outcome, strings.NewReader(`{"status":"SUCCESS"}`)))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "TRANSFER_NOT_PENDING", decodeEnvelope(t, rec).Error.Code)

	rec = serve(mux, httptest.NewRequest(http.MethodGet, "/transfers/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTransferHandler_RejectsZeroAmount(t *testing.T) {
	mux := http.NewServeMux()
	NewTransferHandler(&stubTransferService{rows: make(map[uuid.UUID]*domain.Transfer)}).Register(mux)

	body := fmt.Sprintf(`{"from_account_id":%q,"to_account_id":%q,"amount":"0"}`, uuid.New(), uuid.New())
	rec := serve(mux, httptest.NewRequest(http.MethodPost, "/transfers", strings.NewReader(body)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_AMOUNT", decodeEnvelope(t, rec).Error.Code)
}

func TestTransferHandler_UnexpectedErrorIs500(t *testing.T) {
	mux := http.NewServeMux()
	NewTransferHandler(&stubTransferService{}).Register(mux)

	rec := serve(mux, httptest.NewRequest(http.MethodGet, "/accounts/"+uuid.NewString()+"/transfers", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", decodeEnvelope(t, rec).Error.Code)
}
