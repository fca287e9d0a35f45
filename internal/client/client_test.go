package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/transfer-saga/internal/api"
	"github.com/josh-kwaku/transfer-saga/internal/domain"
)

func writeEnvelope(t *testing.T, w http.ResponseWriter, status int, data any, errBody *api.ErrorBody) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(api.Envelope{
		Success: errBody == nil,
		Data:    raw,
		Error:   errBody,
	}))
}

func testConfig(url string) Config {
	return Config{BaseURL: url, Timeout: time.Second, BreakerFailures: 2, BreakerOpenTimeout: time.Minute}
}

func TestAccountsClient_GetAccount(t *testing.T) {
	id := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/accounts/"+id.String(), r.URL.Path)
		writeEnvelope(t, w, http.StatusOK, api.Account{
			ID:            id,
			AccountNumber: "0123456789",
			AccountType:   "SAVINGS",
			Balance:       decimal.RequireFromString("100.50"),
			Status:        "ACTIVE",
		}, nil)
	}))
	defer srv.Close()

	got, err := NewAccountsClient(testConfig(srv.URL)).GetAccount(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, domain.AccountTypeSavings, got.Type)
	assert.True(t, got.IsActive())
	assert.Equal(t, "100.50", got.Balance.StringFixed(2))
}

func TestAccountsClient_AtomicTransferSendsReference(t *testing.T) {
	ref := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/accounts/transfer", r.URL.Path)

		var body api.TransferRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, ref, body.Reference)
		assert.Equal(t, "40.00", body.Amount.StringFixed(2))

		writeEnvelope(t, w, http.StatusOK, api.Application{TransferID: ref, Amount: body.Amount}, nil)
	}))
	defer srv.Close()

	app, err := NewAccountsClient(testConfig(srv.URL)).AtomicTransfer(context.Background(), domain.TransferRequest{
		Reference: ref, FromAccountID: uuid.New(), ToAccountID: uuid.New(), Amount: decimal.RequireFromString("40"),
	})
	require.NoError(t, err)
	assert.Equal(t, ref, app.TransferID)
}

func TestClient_RemoteErrorsKeepTheirKind(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    *api.ErrorBody
		wantErr error
	}{
		{"not found", http.StatusNotFound, &api.ErrorBody{Code: "ACCOUNT_NOT_FOUND", Message: "account not found"}, domain.ErrAccountNotFound},
		{"insufficient", http.StatusUnprocessableEntity, &api.ErrorBody{Code: "INSUFFICIENT_FUNDS", Message: "insufficient funds"}, domain.ErrInsufficientFunds},
		{"already applied", http.StatusConflict, &api.ErrorBody{Code: "ALREADY_APPLIED"}, domain.ErrAlreadyApplied},
		{"unknown client error", http.StatusBadRequest, &api.ErrorBody{Code: "VALIDATION_FAILED"}, domain.ErrInvalidInput},
		{"server error", http.StatusInternalServerError, &api.ErrorBody{Code: "INTERNAL_ERROR"}, domain.ErrUnavailable},
		{"remote unavailable", http.StatusServiceUnavailable, &api.ErrorBody{Code: "UNAVAILABLE"}, domain.ErrUnavailable},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeEnvelope(t, w, tc.status, nil, tc.body)
			}))
			defer srv.Close()

			_, err := NewAccountsClient(testConfig(srv.URL)).GetAccount(context.Background(), uuid.New())
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestClient_NonEnvelopeResponseIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewTransfersClient(testConfig(srv.URL)).Get(context.Background(), uuid.New())
	require.ErrorIs(t, err, domain.ErrUnavailable)
}

func TestClient_TimeoutIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Timeout = 50 * time.Millisecond
	_, err := NewTransfersClient(cfg).Get(context.Background(), uuid.New())
	require.ErrorIs(t, err, domain.ErrUnavailable)
}

func TestClient_BreakerOpensOnUnavailableOnly(t *testing.T) {
	var calls atomic.Int32
	var failing atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if failing.Load() {
			writeEnvelope(t, w, http.StatusServiceUnavailable, nil, &api.ErrorBody{Code: "UNAVAILABLE"})
			return
		}
		writeEnvelope(t, w, http.StatusNotFound, nil, &api.ErrorBody{Code: "TRANSFER_NOT_FOUND"})
	}))
	defer srv.Close()

	c := NewTransfersClient(testConfig(srv.URL))
	ctx := context.Background()

	for range 3 {
		_, err := c.Get(ctx, uuid.New())
		require.ErrorIs(t, err, domain.ErrNotFound)
	}

	failing.Store(true)
	for range 2 {
		_, err := c.Get(ctx, uuid.New())
		require.ErrorIs(t, err, domain.ErrUnavailable)
	}
	before := calls.Load()

	_, err := c.Get(ctx, uuid.New())
	require.ErrorIs(t, err, domain.ErrUnavailable)
	assert.Equal(t, before, calls.Load(), "open breaker must not reach the server")
}

func TestTransfersClient_History(t *testing.T) {
	account := uuid.New()
	tid := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/accounts/"+account.String()+"/transfers", r.URL.Path)
		writeEnvelope(t, w, http.StatusOK, []api.HistoryEntry{
			{TransferID: tid, Amount: decimal.RequireFromString("-40"), Status: "SUCCESS"},
		}, nil)
	}))
	defer srv.Close()

	entries, err := NewTransfersClient(testConfig(srv.URL)).History(context.Background(), account)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, account, entries[0].AccountID)
	assert.Equal(t, domain.TransferStatusSuccess, entries[0].Status)
	assert.Equal(t, "-40.00", entries[0].Amount.StringFixed(2))
}

func TestTransfersClient_MarkOutcome(t *testing.T) {
	id := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transfers/"+id.String()+"/outcome", r.URL.Path)
		var body api.OutcomeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "FAILED", body.Status)
		require.NotNil(t, body.FailureReason)
		writeEnvelope(t, w, http.StatusOK, api.Transfer{ID: id, Status: body.Status, FailureReason: body.FailureReason}, nil)
	}))
	defer srv.Close()

	reason := "INSUFFICIENT_FUNDS"
	tr, err := NewTransfersClient(testConfig(srv.URL)).MarkOutcome(context.Background(), id, domain.TransferStatusFailed, &reason)
	require.NoError(t, err)
	assert.Equal(t, domain.TransferStatusFailed, tr.Status)
}

func TestUsersClient_GetProfile(t *testing.T) {
	id := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/"+id.String(), r.URL.Path)
		writeEnvelope(t, w, http.StatusOK, api.UserProfile{ID: id, Username: "ada"}, nil)
	}))
	defer srv.Close()

	p, err := NewUsersClient(testConfig(srv.URL)).GetProfile(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "ada", p.Username)
}
