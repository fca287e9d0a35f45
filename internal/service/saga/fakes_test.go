package saga

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/transfer-saga/internal/domain"
	"github.com/josh-kwaku/transfer-saga/internal/lock"
	"github.com/josh-kwaku/transfer-saga/internal/logging"
)

// fakeBalances mirrors the balance ledger's rules in memory.
type fakeBalances struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*domain.Account
	apps     map[uuid.UUID]*domain.TransferApplication

	getErr error
	appErr error
	// beforeTransfer runs ahead of AtomicTransfer; a non-nil result is
	// returned without moving money.
	beforeTransfer func(ctx context.Context) error
	// afterTransfer is returned after money moved.
	afterTransfer error
	transferCalls int
}

func newFakeBalances() *fakeBalances {
	return &fakeBalances{
		accounts: make(map[uuid.UUID]*domain.Account),
		apps:     make(map[uuid.UUID]*domain.TransferApplication),
	}
}

func (f *fakeBalances) add(owner uuid.UUID, balance string, status domain.AccountStatus) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	f.accounts[id] = &domain.Account{
		ID:      id,
		OwnerID: owner,
		Type:    domain.AccountTypeSavings,
		Balance: decimal.RequireFromString(balance),
		Status:  status,
	}
	return id
}

func (f *fakeBalances) balance(id uuid.UUID) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.accounts[id].Balance.StringFixed(domain.MoneyScale)
}

func (f *fakeBalances) setStatus(id uuid.UUID, status domain.AccountStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[id].Status = status
}

func (f *fakeBalances) GetAccount(_ context.Context, id uuid.UUID) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	a, ok := f.accounts[id]
	if !ok {
		return nil, fmt.Errorf("GetAccount: %w", domain.ErrAccountNotFound)
	}
	cp := *a
	return &cp, nil
}

func (f *fakeBalances) ListAccountsByOwner(_ context.Context, ownerID uuid.UUID) ([]domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.Account{}
	for _, a := range f.accounts {
		if a.OwnerID == ownerID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Balance.GreaterThan(out[j].Balance) })
	return out, nil
}

func (f *fakeBalances) CreateAccount(_ context.Context, ownerID uuid.UUID, accountType domain.AccountType, initialBalance decimal.Decimal) (*domain.Account, error) {
	if !accountType.IsValid() {
		return nil, fmt.Errorf("CreateAccount: %w", domain.ErrInvalidAccountType)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	a := &domain.Account{
		ID:            uuid.New(),
		OwnerID:       ownerID,
		AccountNumber: "0123456789",
		Type:          accountType,
		Balance:       initialBalance,
		Status:        domain.AccountStatusActive,
	}
	f.accounts[a.ID] = a
	cp := *a
	return &cp, nil
}

func (f *fakeBalances) AtomicTransfer(ctx context.Context, req domain.TransferRequest) (*domain.TransferApplication, error) {
	f.mu.Lock()
	f.transferCalls++
	hook := f.beforeTransfer
	f.mu.Unlock()
	if hook != nil {
		if err := hook(ctx); err != nil {
			return nil, err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.apps[req.Reference]; ok {
		return nil, fmt.Errorf("AtomicTransfer: %w", domain.ErrAlreadyApplied)
	}
	from, ok := f.accounts[req.FromAccountID]
	if !ok {
		return nil, fmt.Errorf("AtomicTransfer: %w", domain.ErrAccountNotFound)
	}
	to, ok := f.accounts[req.ToAccountID]
	if !ok {
		return nil, fmt.Errorf("AtomicTransfer: %w", domain.ErrAccountNotFound)
	}
	if !from.IsActive() || !to.IsActive() {
		return nil, fmt.Errorf("AtomicTransfer: %w", domain.ErrAccountInactive)
	}
	if from.Balance.LessThan(req.Amount) {
		return nil, fmt.Errorf("AtomicTransfer: %w", domain.ErrInsufficientFunds)
	}

	from.Balance = from.Balance.Sub(req.Amount)
	to.Balance = to.Balance.Add(req.Amount)
	app := &domain.TransferApplication{
		TransferID:    req.Reference,
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		Amount:        req.Amount,
		AppliedAt:     time.Now().UTC(),
	}
	f.apps[req.Reference] = app

	if f.afterTransfer != nil {
		return nil, f.afterTransfer
	}
	return app, nil
}

func (f *fakeBalances) GetApplication(_ context.Context, transferID uuid.UUID) (*domain.TransferApplication, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appErr != nil {
		return nil, f.appErr
	}
	app, ok := f.apps[transferID]
	if !ok {
		return nil, fmt.Errorf("GetApplication: %w", domain.ErrApplicationNotFound)
	}
	return app, nil
}

type fakeTransfers struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*domain.Transfer
	seq  int

	markErr      error
	markCalls    int
	historyErr   map[uuid.UUID]error
	markCtxAlive bool
}

func newFakeTransfers() *fakeTransfers {
	return &fakeTransfers{
		rows:       make(map[uuid.UUID]*domain.Transfer),
		historyErr: make(map[uuid.UUID]error),
	}
}

func (f *fakeTransfers) RecordInitiation(_ context.Context, req domain.InitiationRequest) (*domain.Transfer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	at := time.Date(2024, 3, 1, 12, 0, f.seq, 0, time.UTC)
	t := &domain.Transfer{
		ID:            uuid.New(),
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		Amount:        req.Amount,
		Description:   req.Description,
		Status:        domain.TransferStatusInitiated,
		Timestamp:     at,
		UpdatedAt:     at,
	}
	f.rows[t.ID] = t
	cp := *t
	return &cp, nil
}

func (f *fakeTransfers) Get(_ context.Context, id uuid.UUID) (*domain.Transfer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.rows[id]
	if !ok {
		return nil, fmt.Errorf("Get: %w", domain.ErrTransferNotFound)
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTransfers) MarkOutcome(ctx context.Context, id uuid.UUID, outcome domain.TransferStatus, reason *string) (*domain.Transfer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markCalls++
	f.markCtxAlive = ctx.Err() == nil
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.markErr != nil {
		return nil, f.markErr
	}
	t, ok := f.rows[id]
	if !ok {
		return nil, fmt.Errorf("MarkOutcome: %w", domain.ErrTransferNotFound)
	}
	if !t.Status.CanTransitionTo(outcome) {
		return nil, fmt.Errorf("MarkOutcome: %w", domain.ErrTransferNotPending)
	}
	t.Status, t.FailureReason = outcome, reason
	cp := *t
	return &cp, nil
}

func (f *fakeTransfers) History(_ context.Context, accountID uuid.UUID) ([]domain.HistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.historyErr[accountID]; err != nil {
		return nil, err
	}
	out := []domain.HistoryEntry{}
	for _, t := range f.rows {
		if t.FromAccountID == accountID || t.ToAccountID == accountID {
			out = append(out, t.HistoryFor(accountID))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (f *fakeTransfers) status(id uuid.UUID) (domain.TransferStatus, *string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.rows[id]
	return t.Status, t.FailureReason
}

type fakeUsers struct {
	profiles map[uuid.UUID]*domain.UserProfile
	err      error
}

func (f *fakeUsers) GetProfile(_ context.Context, id uuid.UUID) (*domain.UserProfile, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.profiles[id]
	if !ok {
		return nil, fmt.Errorf("GetProfile: %w", domain.ErrNotFound)
	}
	return p, nil
}

type fakeLocker struct {
	mu       sync.Mutex
	held     map[string]bool
	err      error
	released []string
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: make(map[string]bool)}
}

func (l *fakeLocker) TryLock(_ context.Context, key string, _ time.Duration) (lock.Unlock, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, false, l.err
	}
	if l.held[key] {
		return nil, false, nil
	}
	l.held[key] = true
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
		l.released = append(l.released, key)
		return nil
	}, true, nil
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) alerts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Count(b.buf.String(), `"`+logging.AlertKey+`":"`+logging.AlertReconciliation+`"`)
}

type harness struct {
	orch      *Orchestrator
	balances  *fakeBalances
	transfers *fakeTransfers
	users     *fakeUsers
	locker    *fakeLocker
	logs      *syncBuffer
	ctx       context.Context
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		balances:  newFakeBalances(),
		transfers: newFakeTransfers(),
		users:     &fakeUsers{profiles: make(map[uuid.UUID]*domain.UserProfile)},
		locker:    newFakeLocker(),
		logs:      &syncBuffer{},
	}
	h.orch = New(h.balances, h.transfers, h.users, h.locker, Options{
		LockTTL:        30 * time.Second,
		OutcomeTimeout: time.Second,
	})
	h.ctx = logging.WithLogger(context.Background(), logging.New(h.logs, "gateway", "debug", "test"))
	return h
}

func (h *harness) initiate(t *testing.T, from, to uuid.UUID, amount string) uuid.UUID {
	t.Helper()
	res, err := h.orch.Initiate(h.ctx, domain.InitiationRequest{
		FromAccountID: from, ToAccountID: to, Amount: decimal.RequireFromString(amount),
	})
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	return res.TransferID
}
