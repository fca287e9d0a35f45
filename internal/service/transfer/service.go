package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/josh-kwaku/transfer-saga/internal/domain"
	"github.com/josh-kwaku/transfer-saga/internal/logging"
)

type transferRepo interface {
	Create(ctx context.Context, t *domain.Transfer) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transfer, error)
	MarkOutcome(ctx context.Context, id uuid.UUID, status domain.TransferStatus, reason *string, at time.Time) (*domain.Transfer, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Transfer, error)
}

// accountResolver is the balance authority's read path.
type accountResolver interface {
	GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error)
}

// Service is the transfer authority: the only writer of transfer status.
type Service struct {
	transfers transferRepo
	accounts  accountResolver
	now       func() time.Time
}

func NewService(transfers transferRepo, accounts accountResolver) *Service {
	return &Service{
		transfers: transfers,
		accounts:  accounts,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) RecordInitiation(ctx context.Context, req domain.InitiationRequest) (*domain.Transfer, error) {
	if req.FromAccountID == req.ToAccountID {
		return nil, fmt.Errorf("RecordInitiation: %w", domain.ErrSelfTransfer)
	}
	amount := req.Amount
	if !amount.IsPositive() {
		return nil, fmt.Errorf("RecordInitiation: %w", domain.ErrInvalidAmount)
	}
	if !domain.ValidMoney(amount) {
		return nil, fmt.Errorf("RecordInitiation: %w", domain.ErrAmountOutOfRange)
	}
	if req.Description != nil && utf8.RuneCountInString(*req.Description) > domain.MaxDescriptionLength {
		return nil, fmt.Errorf("RecordInitiation: %w: description longer than %d characters",
			domain.ErrInvalidInput, domain.MaxDescriptionLength)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, id := range []uuid.UUID{req.FromAccountID, req.ToAccountID} {
		g.Go(func() error {
			return s.resolve(gctx, id)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("RecordInitiation: %w", err)
	}

	now := s.now()
	t := &domain.Transfer{
		ID:            uuid.New(),
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		Amount:        amount,
		Description:   req.Description,
		Status:        domain.TransferStatusInitiated,
		Timestamp:     now,
		UpdatedAt:     now,
	}
	if err := s.transfers.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("RecordInitiation: %w", err)
	}

	logging.FromContext(ctx).Info("transfer initiated",
		"transfer_id", t.ID,
		"from_account", t.FromAccountID,
		"to_account", t.ToAccountID,
		"amount", amount.StringFixed(domain.MoneyScale),
	)
	return t, nil
}

// resolve maps an unknown account to ErrUnresolvedAccount. Other failures
// (the balance authority being unreachable) pass through unchanged so the
// caller can retry.
func (s *Service) resolve(ctx context.Context, id uuid.UUID) error {
	if _, err := s.accounts.GetAccount(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("account %s: %w", id, domain.ErrUnresolvedAccount)
		}
		return fmt.Errorf("account %s: %w", id, err)
	}
	return nil
}

// MarkOutcome records the terminal status of an INITIATED transfer. reason is
// kept only for FAILED outcomes.
func (s *Service) MarkOutcome(ctx context.Context, id uuid.UUID, outcome domain.TransferStatus, reason *string) (*domain.Transfer, error) {
	if !domain.TransferStatusInitiated.CanTransitionTo(outcome) {
		return nil, fmt.Errorf("MarkOutcome: %w", domain.ErrInvalidStatus)
	}
	if outcome != domain.TransferStatusFailed {
		reason = nil
	}

	t, err := s.transfers.MarkOutcome(ctx, id, outcome, reason, s.now())
	if err != nil {
		return nil, fmt.Errorf("MarkOutcome: %w", err)
	}

	logging.FromContext(ctx).Info("transfer outcome recorded", "transfer_id", id, "status", outcome)
	return t, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Transfer, error) {
	t, err := s.transfers.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return t, nil
}

// History lists every transfer touching accountID, newest first, with amounts
// signed from that account's point of view.
func (s *Service) History(ctx context.Context, accountID uuid.UUID) ([]domain.HistoryEntry, error) {
	transfers, err := s.transfers.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("History: %w", err)
	}

	entries := make([]domain.HistoryEntry, len(transfers))
	for i := range transfers {
		entries[i] = transfers[i].HistoryFor(accountID)
	}
	return entries, nil
}
