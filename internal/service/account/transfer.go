package account

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/josh-kwaku/transfer-saga/internal/domain"
	"github.com/josh-kwaku/transfer-saga/internal/logging"
	"github.com/josh-kwaku/transfer-saga/internal/repository"
)

// AtomicTransfer debits FromAccountID and credits ToAccountID in one database
// transaction. When req.Reference is set it is recorded alongside the balance
// writes, so replaying the same reference yields domain.ErrAlreadyApplied
// instead of moving money twice.
func (s *Service) AtomicTransfer(ctx context.Context, req domain.TransferRequest) (*domain.TransferApplication, error) {
	log := logging.FromContext(ctx)

	if req.FromAccountID == req.ToAccountID {
		return nil, fmt.Errorf("AtomicTransfer: %w", domain.ErrSelfTransfer)
	}
	amount := req.Amount
	if !amount.IsPositive() {
		return nil, fmt.Errorf("AtomicTransfer: %w", domain.ErrInvalidAmount)
	}
	if !domain.ValidMoney(amount) {
		return nil, fmt.Errorf("AtomicTransfer: %w", domain.ErrAmountOutOfRange)
	}

	app := &domain.TransferApplication{
		TransferID:    req.Reference,
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		Amount:        amount,
		AppliedAt:     s.now(),
	}

	err := repository.InTx(ctx, s.db, func(tx *sql.Tx) error {
		locked, err := lockAccountsInOrder(ctx, tx, s.accounts, req.FromAccountID, req.ToAccountID)
		if err != nil {
			return err
		}
		from, to := locked[req.FromAccountID], locked[req.ToAccountID]

		if req.Reference != uuid.Nil {
			if err := s.applications.Create(ctx, tx, app); err != nil {
				return err
			}
		}

		if !from.IsActive() {
			return fmt.Errorf("source %s: %w", from.ID, domain.ErrAccountInactive)
		}
		if !to.IsActive() {
			return fmt.Errorf("destination %s: %w", to.ID, domain.ErrAccountInactive)
		}
		if from.Balance.LessThan(amount) {
			return domain.ErrInsufficientFunds
		}
		if to.Balance.Add(amount).GreaterThan(domain.MaxMoney) {
			return fmt.Errorf("destination %s: %w", to.ID, domain.ErrBalanceLimit)
		}

		if err := s.accounts.ApplyTransferBalance(ctx, tx, from.ID, from.Balance.Sub(amount), app.AppliedAt); err != nil {
			return fmt.Errorf("debit: %w", err)
		}
		if err := s.accounts.ApplyTransferBalance(ctx, tx, to.ID, to.Balance.Add(amount), app.AppliedAt); err != nil {
			return fmt.Errorf("credit: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("AtomicTransfer: %w", err)
	}

	log.Info("transfer applied",
		"reference", req.Reference,
		"from_account", req.FromAccountID,
		"to_account", req.ToAccountID,
		"amount", amount.StringFixed(domain.MoneyScale),
	)
	return app, nil
}

type rowLocker interface {
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Account, error)
}

// lockAccountsInOrder takes row locks in ascending id order so two transfers
// over the same pair in opposite directions cannot deadlock.
func lockAccountsInOrder(ctx context.Context, tx *sql.Tx, accounts rowLocker, ids ...uuid.UUID) (map[uuid.UUID]*domain.Account, error) {
	sorted := slices.Clone(ids)
	slices.SortFunc(sorted, func(a, b uuid.UUID) int {
		return bytes.Compare(a[:], b[:])
	})

	result := make(map[uuid.UUID]*domain.Account, len(ids))
	for _, id := range sorted {
		acct, err := accounts.GetForUpdate(ctx, tx, id)
		if err != nil {
			return nil, fmt.Errorf("lockAccountsInOrder: %w", err)
		}
		result[id] = acct
	}
	return result, nil
}
