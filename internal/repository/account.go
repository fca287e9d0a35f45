package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/transfer-saga/internal/domain"
)

const accountColumns = `id, owner_id, account_number, account_type, balance, status,
	created_at, updated_at, last_transfer_at`

const accountNumberConstraint = "accounts_account_number_key"

// ErrDuplicateAccountNumber means another account committed the same number
// first. Callers regenerate and retry.
var ErrDuplicateAccountNumber = errors.New("account number already taken")

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id,
	)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrAccountNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return a, nil
}

func (r *AccountRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE owner_id = $1 ORDER BY created_at, id`, ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByOwner: %w", err)
	}
	defer rows.Close()

	accounts := []domain.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("ListByOwner: scan: %w", err)
		}
		accounts = append(accounts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByOwner: rows: %w", err)
	}
	return accounts, nil
}

func (r *AccountRepository) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE account_number = $1)`, number,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ExistsByNumber: %w", err)
	}
	return exists, nil
}

func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (
			id, owner_id, account_number, account_type, balance, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		account.ID, account.OwnerID, account.AccountNumber, account.Type,
		account.Balance, account.Status, account.CreatedAt, account.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, accountNumberConstraint) {
			return fmt.Errorf("Create: %w", ErrDuplicateAccountNumber)
		}
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *AccountRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Account, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id,
	)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrAccountNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return a, nil
}

// ApplyTransferBalance writes a balance produced by a transfer. It is the only
// statement that touches last_transfer_at.
func (r *AccountRepository) ApplyTransferBalance(ctx context.Context, tx *sql.Tx, id uuid.UUID, balance decimal.Decimal, at time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE accounts SET balance = $1, last_transfer_at = $2, updated_at = $2 WHERE id = $3`,
		balance, at, id,
	)
	if err != nil {
		return fmt.Errorf("ApplyTransferBalance: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("ApplyTransferBalance: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("ApplyTransferBalance: %w", domain.ErrAccountNotFound)
	}
	return nil
}

func (r *AccountRepository) SetStatus(ctx context.Context, id uuid.UUID, status domain.AccountStatus) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE accounts SET status = $1, updated_at = NOW() WHERE id = $2
		RETURNING `+accountColumns,
		status, id,
	)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("SetStatus: %w", domain.ErrAccountNotFound)
		}
		return nil, fmt.Errorf("SetStatus: %w", err)
	}
	return a, nil
}

// DeactivateStale marks every ACTIVE account whose last activity is older than
// cutoff as INACTIVE and returns the affected ids. Balances are not touched.
func (r *AccountRepository) DeactivateStale(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx,
		`UPDATE accounts SET status = 'INACTIVE', updated_at = NOW()
		WHERE status = 'ACTIVE' AND COALESCE(last_transfer_at, created_at) < $1
		RETURNING id`,
		cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("DeactivateStale: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("DeactivateStale: scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("DeactivateStale: rows: %w", err)
	}
	return ids, nil
}

func scanAccount(s scanner) (*domain.Account, error) {
	var a domain.Account
	err := s.Scan(
		&a.ID, &a.OwnerID, &a.AccountNumber, &a.Type, &a.Balance, &a.Status,
		&a.CreatedAt, &a.UpdatedAt, &a.LastTransferAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
