package testutil

import (
	"database/sql"
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/transfer-saga/internal/domain"
)

type AccountOption func(*domain.Account)

func WithStatus(s domain.AccountStatus) AccountOption {
	return func(a *domain.Account) { a.Status = s }
}

func WithCreatedAt(t time.Time) AccountOption {
	return func(a *domain.Account) {
		a.CreatedAt = t
		a.UpdatedAt = t
	}
}

func WithLastTransferAt(t time.Time) AccountOption {
	return func(a *domain.Account) { a.LastTransferAt = &t }
}

func WithOwner(id uuid.UUID) AccountOption {
	return func(a *domain.Account) { a.OwnerID = id }
}

func SeedAccount(t *testing.T, db *sql.DB, balance string, opts ...AccountOption) *domain.Account {
	t.Helper()

	now := time.Now().UTC()
	a := &domain.Account{
		ID:            uuid.New(),
		OwnerID:       uuid.New(),
		AccountNumber: fmt.Sprintf("%010d", rand.Int64N(10_000_000_000)),
		Type:          domain.AccountTypeChecking,
		Balance:       decimal.RequireFromString(balance),
		Status:        domain.AccountStatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for _, opt := range opts {
		opt(a)
	}

	_, err := db.Exec(
		`INSERT INTO accounts (id, owner_id, account_number, account_type, balance, status, created_at, updated_at, last_transfer_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, a.OwnerID, a.AccountNumber, a.Type, a.Balance, a.Status, a.CreatedAt, a.UpdatedAt, a.LastTransferAt,
	)
	if err != nil {
		t.Fatalf("seed account %s: %v", a.ID, err)
	}
	return a
}

func SeedTransfer(t *testing.T, db *sql.DB, from, to uuid.UUID, amount string, status domain.TransferStatus, at time.Time) *domain.Transfer {
	t.Helper()

	tr := &domain.Transfer{
		ID:            uuid.New(),
		FromAccountID: from,
		ToAccountID:   to,
		Amount:        decimal.RequireFromString(amount),
		Status:        status,
		Timestamp:     at,
		UpdatedAt:     at,
	}

	_, err := db.Exec(
		`INSERT INTO transfers (id, from_account_id, to_account_id, amount, status, timestamp, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		tr.ID, tr.FromAccountID, tr.ToAccountID, tr.Amount, tr.Status, tr.Timestamp, tr.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("seed transfer %s: %v", tr.ID, err)
	}
	return tr
}

func GetAccountBalance(t *testing.T, db *sql.DB, accountID uuid.UUID) decimal.Decimal {
	t.Helper()

	var balance decimal.Decimal
	err := db.QueryRow(`SELECT balance FROM accounts WHERE id = $1`, accountID).Scan(&balance)
	if err != nil {
		t.Fatalf("get account balance %s: %v", accountID, err)
	}
	return balance
}

func GetAccountStatus(t *testing.T, db *sql.DB, accountID uuid.UUID) domain.AccountStatus {
	t.Helper()

	var status domain.AccountStatus
	err := db.QueryRow(`SELECT status FROM accounts WHERE id = $1`, accountID).Scan(&status)
	if err != nil {
		t.Fatalf("get account status %s: %v", accountID, err)
	}
	return status
}

func CountApplications(t *testing.T, db *sql.DB, transferID uuid.UUID) int {
	t.Helper()

	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM transfer_applications WHERE transfer_id = $1`, transferID).Scan(&count)
	if err != nil {
		t.Fatalf("count applications for transfer %s: %v", transferID, err)
	}
	return count
}
