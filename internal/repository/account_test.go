package repository_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/transfer-saga/internal/domain"
	"github.com/josh-kwaku/transfer-saga/internal/repository"
	"github.com/josh-kwaku/transfer-saga/internal/testutil"
)

func TestAccountRepository_CreateAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewAccountRepository(db)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	a := &domain.Account{
		ID:            uuid.New(),
		OwnerID:       uuid.New(),
		AccountNumber: "0123456789",
		Type:          domain.AccountTypeSavings,
		Balance:       decimal.RequireFromString("150.25"),
		Status:        domain.AccountStatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, repo.Create(ctx, a))

	got, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.AccountNumber, got.AccountNumber)
	assert.Equal(t, domain.AccountTypeSavings, got.Type)
	assert.True(t, a.Balance.Equal(got.Balance))
	assert.Nil(t, got.LastTransferAt)

	exists, err := repo.ExistsByNumber(ctx, "0123456789")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByNumber(ctx, "9999999999")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestAccountRepository_CreateDuplicateNumber(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewAccountRepository(db)
	ctx := context.Background()

	existing := testutil.SeedAccount(t, db, "0.00")

	now := time.Now().UTC()
	err := repo.Create(ctx, &domain.Account{
		ID:            uuid.New(),
		OwnerID:       uuid.New(),
		AccountNumber: existing.AccountNumber,
		Type:          domain.AccountTypeChecking,
		Balance:       decimal.Zero,
		Status:        domain.AccountStatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	require.ErrorIs(t, err, repository.ErrDuplicateAccountNumber)
}

func TestAccountRepository_GetByID_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewAccountRepository(db)

	_, err := repo.GetByID(context.Background(), uuid.New())
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAccountRepository_ListByOwner(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewAccountRepository(db)
	ctx := context.Background()

	owner := uuid.New()
	testutil.SeedAccount(t, db, "1.00", testutil.WithOwner(owner))
	testutil.SeedAccount(t, db, "2.00", testutil.WithOwner(owner))
	testutil.SeedAccount(t, db, "3.00")

	accounts, err := repo.ListByOwner(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, accounts, 2)

	empty, err := repo.ListByOwner(ctx, uuid.New())
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestAccountRepository_SetStatusKeepsLastTransfer(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewAccountRepository(db)

	a := testutil.SeedAccount(t, db, "10.00")

	got, err := repo.SetStatus(context.Background(), a.ID, domain.AccountStatusInactive)
	require.NoError(t, err)
	assert.Equal(t, domain.AccountStatusInactive, got.Status)
	assert.Nil(t, got.LastTransferAt)
	assert.True(t, decimal.RequireFromString("10.00").Equal(got.Balance))

	_, err = repo.SetStatus(context.Background(), uuid.New(), domain.AccountStatusActive)
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestAccountRepository_DeactivateStale(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewAccountRepository(db)
	now := time.Now().UTC()

	stale := testutil.SeedAccount(t, db, "5.00", testutil.WithCreatedAt(now.Add(-48*time.Hour)))
	staleTransfer := testutil.SeedAccount(t, db, "5.00",
		testutil.WithCreatedAt(now.Add(-72*time.Hour)),
		testutil.WithLastTransferAt(now.Add(-25*time.Hour)),
	)
	recentTransfer := testutil.SeedAccount(t, db, "5.00",
		testutil.WithCreatedAt(now.Add(-72*time.Hour)),
		testutil.WithLastTransferAt(now.Add(-time.Hour)),
	)
	fresh := testutil.SeedAccount(t, db, "5.00")
	alreadyInactive := testutil.SeedAccount(t, db, "5.00",
		testutil.WithCreatedAt(now.Add(-48*time.Hour)),
		testutil.WithStatus(domain.AccountStatusInactive),
	)

	ids, err := repo.DeactivateStale(context.Background(), now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{stale.ID, staleTransfer.ID}, ids)

	assert.Equal(t, domain.AccountStatusInactive, testutil.GetAccountStatus(t, db, stale.ID))
	assert.Equal(t, domain.AccountStatusInactive, testutil.GetAccountStatus(t, db, staleTransfer.ID))
	assert.Equal(t, domain.AccountStatusActive, testutil.GetAccountStatus(t, db, recentTransfer.ID))
	assert.Equal(t, domain.AccountStatusActive, testutil.GetAccountStatus(t, db, fresh.ID))
	assert.Equal(t, domain.AccountStatusInactive, testutil.GetAccountStatus(t, db, alreadyInactive.ID))
	assert.True(t, decimal.RequireFromString("5.00").Equal(testutil.GetAccountBalance(t, db, stale.ID)))

	again, err := repo.DeactivateStale(context.Background(), now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestAccountRepository_BalanceCheckConstraint(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewAccountRepository(db)
	ctx := context.Background()

	a := testutil.SeedAccount(t, db, "1.00")

	err := repository.InTx(ctx, db, func(tx *sql.Tx) error {
		return repo.ApplyTransferBalance(ctx, tx, a.ID, decimal.RequireFromString("-0.01"), time.Now())
	})
	require.Error(t, err)
	assert.True(t, decimal.RequireFromString("1.00").Equal(testutil.GetAccountBalance(t, db, a.ID)))
}
