package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/transfer-saga/internal/domain"
	"github.com/josh-kwaku/transfer-saga/internal/logging"
	"github.com/josh-kwaku/transfer-saga/internal/repository"
)

type accountRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Account, error)
	ExistsByNumber(ctx context.Context, number string) (bool, error)
	Create(ctx context.Context, account *domain.Account) error
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Account, error)
	ApplyTransferBalance(ctx context.Context, tx *sql.Tx, id uuid.UUID, balance decimal.Decimal, at time.Time) error
	SetStatus(ctx context.Context, id uuid.UUID, status domain.AccountStatus) (*domain.Account, error)
}

type applicationRepo interface {
	Create(ctx context.Context, tx *sql.Tx, app *domain.TransferApplication) error
	GetByTransferID(ctx context.Context, transferID uuid.UUID) (*domain.TransferApplication, error)
}

// Service is the balance authority: the only writer of account balances.
type Service struct {
	accounts     accountRepo
	applications applicationRepo
	allocator    *Allocator
	db           *sql.DB
	maxAttempts  int
	now          func() time.Time
}

func NewService(accounts accountRepo, applications applicationRepo, db *sql.DB, maxAttempts int) *Service {
	return &Service{
		accounts:     accounts,
		applications: applications,
		allocator:    NewAllocator(accounts, maxAttempts),
		db:           db,
		maxAttempts:  maxAttempts,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) CreateAccount(ctx context.Context, ownerID uuid.UUID, accountType domain.AccountType, initialBalance decimal.Decimal) (*domain.Account, error) {
	log := logging.FromContext(ctx)

	if !accountType.IsValid() {
		return nil, fmt.Errorf("CreateAccount: %w", domain.ErrInvalidAccountType)
	}
	if initialBalance.IsNegative() {
		return nil, fmt.Errorf("CreateAccount: %w", domain.ErrInvalidInitialBalance)
	}
	if !domain.ValidMoney(initialBalance) {
		return nil, fmt.Errorf("CreateAccount: %w", domain.ErrAmountOutOfRange)
	}

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		number, err := s.allocator.Allocate(ctx)
		if err != nil {
			return nil, fmt.Errorf("CreateAccount: %w", err)
		}

		now := s.now()
		account := &domain.Account{
			ID:            uuid.New(),
			OwnerID:       ownerID,
			AccountNumber: number,
			Type:          accountType,
			Balance:       initialBalance,
			Status:        domain.AccountStatusActive,
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		err = s.accounts.Create(ctx, account)
		if errors.Is(err, repository.ErrDuplicateAccountNumber) {
			log.Warn("account number taken at commit, regenerating", "attempt", attempt)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("CreateAccount: %w", err)
		}

		log.Info("account created",
			"account_id", account.ID,
			"owner_id", ownerID,
			"account_type", accountType,
		)
		return account, nil
	}

	return nil, fmt.Errorf("CreateAccount: %w", ErrAllocationExhausted)
}

func (s *Service) GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("GetAccount: %w", err)
	}
	return account, nil
}

// ListAccountsByOwner returns an empty slice, not an error, for owners
// without accounts.
func (s *Service) ListAccountsByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Account, error) {
	accounts, err := s.accounts.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("ListAccountsByOwner: %w", err)
	}
	return accounts, nil
}

func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, status domain.AccountStatus) (*domain.Account, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("SetStatus: %w", domain.ErrInvalidStatus)
	}

	account, err := s.accounts.SetStatus(ctx, id, status)
	if err != nil {
		return nil, fmt.Errorf("SetStatus: %w", err)
	}

	logging.FromContext(ctx).Info("account status changed", "account_id", id, "status", status)
	return account, nil
}

func (s *Service) GetApplication(ctx context.Context, transferID uuid.UUID) (*domain.TransferApplication, error) {
	app, err := s.applications.GetByTransferID(ctx, transferID)
	if err != nil {
		return nil, fmt.Errorf("GetApplication: %w", err)
	}
	return app, nil
}
