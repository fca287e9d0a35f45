package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AccountType string

const (
	AccountTypeSavings  AccountType = "SAVINGS"
	AccountTypeChecking AccountType = "CHECKING"
)

func (t AccountType) IsValid() bool {
	switch t {
	case AccountTypeSavings, AccountTypeChecking:
		return true
	}
	return false
}

type AccountStatus string

const (
	AccountStatusActive   AccountStatus = "ACTIVE"
	AccountStatusInactive AccountStatus = "INACTIVE"
)

func (s AccountStatus) IsValid() bool {
	return s == AccountStatusActive || s == AccountStatusInactive
}

// MoneyScale is the number of fractional digits kept for balances and amounts.
const MoneyScale = 2

type Account struct {
	ID             uuid.UUID
	OwnerID        uuid.UUID
	AccountNumber  string
	Type           AccountType
	Balance        decimal.Decimal
	Status         AccountStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
	LastTransferAt *time.Time
}

func (a *Account) IsActive() bool {
	return a.Status == AccountStatusActive
}

// LastActivity is the reference time used for staleness: the last settled
// transfer, or creation when the account never moved money.
func (a *Account) LastActivity() time.Time {
	if a.LastTransferAt != nil {
		return *a.LastTransferAt
	}
	return a.CreatedAt
}

type TransferRequest struct {
	Reference     uuid.UUID
	FromAccountID uuid.UUID
	ToAccountID   uuid.UUID
	Amount        decimal.Decimal
}

type TransferApplication struct {
	TransferID    uuid.UUID
	FromAccountID uuid.UUID
	ToAccountID   uuid.UUID
	Amount        decimal.Decimal
	AppliedAt     time.Time
}

// MaxMoney is the largest magnitude a balance or amount column can hold.
var MaxMoney = decimal.New(1, 13).Sub(decimal.New(1, -MoneyScale))

// ValidMoney reports whether d is stored without rounding: at most
// MoneyScale fractional digits and no larger than MaxMoney.
func ValidMoney(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(MoneyScale)) && d.Abs().LessThanOrEqual(MaxMoney)
}
