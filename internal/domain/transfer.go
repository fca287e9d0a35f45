package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransferStatus string

const (
	TransferStatusInitiated TransferStatus = "INITIATED"
	TransferStatusSuccess   TransferStatus = "SUCCESS"
	TransferStatusFailed    TransferStatus = "FAILED"
)

func (s TransferStatus) IsValid() bool {
	switch s {
	case TransferStatusInitiated, TransferStatusSuccess, TransferStatusFailed:
		return true
	}
	return false
}

func (s TransferStatus) IsTerminal() bool {
	return s == TransferStatusSuccess || s == TransferStatusFailed
}

// CanTransitionTo reports whether the ledger may move a transfer from s to
// next. INITIATED is the only state with outgoing edges.
func (s TransferStatus) CanTransitionTo(next TransferStatus) bool {
	return s == TransferStatusInitiated && next.IsTerminal()
}

type Transfer struct {
	ID            uuid.UUID
	FromAccountID uuid.UUID
	ToAccountID   uuid.UUID
	Amount        decimal.Decimal
	Description   *string
	Status        TransferStatus
	FailureReason *string
	Timestamp     time.Time
	UpdatedAt     time.Time
}

type HistoryEntry struct {
	TransferID  uuid.UUID
	AccountID   uuid.UUID
	Amount      decimal.Decimal
	Description *string
	Status      TransferStatus
	Timestamp   time.Time
}

// HistoryFor presents t from the point of view of accountID: outgoing
// amounts are negative, incoming ones positive.
func (t *Transfer) HistoryFor(accountID uuid.UUID) HistoryEntry {
	amount := t.Amount
	if t.FromAccountID == accountID {
		amount = amount.Neg()
	}
	return HistoryEntry{
		TransferID:  t.ID,
		AccountID:   accountID,
		Amount:      amount,
		Description: t.Description,
		Status:      t.Status,
		Timestamp:   t.Timestamp,
	}
}

// MaxDescriptionLength bounds Transfer.Description.
const MaxDescriptionLength = 255

type InitiationRequest struct {
	FromAccountID uuid.UUID
	ToAccountID   uuid.UUID
	Amount        decimal.Decimal
	Description   *string
}
