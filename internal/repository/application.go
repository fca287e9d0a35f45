package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/josh-kwaku/transfer-saga/internal/domain"
)

type ApplicationRepository struct {
	db *sql.DB
}

func NewApplicationRepository(db *sql.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// Create records that a transfer moved money. It must run in the same
// transaction as the balance writes; a second insert for the same transfer
// fails with domain.ErrAlreadyApplied.
func (r *ApplicationRepository) Create(ctx context.Context, tx *sql.Tx, app *domain.TransferApplication) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO transfer_applications (transfer_id, from_account_id, to_account_id, amount, applied_at)
		VALUES ($1, $2, $3, $4, $5)`,
		app.TransferID, app.FromAccountID, app.ToAccountID, app.Amount, app.AppliedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "") {
			return fmt.Errorf("Create: %w", domain.ErrAlreadyApplied)
		}
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *ApplicationRepository) GetByTransferID(ctx context.Context, transferID uuid.UUID) (*domain.TransferApplication, error) {
	var a domain.TransferApplication
	err := r.db.QueryRowContext(ctx,
		`SELECT transfer_id, from_account_id, to_account_id, amount, applied_at
		FROM transfer_applications WHERE transfer_id = $1`, transferID,
	).Scan(&a.TransferID, &a.FromAccountID, &a.ToAccountID, &a.Amount, &a.AppliedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByTransferID: %w", domain.ErrApplicationNotFound)
		}
		return nil, fmt.Errorf("GetByTransferID: %w", err)
	}
	return &a, nil
}
