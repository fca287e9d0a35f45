package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/transfer-saga/internal/domain"
)

const transferColumns = `id, from_account_id, to_account_id, amount, description, status,
	failure_reason, timestamp, updated_at`

type TransferRepository struct {
	db *sql.DB
}

func NewTransferRepository(db *sql.DB) *TransferRepository {
	return &TransferRepository{db: db}
}

func (r *TransferRepository) Create(ctx context.Context, t *domain.Transfer) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transfers (
			id, from_account_id, to_account_id, amount, description, status, timestamp, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.ID, t.FromAccountID, t.ToAccountID, t.Amount, t.Description, t.Status, t.Timestamp, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *TransferRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transfer, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transferColumns+` FROM transfers WHERE id = $1`, id,
	)
	t, err := scanTransfer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrTransferNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return t, nil
}

// MarkOutcome moves an INITIATED transfer to status. The WHERE clause is the
// transition guard: when two callers race, exactly one update lands and the
// other gets domain.ErrTransferNotPending.
func (r *TransferRepository) MarkOutcome(ctx context.Context, id uuid.UUID, status domain.TransferStatus, reason *string, at time.Time) (*domain.Transfer, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE transfers SET status = $1, failure_reason = $2, updated_at = $3
		WHERE id = $4 AND status = 'INITIATED'
		RETURNING `+transferColumns,
		status, reason, at, id,
	)
	t, err := scanTransfer(row)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("MarkOutcome: %w", err)
	}

	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, fmt.Errorf("MarkOutcome: %w", err)
	}
	return nil, fmt.Errorf("MarkOutcome: %w", domain.ErrTransferNotPending)
}

func (r *TransferRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Transfer, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transferColumns+` FROM transfers
		WHERE from_account_id = $1 OR to_account_id = $1
		ORDER BY timestamp DESC, id`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByAccount: %w", err)
	}
	defer rows.Close()

	transfers := []domain.Transfer{}
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("ListByAccount: scan: %w", err)
		}
		transfers = append(transfers, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByAccount: rows: %w", err)
	}
	return transfers, nil
}

func scanTransfer(s scanner) (*domain.Transfer, error) {
	var t domain.Transfer
	err := s.Scan(
		&t.ID, &t.FromAccountID, &t.ToAccountID, &t.Amount, &t.Description, &t.Status,
		&t.FailureReason, &t.Timestamp, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
