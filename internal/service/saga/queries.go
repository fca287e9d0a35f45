package saga

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/josh-kwaku/transfer-saga/internal/domain"
	"github.com/josh-kwaku/transfer-saga/internal/logging"
)

const dashboardHistoryFanout = 4

type AccountSummary struct {
	Account domain.Account
	History []domain.HistoryEntry
}

type Dashboard struct {
	Profile  *domain.UserProfile
	Accounts []AccountSummary
}

func (o *Orchestrator) History(ctx context.Context, accountID uuid.UUID) ([]domain.HistoryEntry, error) {
	entries, err := o.transfers.History(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("History: %w", err)
	}
	return entries, nil
}

func (o *Orchestrator) CreateAccount(ctx context.Context, ownerID uuid.UUID, accountType domain.AccountType, initialBalance decimal.Decimal) (*domain.Account, error) {
	a, err := o.balances.CreateAccount(ctx, ownerID, accountType, initialBalance)
	if err != nil {
		return nil, fmt.Errorf("CreateAccount: %w", err)
	}
	return a, nil
}

// Dashboard composes a user's profile, accounts and per-account history.
// A history lookup that fails leaves that account with an empty list rather
// than failing the whole view.
func (o *Orchestrator) Dashboard(ctx context.Context, userID uuid.UUID) (*Dashboard, error) {
	var (
		profile  *domain.UserProfile
		accounts []domain.Account
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := o.users.GetProfile(gctx, userID)
		if err != nil {
			return fmt.Errorf("profile: %w", err)
		}
		profile = p
		return nil
	})
	g.Go(func() error {
		list, err := o.balances.ListAccountsByOwner(gctx, userID)
		if err != nil {
			return fmt.Errorf("accounts: %w", err)
		}
		accounts = list
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("Dashboard: %w", err)
	}

	summaries := make([]AccountSummary, len(accounts))
	hg, hctx := errgroup.WithContext(ctx)
	hg.SetLimit(dashboardHistoryFanout)
	for i, a := range accounts {
		summaries[i].Account = a
		hg.Go(func() error {
			entries, err := o.transfers.History(hctx, a.ID)
			if err != nil {
				logging.FromContext(ctx).Warn("history unavailable for dashboard account",
					"account_id", a.ID,
					"error", err,
				)
				entries = []domain.HistoryEntry{}
			}
			summaries[i].History = entries
			return nil
		})
	}
	_ = hg.Wait()

	return &Dashboard{Profile: profile, Accounts: summaries}, nil
}
