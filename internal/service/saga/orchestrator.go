package saga

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/josh-kwaku/transfer-saga/internal/domain"
	"github.com/josh-kwaku/transfer-saga/internal/lock"
	"github.com/josh-kwaku/transfer-saga/internal/logging"
)

type balanceLedger interface {
	GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	ListAccountsByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Account, error)
	CreateAccount(ctx context.Context, ownerID uuid.UUID, accountType domain.AccountType, initialBalance decimal.Decimal) (*domain.Account, error)
	AtomicTransfer(ctx context.Context, req domain.TransferRequest) (*domain.TransferApplication, error)
	GetApplication(ctx context.Context, transferID uuid.UUID) (*domain.TransferApplication, error)
}

type transferLedger interface {
	RecordInitiation(ctx context.Context, req domain.InitiationRequest) (*domain.Transfer, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Transfer, error)
	MarkOutcome(ctx context.Context, id uuid.UUID, outcome domain.TransferStatus, reason *string) (*domain.Transfer, error)
	History(ctx context.Context, accountID uuid.UUID) ([]domain.HistoryEntry, error)
}

type userDirectory interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*domain.UserProfile, error)
}

type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (lock.Unlock, bool, error)
}

type Options struct {
	// LockTTL bounds how long one Execute may hold a transfer before another
	// caller can take over.
	LockTTL time.Duration
	// OutcomeTimeout applies to ledger status writes, which run detached from
	// the caller's context.
	OutcomeTimeout time.Duration
}

// Orchestrator sequences the initiate and execute phases across the balance
// and transfer authorities. It keeps no durable state of its own.
type Orchestrator struct {
	balances  balanceLedger
	transfers transferLedger
	users     userDirectory
	locker    Locker
	opts      Options
}

func New(balances balanceLedger, transfers transferLedger, users userDirectory, locker Locker, opts Options) *Orchestrator {
	return &Orchestrator{
		balances:  balances,
		transfers: transfers,
		users:     users,
		locker:    locker,
		opts:      opts,
	}
}

type Result struct {
	TransferID uuid.UUID
	Status     domain.TransferStatus
	Timestamp  time.Time
}

func resultOf(t *domain.Transfer) *Result {
	return &Result{TransferID: t.ID, Status: t.Status, Timestamp: t.Timestamp}
}

// Initiate validates both accounts and records an INITIATED transfer. Nothing
// is written when validation fails, so callers may retry freely.
func (o *Orchestrator) Initiate(ctx context.Context, req domain.InitiationRequest) (*Result, error) {
	if req.FromAccountID == req.ToAccountID {
		return nil, fmt.Errorf("Initiate: %w", domain.ErrSelfTransfer)
	}
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("Initiate: %w", domain.ErrInvalidAmount)
	}
	if !domain.ValidMoney(req.Amount) {
		return nil, fmt.Errorf("Initiate: %w", domain.ErrAmountOutOfRange)
	}

	from, to, err := o.fetchPair(ctx, req.FromAccountID, req.ToAccountID)
	if err != nil {
		return nil, fmt.Errorf("Initiate: %w", err)
	}
	if err := checkTransferable(from, to, req.Amount); err != nil {
		return nil, fmt.Errorf("Initiate: %w", err)
	}

	t, err := o.transfers.RecordInitiation(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Initiate: %w", err)
	}
	return resultOf(t), nil
}

// Execute moves the money for an INITIATED transfer and records the terminal
// status. Every accepted call ends with the ledger written, or with
// domain.ErrReconciliation and an alert when that write itself fails.
func (o *Orchestrator) Execute(ctx context.Context, transferID uuid.UUID) (*Result, error) {
	log := logging.FromContext(ctx).With("transfer_id", transferID)
	ctx = logging.WithLogger(ctx, log)

	unlock, acquired, err := o.locker.TryLock(ctx, "saga:execute:"+transferID.String(), o.opts.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("Execute: lock: %w: %v", domain.ErrUnavailable, err)
	}
	if !acquired {
		return nil, fmt.Errorf("Execute: %w", domain.ErrExecutionInProgress)
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			log.Warn("failed to release execute lock", "error", err)
		}
	}()

	t, err := o.transfers.Get(ctx, transferID)
	if err != nil {
		return nil, fmt.Errorf("Execute: %w", err)
	}
	if t.Status != domain.TransferStatusInitiated {
		return nil, fmt.Errorf("Execute: %w", domain.ErrTransferNotPending)
	}

	applied, err := o.alreadyApplied(ctx, t.ID)
	if err != nil {
		return nil, fmt.Errorf("Execute: %w", err)
	}
	if applied {
		log.Warn("balances already moved by an earlier attempt, recording success")
		return o.succeed(ctx, t)
	}

	from, to, err := o.fetchPair(ctx, t.FromAccountID, t.ToAccountID)
	if err == nil {
		err = checkTransferable(from, to, t.Amount)
	}
	if err != nil {
		return o.fail(ctx, t, err)
	}

	_, err = o.balances.AtomicTransfer(ctx, domain.TransferRequest{
		Reference:     t.ID,
		FromAccountID: t.FromAccountID,
		ToAccountID:   t.ToAccountID,
		Amount:        t.Amount,
	})
	switch {
	case err == nil:
		return o.succeed(ctx, t)
	case errors.Is(err, domain.ErrAlreadyApplied):
		log.Warn("balance ledger reports transfer already applied, recording success")
		return o.succeed(ctx, t)
	case errors.Is(err, domain.ErrUnavailable):
		return o.settleAmbiguous(ctx, t, err)
	default:
		return o.fail(ctx, t, err)
	}
}

// settleAmbiguous handles a balance call whose outcome is unknown: the
// request may or may not have committed on the other side.
func (o *Orchestrator) settleAmbiguous(ctx context.Context, t *domain.Transfer, cause error) (*Result, error) {
	applied, err := o.alreadyApplied(context.WithoutCancel(ctx), t.ID)
	if err == nil && applied {
		logging.FromContext(ctx).Warn("balance call failed after committing, recording success", "error", cause)
		return o.succeed(ctx, t)
	}

	logging.Alert(ctx, "balance transfer outcome unknown, marking failed; verify the transfer application before retrying",
		"transfer_id", t.ID,
		"from_account", t.FromAccountID,
		"to_account", t.ToAccountID,
		"amount", t.Amount.StringFixed(domain.MoneyScale),
		"error", cause,
	)
	return o.fail(ctx, t, cause)
}

func (o *Orchestrator) alreadyApplied(ctx context.Context, transferID uuid.UUID) (bool, error) {
	_, err := o.balances.GetApplication(ctx, transferID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("alreadyApplied: %w", err)
	}
}

func (o *Orchestrator) succeed(ctx context.Context, t *domain.Transfer) (*Result, error) {
	done, err := o.markOutcome(ctx, t.ID, domain.TransferStatusSuccess, nil)
	if errors.Is(err, domain.ErrTransferNotPending) {
		done, err = o.recordedSuccess(ctx, t.ID, err)
	}
	if err != nil {
		logging.Alert(ctx, "balances moved but transfer ledger still INITIATED",
			"transfer_id", t.ID,
			"from_account", t.FromAccountID,
			"to_account", t.ToAccountID,
			"amount", t.Amount.StringFixed(domain.MoneyScale),
			"error", err,
		)
		return nil, fmt.Errorf("Execute: %w: record success: %v", domain.ErrReconciliation, err)
	}

	logging.FromContext(ctx).Info("transfer executed", "status", done.Status)
	res := resultOf(done)
	if !done.UpdatedAt.IsZero() {
		res.Timestamp = done.UpdatedAt
	}
	return res, nil
}

// recordedSuccess accepts a lost race on the success write when the winner
// recorded the same outcome. Anything else is still a mismatch.
func (o *Orchestrator) recordedSuccess(ctx context.Context, id uuid.UUID, cause error) (*domain.Transfer, error) {
	current, err := o.transfers.Get(context.WithoutCancel(ctx), id)
	if err != nil {
		return nil, fmt.Errorf("%v; reread: %w", cause, err)
	}
	if current.Status != domain.TransferStatusSuccess {
		return nil, fmt.Errorf("%w; ledger shows %s", cause, current.Status)
	}
	logging.FromContext(ctx).Warn("success already recorded by another caller")
	return current, nil
}

func (o *Orchestrator) fail(ctx context.Context, t *domain.Transfer, cause error) (*Result, error) {
	reason := failureCode(cause)
	if _, err := o.markOutcome(ctx, t.ID, domain.TransferStatusFailed, &reason); err != nil {
		logging.Alert(ctx, "execution failed and transfer ledger still INITIATED",
			"transfer_id", t.ID,
			"cause", cause,
			"error", err,
		)
		return nil, fmt.Errorf("Execute: %w: record failure: %v", domain.ErrReconciliation, err)
	}

	logging.FromContext(ctx).Info("transfer failed", "reason", reason, "error", cause)
	return nil, fmt.Errorf("Execute: %w", cause)
}

// markOutcome survives the caller going away: once money has moved, or a
// decision to fail has been made, the ledger must hear about it.
func (o *Orchestrator) markOutcome(ctx context.Context, id uuid.UUID, status domain.TransferStatus, reason *string) (*domain.Transfer, error) {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.opts.OutcomeTimeout)
	defer cancel()
	return o.transfers.MarkOutcome(wctx, id, status, reason)
}

func failureCode(err error) string {
	if code, _, ok := domain.Describe(err); ok {
		return code
	}
	return "INTERNAL_ERROR"
}

func (o *Orchestrator) fetchPair(ctx context.Context, fromID, toID uuid.UUID) (*domain.Account, *domain.Account, error) {
	var from, to *domain.Account

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a, err := o.balances.GetAccount(gctx, fromID)
		if err != nil {
			return fmt.Errorf("source %s: %w", fromID, err)
		}
		from = a
		return nil
	})
	g.Go(func() error {
		a, err := o.balances.GetAccount(gctx, toID)
		if err != nil {
			return fmt.Errorf("destination %s: %w", toID, err)
		}
		to = a
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("fetchPair: %w", err)
	}
	return from, to, nil
}

// checkTransferable is a point-in-time check. It reserves nothing; the
// balance ledger repeats it under lock.
func checkTransferable(from, to *domain.Account, amount decimal.Decimal) error {
	if !from.IsActive() {
		return fmt.Errorf("source %s: %w", from.ID, domain.ErrAccountInactive)
	}
	if !to.IsActive() {
		return fmt.Errorf("destination %s: %w", to.ID, domain.ErrAccountInactive)
	}
	if from.Balance.LessThan(amount) {
		return fmt.Errorf("source %s: %w", from.ID, domain.ErrInsufficientFunds)
	}
	if to.Balance.Add(amount).GreaterThan(domain.MaxMoney) {
		return fmt.Errorf("destination %s: %w", to.ID, domain.ErrBalanceLimit)
	}
	return nil
}
