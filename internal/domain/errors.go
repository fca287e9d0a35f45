package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error produced by the core wraps exactly one of these.
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrNotFound            = errors.New("not found")
	ErrInvalidAccountState = errors.New("invalid account state")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrInvalidTransaction  = errors.New("invalid transaction")
	ErrUnavailable         = errors.New("service unavailable")
	ErrReconciliation      = errors.New("reconciliation required")
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

func newKind(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

var (
	ErrInvalidAmount         = newKind(ErrInvalidInput, "amount must be greater than zero")
	ErrInvalidAccountType    = newKind(ErrInvalidInput, "account type must be SAVINGS or CHECKING")
	ErrInvalidInitialBalance = newKind(ErrInvalidInput, "initial balance cannot be negative")
	ErrAmountOutOfRange      = newKind(ErrInvalidInput, "money values allow at most 2 decimal places and 13 integer digits")
	ErrInvalidStatus         = newKind(ErrInvalidInput, "invalid status")
	ErrAccountNotFound       = newKind(ErrNotFound, "account not found")
	ErrTransferNotFound      = newKind(ErrNotFound, "transfer not found")
	ErrApplicationNotFound   = newKind(ErrNotFound, "transfer has not been applied to balances")
	ErrUserNotFound          = newKind(ErrNotFound, "user not found")
	ErrAccountInactive       = newKind(ErrInvalidAccountState, "account is not active")
	ErrSelfTransfer          = newKind(ErrInvalidTransaction, "source and destination accounts cannot be the same")
	ErrTransferNotPending    = newKind(ErrInvalidTransaction, "transfer already executed or in an invalid state")
	ErrAlreadyApplied        = newKind(ErrInvalidTransaction, "transfer already applied to balances")
	ErrExecutionInProgress   = newKind(ErrInvalidTransaction, "transfer execution already in progress")
	ErrUnresolvedAccount     = newKind(ErrInvalidTransaction, "account could not be resolved")
	ErrBalanceLimit          = newKind(ErrInvalidTransaction, "credit would exceed the maximum account balance")
)

var codes = []struct {
	code string
	err  error
}{
	{"INVALID_AMOUNT", ErrInvalidAmount},
	{"INVALID_ACCOUNT_TYPE", ErrInvalidAccountType},
	{"INVALID_INITIAL_BALANCE", ErrInvalidInitialBalance},
	{"AMOUNT_OUT_OF_RANGE", ErrAmountOutOfRange},
	{"INVALID_STATUS", ErrInvalidStatus},
	{"ACCOUNT_NOT_FOUND", ErrAccountNotFound},
	{"TRANSFER_NOT_FOUND", ErrTransferNotFound},
	{"APPLICATION_NOT_FOUND", ErrApplicationNotFound},
	{"USER_NOT_FOUND", ErrUserNotFound},
	{"ACCOUNT_INACTIVE", ErrAccountInactive},
	{"SELF_TRANSFER_NOT_ALLOWED", ErrSelfTransfer},
	{"TRANSFER_NOT_PENDING", ErrTransferNotPending},
	{"ALREADY_APPLIED", ErrAlreadyApplied},
	{"EXECUTION_IN_PROGRESS", ErrExecutionInProgress},
	{"UNRESOLVED_ACCOUNT", ErrUnresolvedAccount},
	{"BALANCE_LIMIT_EXCEEDED", ErrBalanceLimit},

	{"INVALID_INPUT", ErrInvalidInput},
	{"NOT_FOUND", ErrNotFound},
	{"INVALID_ACCOUNT_STATE", ErrInvalidAccountState},
	{"INSUFFICIENT_FUNDS", ErrInsufficientFunds},
	{"INVALID_TRANSACTION", ErrInvalidTransaction},
	{"UNAVAILABLE", ErrUnavailable},
	{"RECONCILIATION_ALERT", ErrReconciliation},
}

// Describe returns the stable wire code and the public message for err.
// ok is false when err does not belong to the taxonomy.
func Describe(err error) (code, message string, ok bool) {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code, c.err.Error(), true
		}
	}
	return "", "", false
}

// FromCode rebuilds a taxonomy error received from a collaborator so that
// errors.Is keeps working across the network hop. Unknown codes yield nil.
func FromCode(code, message string) error {
	for _, c := range codes {
		if c.code == code {
			if message == "" || message == c.err.Error() {
				return c.err
			}
			return fmt.Errorf("%w: %s", c.err, message)
		}
	}
	return nil
}

// KindOf returns the kind sentinel err belongs to, or nil.
func KindOf(err error) error {
	for _, k := range []error{
		ErrInvalidInput, ErrNotFound, ErrInvalidAccountState, ErrInsufficientFunds,
		ErrInvalidTransaction, ErrUnavailable, ErrReconciliation,
	} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
