package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInsufficientFunds occurs when an account lacks available balance to
	// cover a requested debit. Debits are rejected outright, never clamped.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidAmount indicates a non-positive amount was supplied to a
	// mutating ledger operation.
	ErrInvalidAmount = errors.New("amount must be positive")
)

// Direction labels an entry as money entering or leaving the account.
type Direction string

const (
	// DirectionCredit marks funds added to the account (recharges, refunds).
	DirectionCredit Direction = "CREDIT"
	// DirectionDebit marks funds removed from the account (bookings).
	DirectionDebit Direction = "DEBIT"
)

// InsufficientFundsError carries the structured detail a caller needs to act
// on a rejected debit without a follow-up balance query.
type InsufficientFundsError struct {
	AccountID string
	Balance   int64
	Required  int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: account %s has %d, requires %d (short %d)",
		e.AccountID, e.Balance, e.Required, e.Shortfall())
}

// Shortfall returns the missing amount in paise.
func (e *InsufficientFundsError) Shortfall() int64 {
	return e.Required - e.Balance
}

// Unwrap lets errors.Is match the ErrInsufficientFunds sentinel.
func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

// Balance is the current standing of one account. The invariant
// Amount == TotalCredited - TotalDebited holds at all times.
type Balance struct {
	AccountID     string
	Amount        int64
	TotalCredited int64
	TotalDebited  int64
	LastCreditAt  time.Time
}

// Entry is one immutable row of the append-only transaction log.
// BalanceAfter snapshots the account balance as of this entry so audits can
// replay the log without recomputing.
type Entry struct {
	ID           string    `json:"id"`
	AccountID    string    `json:"account_id"`
	Direction    Direction `json:"direction"`
	Amount       int64     `json:"amount"`
	Description  string    `json:"description"`
	Reference    string    `json:"reference,omitempty"`
	BalanceAfter int64     `json:"balance_after"`
	CreatedAt    time.Time `json:"created_at"`
}

// OperationResult captures the outcome of a mutating ledger operation.
type OperationResult struct {
	EntryID string
	Balance int64
}

// SufficiencyReport is the read-only answer to "can this account afford it".
type SufficiencyReport struct {
	Sufficient bool
	Balance    int64
	Shortfall  int64
}

// Ledger defines the contract implemented by ledger backends (e.g. Postgres).
// All amounts are int64 paise. Debit, Credit and Refund are each atomic:
// the balance mutation and the log entry land together or not at all, and
// concurrent operations on one account serialize.
type Ledger interface {
	EnsureAccount(ctx context.Context, accountID string) error
	Balance(ctx context.Context, accountID string) (Balance, error)
	CheckSufficient(ctx context.Context, accountID string, amount int64) (SufficiencyReport, error)
	Debit(ctx context.Context, accountID string, amount int64, description, reference string) (OperationResult, error)
	Credit(ctx context.Context, accountID string, amount int64, description, reference string) (OperationResult, error)
	Refund(ctx context.Context, accountID string, amount int64, description, reference string) (OperationResult, error)
	Entries(ctx context.Context, accountID string, limit, offset int) ([]Entry, error)
}
