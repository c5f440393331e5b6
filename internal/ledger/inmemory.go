package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type inMemoryLedger struct {
	mu       sync.RWMutex
	balances map[string]*Balance
	entries  map[string][]Entry
}

// NewInMemory creates a concurrency-safe in-memory ledger useful for unit
// tests and for running the API without Postgres in development.
func NewInMemory() Ledger {
	return &inMemoryLedger{
		balances: make(map[string]*Balance),
		entries:  make(map[string][]Entry),
	}
}

func (l *inMemoryLedger) EnsureAccount(_ context.Context, accountID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ensureLocked(accountID)
	return nil
}

func (l *inMemoryLedger) Balance(_ context.Context, accountID string) (Balance, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return *l.ensureLocked(accountID), nil
}

func (l *inMemoryLedger) CheckSufficient(_ context.Context, accountID string, amount int64) (SufficiencyReport, error) {
	if amount <= 0 {
		return SufficiencyReport{}, ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	bal := l.ensureLocked(accountID)
	report := SufficiencyReport{Sufficient: bal.Amount >= amount, Balance: bal.Amount}
	if !report.Sufficient {
		report.Shortfall = amount - bal.Amount
	}
	return report, nil
}

func (l *inMemoryLedger) Debit(_ context.Context, accountID string, amount int64, description, reference string) (OperationResult, error) {
	if amount <= 0 {
		return OperationResult{}, ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	bal := l.ensureLocked(accountID)
	if bal.Amount < amount {
		return OperationResult{}, &InsufficientFundsError{AccountID: accountID, Balance: bal.Amount, Required: amount}
	}

	bal.Amount -= amount
	bal.TotalDebited += amount
	return l.appendLocked(accountID, DirectionDebit, amount, description, reference, bal.Amount), nil
}

func (l *inMemoryLedger) Credit(_ context.Context, accountID string, amount int64, description, reference string) (OperationResult, error) {
	if amount <= 0 {
		return OperationResult{}, ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	bal := l.ensureLocked(accountID)
	bal.Amount += amount
	bal.TotalCredited += amount
	bal.LastCreditAt = time.Now().UTC()
	return l.appendLocked(accountID, DirectionCredit, amount, description, reference, bal.Amount), nil
}

func (l *inMemoryLedger) Refund(_ context.Context, accountID string, amount int64, description, reference string) (OperationResult, error) {
	if amount <= 0 {
		return OperationResult{}, ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	// Refunds restore previously-debited funds; no upper bound check and no
	// recharge timestamp update.
	bal := l.ensureLocked(accountID)
	bal.Amount += amount
	bal.TotalCredited += amount
	return l.appendLocked(accountID, DirectionCredit, amount, description, reference, bal.Amount), nil
}

func (l *inMemoryLedger) Entries(_ context.Context, accountID string, limit, offset int) ([]Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	all := l.entries[accountID]
	// Newest first, matching the Postgres implementation.
	reversed := make([]Entry, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		reversed = append(reversed, all[i])
	}
	if offset >= len(reversed) {
		return nil, nil
	}
	reversed = reversed[offset:]
	if limit > 0 && limit < len(reversed) {
		reversed = reversed[:limit]
	}
	return reversed, nil
}

func (l *inMemoryLedger) ensureLocked(accountID string) *Balance {
	if bal, ok := l.balances[accountID]; ok {
		return bal
	}
	bal := &Balance{AccountID: accountID}
	l.balances[accountID] = bal
	return bal
}

func (l *inMemoryLedger) appendLocked(accountID string, direction Direction, amount int64, description, reference string, balanceAfter int64) OperationResult {
	entry := Entry{
		ID:           uuid.NewString(),
		AccountID:    accountID,
		Direction:    direction,
		Amount:       amount,
		Description:  description,
		Reference:    reference,
		BalanceAfter: balanceAfter,
		CreatedAt:    time.Now().UTC(),
	}
	l.entries[accountID] = append(l.entries[accountID], entry)
	return OperationResult{EntryID: entry.ID, Balance: balanceAfter}
}
