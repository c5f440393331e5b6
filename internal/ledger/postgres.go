package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLedger persists account balances and the append-only entry log in
// PostgreSQL. Every mutating operation runs in a transaction that locks the
// balance row, so operations on one account are linearizable.
type PostgresLedger struct {
	db *pgxpool.Pool
}

// NewPostgresLedger constructs a Postgres-backed ledger implementation.
func NewPostgresLedger(db *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// EnsureAccount guarantees a zero-balance record exists for the account.
func (l *PostgresLedger) EnsureAccount(ctx context.Context, accountID string) error {
	_, err := l.db.Exec(ctx, `INSERT INTO account_balances (account_id, balance, total_credited, total_debited)
        VALUES ($1, 0, 0, 0) ON CONFLICT (account_id) DO NOTHING`, accountID)
	return err
}

// Balance returns the current standing for the account, initializing a zero
// balance on first access.
func (l *PostgresLedger) Balance(ctx context.Context, accountID string) (Balance, error) {
	if err := l.EnsureAccount(ctx, accountID); err != nil {
		return Balance{}, err
	}
	const query = `SELECT balance, total_credited, total_debited, COALESCE(last_credit_at, 'epoch')
        FROM account_balances WHERE account_id = $1`
	bal := Balance{AccountID: accountID}
	if err := l.db.QueryRow(ctx, query, accountID).Scan(&bal.Amount, &bal.TotalCredited, &bal.TotalDebited, &bal.LastCreditAt); err != nil {
		return Balance{}, err
	}
	return bal, nil
}

// CheckSufficient reports whether the account can cover the amount. Read-only;
// callers must still expect Debit to reject if a concurrent debit wins.
func (l *PostgresLedger) CheckSufficient(ctx context.Context, accountID string, amount int64) (SufficiencyReport, error) {
	if amount <= 0 {
		return SufficiencyReport{}, ErrInvalidAmount
	}
	bal, err := l.Balance(ctx, accountID)
	if err != nil {
		return SufficiencyReport{}, err
	}
	report := SufficiencyReport{Sufficient: bal.Amount >= amount, Balance: bal.Amount}
	if !report.Sufficient {
		report.Shortfall = amount - bal.Amount
	}
	return report, nil
}

// Debit atomically decrements the balance and appends a DEBIT entry. The
// sufficiency check runs under the row lock, so two racing debits can never
// both observe the pre-decrement balance.
func (l *PostgresLedger) Debit(ctx context.Context, accountID string, amount int64, description, reference string) (OperationResult, error) {
	if amount <= 0 {
		return OperationResult{}, ErrInvalidAmount
	}
	if err := l.EnsureAccount(ctx, accountID); err != nil {
		return OperationResult{}, err
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return OperationResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	balance, err := lockBalance(ctx, tx, accountID)
	if err != nil {
		return OperationResult{}, err
	}
	if balance < amount {
		return OperationResult{}, &InsufficientFundsError{AccountID: accountID, Balance: balance, Required: amount}
	}

	newBalance := balance - amount
	if _, err := tx.Exec(ctx, `UPDATE account_balances
        SET balance = $1, total_debited = total_debited + $2 WHERE account_id = $3`,
		newBalance, amount, accountID); err != nil {
		return OperationResult{}, err
	}

	entryID, err := insertEntry(ctx, tx, accountID, DirectionDebit, amount, description, reference, newBalance)
	if err != nil {
		return OperationResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return OperationResult{}, err
	}
	return OperationResult{EntryID: entryID, Balance: newBalance}, nil
}

// Credit atomically increments the balance, stamps the recharge time and
// appends a CREDIT entry.
func (l *PostgresLedger) Credit(ctx context.Context, accountID string, amount int64, description, reference string) (OperationResult, error) {
	return l.increment(ctx, accountID, amount, description, reference, true)
}

// Refund atomically restores previously-debited funds with a CREDIT entry.
// There is no upper bound and the recharge timestamp is left untouched.
func (l *PostgresLedger) Refund(ctx context.Context, accountID string, amount int64, description, reference string) (OperationResult, error) {
	return l.increment(ctx, accountID, amount, description, reference, false)
}

// Entries returns the account's transaction log, newest first.
func (l *PostgresLedger) Entries(ctx context.Context, accountID string, limit, offset int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `SELECT id, account_id, direction, amount, description, COALESCE(reference, ''), balance_after, created_at
        FROM account_entries WHERE account_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`
	rows, err := l.db.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var id uuid.UUID
		var createdAt time.Time
		if err := rows.Scan(&id, &e.AccountID, &e.Direction, &e.Amount, &e.Description, &e.Reference, &e.BalanceAfter, &createdAt); err != nil {
			return nil, err
		}
		e.ID = id.String()
		e.CreatedAt = createdAt.UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (l *PostgresLedger) increment(ctx context.Context, accountID string, amount int64, description, reference string, recharge bool) (OperationResult, error) {
	if amount <= 0 {
		return OperationResult{}, ErrInvalidAmount
	}
	if err := l.EnsureAccount(ctx, accountID); err != nil {
		return OperationResult{}, err
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return OperationResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	balance, err := lockBalance(ctx, tx, accountID)
	if err != nil {
		return OperationResult{}, err
	}

	newBalance := balance + amount
	update := `UPDATE account_balances SET balance = $1, total_credited = total_credited + $2 WHERE account_id = $3`
	if recharge {
		update = `UPDATE account_balances SET balance = $1, total_credited = total_credited + $2, last_credit_at = now() WHERE account_id = $3`
	}
	if _, err := tx.Exec(ctx, update, newBalance, amount, accountID); err != nil {
		return OperationResult{}, err
	}

	entryID, err := insertEntry(ctx, tx, accountID, DirectionCredit, amount, description, reference, newBalance)
	if err != nil {
		return OperationResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return OperationResult{}, err
	}
	return OperationResult{EntryID: entryID, Balance: newBalance}, nil
}

func lockBalance(ctx context.Context, tx pgx.Tx, accountID string) (int64, error) {
	const query = `SELECT balance FROM account_balances WHERE account_id = $1 FOR UPDATE`
	var balance int64
	if err := tx.QueryRow(ctx, query, accountID).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("account %s not found", accountID)
		}
		return 0, err
	}
	return balance, nil
}

func insertEntry(ctx context.Context, tx pgx.Tx, accountID string, direction Direction, amount int64, description, reference string, balanceAfter int64) (string, error) {
	id := uuid.New()
	_, err := tx.Exec(ctx, `INSERT INTO account_entries (id, account_id, direction, amount, description, reference, balance_after, created_at)
        VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, now())`,
		id, accountID, direction, amount, description, reference, balanceAfter)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
