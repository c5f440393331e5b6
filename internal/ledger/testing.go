package ledger

// SeedBalance is a test helper that seeds the balance for an account when
// using the in-memory ledger. The seed is recorded as cumulative credit so
// the balance invariant still holds for replay checks.
func SeedBalance(l Ledger, accountID string, amount int64) {
	if mem, ok := l.(*inMemoryLedger); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		bal := mem.ensureLocked(accountID)
		bal.Amount = amount
		bal.TotalCredited = amount
	}
}
