package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestInMemoryLedger_ReplayMatchesBalance(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()

	ops := []struct {
		kind   string
		amount int64
	}{
		{"credit", 20_000},
		{"debit", 7_500},
		{"credit", 1_000},
		{"debit", 2_500},
		{"refund", 2_500},
	}

	for i, op := range ops {
		var err error
		ref := fmt.Sprintf("op-%d", i)
		switch op.kind {
		case "credit":
			_, err = l.Credit(ctx, "acct-1", op.amount, "recharge", ref)
		case "debit":
			_, err = l.Debit(ctx, "acct-1", op.amount, "booking", ref)
		case "refund":
			_, err = l.Refund(ctx, "acct-1", op.amount, "compensation", ref)
		}
		if err != nil {
			t.Fatalf("op %d (%s): %v", i, op.kind, err)
		}
	}

	bal, err := l.Balance(ctx, "acct-1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal.Amount != 13_500 {
		t.Fatalf("expected balance 13500, got %d", bal.Amount)
	}
	if bal.Amount != bal.TotalCredited-bal.TotalDebited {
		t.Fatalf("balance invariant violated: %+v", bal)
	}

	// Replay the log oldest-first: the signed running sum must reproduce the
	// balance and every stored BalanceAfter along the way.
	entries, err := l.Entries(ctx, "acct-1", 100, 0)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != len(ops) {
		t.Fatalf("expected %d entries, got %d", len(ops), len(entries))
	}
	var running int64
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		switch e.Direction {
		case DirectionCredit:
			running += e.Amount
		case DirectionDebit:
			running -= e.Amount
		}
		if e.BalanceAfter != running {
			t.Fatalf("entry %s: BalanceAfter %d, running sum %d", e.ID, e.BalanceAfter, running)
		}
	}
	if running != bal.Amount {
		t.Fatalf("replayed sum %d does not match balance %d", running, bal.Amount)
	}
}

func TestInMemoryLedger_DebitRejectsOverdraft(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	SeedBalance(l, "acct-1", 5_000)

	_, err := l.Debit(ctx, "acct-1", 8_000, "booking", "ref-1")
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}

	var ife *InsufficientFundsError
	if !errors.As(err, &ife) {
		t.Fatalf("expected *InsufficientFundsError, got %T", err)
	}
	if ife.Balance != 5_000 || ife.Shortfall() != 3_000 {
		t.Fatalf("unexpected error detail: %+v", ife)
	}

	// No partial effect: balance and log untouched.
	bal, _ := l.Balance(ctx, "acct-1")
	if bal.Amount != 5_000 {
		t.Fatalf("balance changed after rejected debit: %d", bal.Amount)
	}
	entries, _ := l.Entries(ctx, "acct-1", 10, 0)
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(entries))
	}
}

func TestInMemoryLedger_CheckSufficient(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	SeedBalance(l, "acct-1", 5_000)

	report, err := l.CheckSufficient(ctx, "acct-1", 8_000)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if report.Sufficient {
		t.Fatal("expected insufficient")
	}
	if report.Balance != 5_000 || report.Shortfall != 3_000 {
		t.Fatalf("unexpected report: %+v", report)
	}

	report, err = l.CheckSufficient(ctx, "acct-1", 5_000)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !report.Sufficient || report.Shortfall != 0 {
		t.Fatalf("expected sufficient with zero shortfall: %+v", report)
	}
}

func TestInMemoryLedger_ConcurrentDebitsSerialize(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	SeedBalance(l, "acct-1", 10_000)

	// 40 workers race to debit 500 each; only 20 can win.
	const workers = 40
	const amount = int64(500)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var succeeded int
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := l.Debit(ctx, "acct-1", amount, "booking", fmt.Sprintf("race-%d", i)); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if succeeded != 20 {
		t.Fatalf("expected exactly 20 successful debits, got %d", succeeded)
	}
	bal, _ := l.Balance(ctx, "acct-1")
	if bal.Amount != 0 {
		t.Fatalf("expected zero balance, got %d", bal.Amount)
	}
}

func TestInMemoryLedger_CreditStampsRechargeTime(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()

	res, err := l.Credit(ctx, "acct-1", 3_000, "manual recharge", "")
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if res.Balance != 3_000 {
		t.Fatalf("expected balance 3000, got %d", res.Balance)
	}

	bal, _ := l.Balance(ctx, "acct-1")
	if bal.LastCreditAt.IsZero() {
		t.Fatal("expected LastCreditAt to be set after credit")
	}

	// Refund must not move the recharge timestamp.
	before := bal.LastCreditAt
	if _, err := l.Refund(ctx, "acct-1", 500, "compensation", "bk-1"); err != nil {
		t.Fatalf("refund: %v", err)
	}
	bal, _ = l.Balance(ctx, "acct-1")
	if !bal.LastCreditAt.Equal(before) {
		t.Fatal("refund should not update LastCreditAt")
	}
}

func TestInMemoryLedger_EntriesPaginateNewestFirst(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := l.Credit(ctx, "acct-1", int64(100*(i+1)), fmt.Sprintf("credit %d", i), ""); err != nil {
			t.Fatalf("credit %d: %v", i, err)
		}
	}

	page, err := l.Entries(ctx, "acct-1", 2, 0)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(page))
	}
	if page[0].Amount != 500 || page[1].Amount != 400 {
		t.Fatalf("expected newest first, got %d then %d", page[0].Amount, page[1].Amount)
	}

	page, err = l.Entries(ctx, "acct-1", 2, 4)
	if err != nil {
		t.Fatalf("entries offset: %v", err)
	}
	if len(page) != 1 || page[0].Amount != 100 {
		t.Fatalf("unexpected last page: %+v", page)
	}

	if page, _ = l.Entries(ctx, "acct-1", 2, 10); page != nil {
		t.Fatalf("expected empty page past the end, got %+v", page)
	}
}

func TestInMemoryLedger_RejectsNonPositiveAmounts(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()

	if _, err := l.Debit(ctx, "acct-1", 0, "x", ""); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("debit zero: expected ErrInvalidAmount, got %v", err)
	}
	if _, err := l.Credit(ctx, "acct-1", -5, "x", ""); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("credit negative: expected ErrInvalidAmount, got %v", err)
	}
	if _, err := l.Refund(ctx, "acct-1", 0, "x", ""); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("refund zero: expected ErrInvalidAmount, got %v", err)
	}
}
