package wallet

import (
	"context"
	"testing"

	"github.com/rajeshtiwari2503/spareflow-sub004/internal/ledger"
)

func TestServiceCreateAndBalance(t *testing.T) {
	repo := NewMemoryRepository()
	led := ledger.NewInMemory()
	svc := NewService(repo, led)

	ctx := context.Background()
	account, err := svc.Create(ctx, CreateInput{Name: "Sharma Auto Spares", Role: "distributor"})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	fetched, err := svc.Get(ctx, account.ID)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if fetched.Role != "distributor" || fetched.Status != "active" {
		t.Fatalf("unexpected account: %+v", fetched)
	}

	ledger.SeedBalance(led, account.ID, 2_500)

	balance, err := svc.Balance(ctx, account.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Amount != 2_500 {
		t.Fatalf("expected balance 2500, got %d", balance.Amount)
	}
}

func TestServiceRechargeAndHistory(t *testing.T) {
	repo := NewMemoryRepository()
	led := ledger.NewInMemory()
	svc := NewService(repo, led)

	ctx := context.Background()
	account, err := svc.Create(ctx, CreateInput{Name: "Verma Traders"})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	res, err := svc.Recharge(ctx, account.ID, 50_000, "rzp-12345")
	if err != nil {
		t.Fatalf("recharge: %v", err)
	}
	if res.Balance != 50_000 {
		t.Fatalf("expected balance 50000, got %d", res.Balance)
	}

	entries, err := svc.History(ctx, account.ID, 10, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 1 || entries[0].Direction != ledger.DirectionCredit {
		t.Fatalf("unexpected history: %+v", entries)
	}
	if entries[0].Reference != "rzp-12345" {
		t.Fatalf("expected reference carried into the entry, got %q", entries[0].Reference)
	}
}

func TestServiceGetUnknownAccount(t *testing.T) {
	svc := NewService(NewMemoryRepository(), ledger.NewInMemory())
	if _, err := svc.Get(context.Background(), "missing"); err == nil {
		t.Fatal("expected error for unknown account")
	}
}
