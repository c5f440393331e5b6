package booking

import (
	"context"
	"errors"
	"testing"

	"github.com/rajeshtiwari2503/spareflow-sub004/internal/carrier"
	"github.com/rajeshtiwari2503/spareflow-sub004/internal/ledger"
	"github.com/rajeshtiwari2503/spareflow-sub004/internal/logging"
	"github.com/rajeshtiwari2503/spareflow-sub004/internal/margin"
	"github.com/rajeshtiwari2503/spareflow-sub004/internal/pricing"
	"github.com/rajeshtiwari2503/spareflow-sub004/internal/wallet"
)

type fakeGateway struct {
	calls   int
	results []carrier.BookingResult
}

func (g *fakeGateway) IssueWaybill(_ context.Context, _ carrier.BookingRequest) carrier.BookingResult {
	idx := g.calls
	if idx >= len(g.results) {
		idx = len(g.results) - 1
	}
	g.calls++
	return g.results[idx]
}

type fixture struct {
	svc       *Service
	ledger    ledger.Ledger
	store     pricing.RuleStore
	margins   margin.Store
	gateway   *fakeGateway
	accountID string
}

func newFixture(t *testing.T, gateway *fakeGateway) *fixture {
	t.Helper()
	led := ledger.NewInMemory()
	store := pricing.NewMemoryRuleStore()
	resolver := pricing.NewResolver(store, 9_000, logging.Discard())
	accounts := wallet.NewService(wallet.NewMemoryRepository(), led)
	marginStore := margin.NewMemoryStore()
	margins := margin.NewRecorder(marginStore, logging.Discard())

	account, err := accounts.Create(context.Background(), wallet.CreateInput{Name: "Sharma Auto Spares", Role: "brand"})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	origin := Origin{Name: "SpareFlow Warehouse", Address: "Plot 7, MIDC", Pincode: "411019"}
	svc := NewService(resolver, led, gateway, accounts, margins, nil, origin, 0, logging.Discard())

	return &fixture{svc: svc, ledger: led, store: store, margins: marginStore, gateway: gateway, accountID: account.ID}
}

func shipment() ShipmentInput {
	return ShipmentInput{
		ConsigneeName:  "Asha Verma",
		ConsigneePhone: "9876543210",
		Address:        "14 MG Road",
		City:           "Pune",
		State:          "MH",
		Pincode:        "411001",
		WeightKg:       2,
		DeclaredValue:  50_000,
		Units:          1,
	}
}

func success(waybill string) carrier.BookingResult {
	return carrier.BookingResult{Waybill: waybill, TrackingURL: "https://track/" + waybill, Attempts: 1}
}

func fallback() carrier.BookingResult {
	return carrier.BookingResult{
		Waybill:        "SF-FB-20250101120000-ABC123",
		Fallback:       true,
		FallbackReason: "carrier unreachable after 3 attempts: timeout",
		Attempts:       3,
	}
}

func terminal(err error) carrier.BookingResult {
	return carrier.BookingResult{Err: err, Attempts: 1}
}

// Scenario: balance ₹200, booking priced at ₹150 (₹130 account rate + ₹20
// zone surcharge), carrier times out into fallback. The booking settles and
// the debit stands at ₹50 remaining.
func TestBookFallbackSettles(t *testing.T) {
	f := newFixture(t, &fakeGateway{results: []carrier.BookingResult{fallback()}})
	ctx := context.Background()

	if _, err := f.store.SaveAccountRate(ctx, pricing.AccountRate{AccountID: f.accountID, RatePaise: 13_000, Active: true}); err != nil {
		t.Fatalf("save rate: %v", err)
	}
	if _, err := f.store.SaveZoneRate(ctx, pricing.ZoneRate{ZoneKey: "411001", SurchargePaise: 2_000, Active: true}); err != nil {
		t.Fatalf("save zone: %v", err)
	}
	ledger.SeedBalance(f.ledger, f.accountID, 20_000)

	outcome, err := f.svc.Book(ctx, f.accountID, shipment())
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if outcome.State != StateSettled {
		t.Fatalf("expected SETTLED, got %s", outcome.State)
	}
	if outcome.Price != 15_000 {
		t.Fatalf("expected price 15000, got %d", outcome.Price)
	}
	if !outcome.Fallback || outcome.Waybill == "" {
		t.Fatalf("expected flagged fallback waybill, got %+v", outcome)
	}
	if outcome.BalanceAfter != 5_000 {
		t.Fatalf("expected balance 5000 after settle, got %d", outcome.BalanceAfter)
	}

	// No refund posted: fallback counts as success.
	bal, _ := f.ledger.Balance(ctx, f.accountID)
	if bal.Amount != 5_000 {
		t.Fatalf("expected balance 5000, got %d", bal.Amount)
	}
}

// Scenario: balance ₹50, booking priced at ₹80. The sufficiency check aborts
// with a ₹30 shortfall before any debit or carrier call.
func TestBookInsufficientFundsAbortsEarly(t *testing.T) {
	f := newFixture(t, &fakeGateway{results: []carrier.BookingResult{success("DTDC1")}})
	ctx := context.Background()

	if _, err := f.store.SaveAccountRate(ctx, pricing.AccountRate{AccountID: f.accountID, RatePaise: 8_000, Active: true}); err != nil {
		t.Fatalf("save rate: %v", err)
	}
	ledger.SeedBalance(f.ledger, f.accountID, 5_000)

	_, err := f.svc.Book(ctx, f.accountID, shipment())
	if !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	var ife *ledger.InsufficientFundsError
	if !errors.As(err, &ife) {
		t.Fatalf("expected structured error, got %T", err)
	}
	if ife.Balance != 5_000 || ife.Shortfall() != 3_000 {
		t.Fatalf("unexpected detail: %+v", ife)
	}

	if f.gateway.calls != 0 {
		t.Fatalf("carrier must not be called, got %d calls", f.gateway.calls)
	}
	bal, _ := f.ledger.Balance(ctx, f.accountID)
	if bal.Amount != 5_000 {
		t.Fatalf("balance must be untouched, got %d", bal.Amount)
	}
	entries, _ := f.ledger.Entries(ctx, f.accountID, 10, 0)
	if len(entries) != 0 {
		t.Fatalf("no ledger entries expected, got %d", len(entries))
	}
}

// Scenario: booking priced at ₹100 debits, the carrier answers HTTP 400. The
// exact debit is refunded and the saga ends COMPENSATED.
func TestBookTerminalCarrierFailureCompensates(t *testing.T) {
	badReq := &carrier.BadRequestError{Message: "pincode not serviceable"}
	f := newFixture(t, &fakeGateway{results: []carrier.BookingResult{terminal(badReq)}})
	ctx := context.Background()

	if _, err := f.store.SaveAccountRate(ctx, pricing.AccountRate{AccountID: f.accountID, RatePaise: 10_000, Active: true}); err != nil {
		t.Fatalf("save rate: %v", err)
	}
	ledger.SeedBalance(f.ledger, f.accountID, 25_000)

	outcome, err := f.svc.Book(ctx, f.accountID, shipment())
	var gotBadReq *carrier.BadRequestError
	if !errors.As(err, &gotBadReq) {
		t.Fatalf("expected carrier bad request surfaced, got %v", err)
	}
	if outcome.State != StateCompensated {
		t.Fatalf("expected COMPENSATED, got %s", outcome.State)
	}
	if outcome.BalanceAfter != 25_000 {
		t.Fatalf("expected pre-booking balance restored, got %d", outcome.BalanceAfter)
	}

	// Debit and refund both logged, amounts equal.
	entries, _ := f.ledger.Entries(ctx, f.accountID, 10, 0)
	if len(entries) != 2 {
		t.Fatalf("expected debit + refund entries, got %d", len(entries))
	}
	if entries[0].Direction != ledger.DirectionCredit || entries[1].Direction != ledger.DirectionDebit {
		t.Fatalf("unexpected entry order: %+v", entries)
	}
	if entries[0].Amount != entries[1].Amount {
		t.Fatalf("refund %d must equal debit %d", entries[0].Amount, entries[1].Amount)
	}
	if entries[0].Reference != outcome.Ref || entries[1].Reference != outcome.Ref {
		t.Fatalf("entries must reference the booking: %+v", entries)
	}
}

func TestBookRecordsMarginOnSettle(t *testing.T) {
	result := success("DTDC9")
	result.CourierCharge = 6_000
	f := newFixture(t, &fakeGateway{results: []carrier.BookingResult{result}})
	ctx := context.Background()

	if _, err := f.store.SaveAccountRate(ctx, pricing.AccountRate{AccountID: f.accountID, RatePaise: 10_000, Active: true}); err != nil {
		t.Fatalf("save rate: %v", err)
	}
	ledger.SeedBalance(f.ledger, f.accountID, 25_000)

	outcome, err := f.svc.Book(ctx, f.accountID, shipment())
	if err != nil {
		t.Fatalf("book: %v", err)
	}

	record, err := f.margins.ByBookingRef(ctx, outcome.Ref)
	if err != nil {
		t.Fatalf("margin lookup: %v", err)
	}
	if record.Margin != 4_000 || record.EstimatedCost {
		t.Fatalf("unexpected margin record: %+v", record)
	}
}

func TestBookInvalidPricingInputAbortsBeforeSideEffects(t *testing.T) {
	f := newFixture(t, &fakeGateway{results: []carrier.BookingResult{success("DTDC1")}})
	ctx := context.Background()
	ledger.SeedBalance(f.ledger, f.accountID, 25_000)

	bad := shipment()
	bad.Units = 0
	_, err := f.svc.Book(ctx, f.accountID, bad)
	if !errors.Is(err, pricing.ErrInvalidInput) {
		t.Fatalf("expected pricing input error, got %v", err)
	}
	if f.gateway.calls != 0 {
		t.Fatal("carrier must not be called for invalid input")
	}
	bal, _ := f.ledger.Balance(ctx, f.accountID)
	if bal.Amount != 25_000 {
		t.Fatalf("balance must be untouched, got %d", bal.Amount)
	}
}

// Batch invariant: one debit for the sum, one refund for the failed subset;
// final balance = initial − Σ(successes).
func TestBookBatchPartialFailure(t *testing.T) {
	gateway := &fakeGateway{results: []carrier.BookingResult{
		success("DTDC1"),
		terminal(&carrier.BadRequestError{Message: "bad address"}),
		fallback(),
	}}
	f := newFixture(t, gateway)
	ctx := context.Background()

	if _, err := f.store.SaveAccountRate(ctx, pricing.AccountRate{AccountID: f.accountID, RatePaise: 10_000, Active: true}); err != nil {
		t.Fatalf("save rate: %v", err)
	}
	ledger.SeedBalance(f.ledger, f.accountID, 100_000)

	outcome, err := f.svc.BookBatch(ctx, f.accountID, []ShipmentInput{shipment(), shipment(), shipment()})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if outcome.TotalPrice != 30_000 {
		t.Fatalf("expected total 30000, got %d", outcome.TotalPrice)
	}
	if outcome.RefundedAmount != 10_000 {
		t.Fatalf("expected refund 10000 for the failed shipment, got %d", outcome.RefundedAmount)
	}
	// Two successes (one real, one fallback) at 10000 each.
	if outcome.BalanceAfter != 80_000 {
		t.Fatalf("expected balance 80000, got %d", outcome.BalanceAfter)
	}
	if len(outcome.Shipments) != 3 {
		t.Fatalf("expected 3 shipment outcomes, got %d", len(outcome.Shipments))
	}
	if outcome.Shipments[1].Err == nil {
		t.Fatal("expected second shipment to report its carrier error")
	}
	if !outcome.Shipments[2].Fallback {
		t.Fatal("expected third shipment flagged as fallback")
	}

	bal, _ := f.ledger.Balance(ctx, f.accountID)
	if bal.Amount != 80_000 {
		t.Fatalf("ledger balance %d does not match invariant", bal.Amount)
	}

	// Exactly one debit and one refund entry for the whole batch.
	entries, _ := f.ledger.Entries(ctx, f.accountID, 10, 0)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
}

func TestBookBatchAllSucceedNoRefund(t *testing.T) {
	f := newFixture(t, &fakeGateway{results: []carrier.BookingResult{success("DTDC1")}})
	ctx := context.Background()

	if _, err := f.store.SaveAccountRate(ctx, pricing.AccountRate{AccountID: f.accountID, RatePaise: 10_000, Active: true}); err != nil {
		t.Fatalf("save rate: %v", err)
	}
	ledger.SeedBalance(f.ledger, f.accountID, 50_000)

	outcome, err := f.svc.BookBatch(ctx, f.accountID, []ShipmentInput{shipment(), shipment()})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if outcome.RefundedAmount != 0 {
		t.Fatalf("expected no refund, got %d", outcome.RefundedAmount)
	}
	if outcome.BalanceAfter != 30_000 {
		t.Fatalf("expected balance 30000, got %d", outcome.BalanceAfter)
	}
}

func TestBookBatchInsufficientFundsMakesNoCarrierCalls(t *testing.T) {
	gateway := &fakeGateway{results: []carrier.BookingResult{success("DTDC1")}}
	f := newFixture(t, gateway)
	ctx := context.Background()

	if _, err := f.store.SaveAccountRate(ctx, pricing.AccountRate{AccountID: f.accountID, RatePaise: 10_000, Active: true}); err != nil {
		t.Fatalf("save rate: %v", err)
	}
	ledger.SeedBalance(f.ledger, f.accountID, 15_000)

	_, err := f.svc.BookBatch(ctx, f.accountID, []ShipmentInput{shipment(), shipment()})
	if !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if gateway.calls != 0 {
		t.Fatalf("no carrier calls expected, got %d", gateway.calls)
	}
}

// refundlessLedger simulates a ledger outage at the worst moment: after the
// debit, during compensation.
type refundlessLedger struct {
	ledger.Ledger
}

func (l refundlessLedger) Refund(context.Context, string, int64, string, string) (ledger.OperationResult, error) {
	return ledger.OperationResult{}, errors.New("ledger unavailable")
}

func TestBookCompensationFailureEscalates(t *testing.T) {
	f := newFixture(t, &fakeGateway{results: []carrier.BookingResult{terminal(&carrier.BadRequestError{Message: "bad"})}})
	ctx := context.Background()

	if _, err := f.store.SaveAccountRate(ctx, pricing.AccountRate{AccountID: f.accountID, RatePaise: 10_000, Active: true}); err != nil {
		t.Fatalf("save rate: %v", err)
	}
	ledger.SeedBalance(f.ledger, f.accountID, 25_000)

	f.svc.ledger = refundlessLedger{Ledger: f.ledger}

	_, err := f.svc.Book(ctx, f.accountID, shipment())
	var compErr *CompensationError
	if !errors.As(err, &compErr) {
		t.Fatalf("expected *CompensationError, got %v", err)
	}
	if compErr.Amount != 10_000 {
		t.Fatalf("expected stuck amount 10000, got %d", compErr.Amount)
	}
}
