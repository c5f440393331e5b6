package booking

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/rajeshtiwari2503/spareflow-sub004/internal/carrier"
	"github.com/rajeshtiwari2503/spareflow-sub004/internal/ledger"
	"github.com/rajeshtiwari2503/spareflow-sub004/internal/pricing"
)

func newTestApp(f *fixture) *fiber.App {
	app := fiber.New()
	h := NewHandler(f.svc, nil)
	app.Post("/bookings", h.Book)
	app.Post("/bookings/batch", h.BookBatch)
	return app
}

// seedRate pins the fixture account at a flat ₹90 so response arithmetic in
// the handler tests stays obvious.
func seedRate(t *testing.T, f *fixture) {
	t.Helper()
	if _, err := f.store.SaveAccountRate(context.Background(), pricing.AccountRate{
		AccountID: f.accountID, RatePaise: 9_000, Active: true,
	}); err != nil {
		t.Fatalf("save rate: %v", err)
	}
}

func postJSON(t *testing.T, app *fiber.App, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	resp.Body.Close()

	var decoded map[string]any
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &decoded); err != nil {
			t.Fatalf("decode body %q: %v", payload, err)
		}
	}
	return resp.StatusCode, decoded
}

func bookBody(accountID string) string {
	return `{"account_id":"` + accountID + `","shipment":{` +
		`"consignee_name":"Asha Verma","consignee_phone":"9876543210",` +
		`"address":"14 MG Road","city":"Pune","state":"MH","pincode":"411001",` +
		`"weight_kg":2,"declared_value":50000,"units":1}}`
}

func TestHandlerBookCreated(t *testing.T) {
	f := newFixture(t, &fakeGateway{results: []carrier.BookingResult{success("DTDC1")}})
	seedRate(t, f)
	ledger.SeedBalance(f.ledger, f.accountID, 25_000)
	app := newTestApp(f)

	status, body := postJSON(t, app, "/bookings", bookBody(f.accountID))
	if status != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d (%v)", status, body)
	}
	if body["state"] != string(StateSettled) {
		t.Fatalf("expected SETTLED, got %v", body["state"])
	}
	if body["waybill"] != "DTDC1" {
		t.Fatalf("expected waybill in response, got %v", body["waybill"])
	}
	if body["balance_after"] != float64(16_000) {
		t.Fatalf("expected balance_after 16000, got %v", body["balance_after"])
	}
}

func TestHandlerBookInsufficientFundsDetail(t *testing.T) {
	f := newFixture(t, &fakeGateway{results: []carrier.BookingResult{success("DTDC1")}})
	seedRate(t, f)
	ledger.SeedBalance(f.ledger, f.accountID, 5_000)
	app := newTestApp(f)

	status, body := postJSON(t, app, "/bookings", bookBody(f.accountID))
	if status != fiber.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d (%v)", status, body)
	}
	if body["balance"] != float64(5_000) || body["shortfall"] != float64(4_000) {
		t.Fatalf("expected balance/shortfall detail, got %v", body)
	}
}

func TestHandlerBookCompensatedOutcome(t *testing.T) {
	f := newFixture(t, &fakeGateway{results: []carrier.BookingResult{
		terminal(&carrier.BadRequestError{Message: "pincode not serviceable"}),
	}})
	seedRate(t, f)
	ledger.SeedBalance(f.ledger, f.accountID, 25_000)
	app := newTestApp(f)

	status, body := postJSON(t, app, "/bookings", bookBody(f.accountID))
	if status != fiber.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d (%v)", status, body)
	}
	if body["state"] != string(StateCompensated) {
		t.Fatalf("expected COMPENSATED outcome, got %v", body["state"])
	}
	if s, _ := body["error"].(string); s == "" {
		t.Fatal("expected the carrier error surfaced in the body")
	}
}

func TestHandlerBatchPartialFailure(t *testing.T) {
	f := newFixture(t, &fakeGateway{results: []carrier.BookingResult{
		success("DTDC1"),
		terminal(&carrier.BadRequestError{Message: "bad address"}),
	}})
	seedRate(t, f)
	ledger.SeedBalance(f.ledger, f.accountID, 50_000)
	app := newTestApp(f)

	body := `{"account_id":"` + f.accountID + `","shipments":[` +
		`{"consignee_name":"Asha Verma","consignee_phone":"9876543210","address":"14 MG Road","city":"Pune","state":"MH","pincode":"411001","weight_kg":2,"units":1},` +
		`{"consignee_name":"Ravi Nair","consignee_phone":"9123456780","address":"2 Brigade Rd","city":"Bengaluru","state":"KA","pincode":"560001","weight_kg":1,"units":1}]}`

	status, decoded := postJSON(t, app, "/bookings/batch", body)
	if status != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d (%v)", status, decoded)
	}
	if decoded["total_price"] != float64(18_000) {
		t.Fatalf("expected total_price 18000, got %v", decoded["total_price"])
	}
	if decoded["refunded_amount"] != float64(9_000) {
		t.Fatalf("expected refunded_amount 9000, got %v", decoded["refunded_amount"])
	}
	if decoded["balance_after"] != float64(41_000) {
		t.Fatalf("expected balance_after 41000, got %v", decoded["balance_after"])
	}
}
