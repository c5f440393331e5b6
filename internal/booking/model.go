package booking

import (
	"fmt"

	"github.com/rajeshtiwari2503/spareflow-sub004/internal/pricing"
)

// State tracks a booking through the debit → carrier-call → settle/compensate
// saga. Once a debit has occurred the saga must reach StateSettled or
// StateCompensated; a debit left in any other state needs manual
// reconciliation via its ledger entry reference.
type State string

const (
	StatePriced        State = "PRICED"
	StateDebited       State = "DEBITED"
	StateCarrierCalled State = "CARRIER_CALLED"
	StateSettled       State = "SETTLED"
	StateCompensated   State = "COMPENSATED"
)

// ShipmentInput describes one shipment to book.
type ShipmentInput struct {
	ConsigneeName  string
	ConsigneePhone string
	Address        string
	City           string
	State          string
	Pincode        string
	WeightKg       float64
	DeclaredValue  int64
	Units          int
	ServiceType    string
	RecipientType  string
}

// Outcome is the terminal result of one booking saga.
type Outcome struct {
	Ref            string
	State          State
	Price          int64
	Breakdown      pricing.Breakdown
	Waybill        string
	TrackingURL    string
	Fallback       bool
	FallbackReason string
	BalanceAfter   int64
}

// ShipmentOutcome is one shipment's result inside a batch booking.
type ShipmentOutcome struct {
	Ref            string
	Price          int64
	Waybill        string
	TrackingURL    string
	Fallback       bool
	FallbackReason string
	Err            error
}

// BatchOutcome is the terminal result of a batched booking saga: one debit up
// front, one compensating refund for the failed subset.
type BatchOutcome struct {
	Ref            string
	TotalPrice     int64
	RefundedAmount int64
	BalanceAfter   int64
	Shipments      []ShipmentOutcome
}

// CompensationError reports a refund that itself failed: money was taken
// without service rendered, which must escalate to an operator rather than
// be absorbed.
type CompensationError struct {
	BookingRef string
	Amount     int64
	Err        error
}

func (e *CompensationError) Error() string {
	return fmt.Sprintf("compensation failed for booking %s: refund of %d paise did not post: %v",
		e.BookingRef, e.Amount, e.Err)
}

func (e *CompensationError) Unwrap() error { return e.Err }
