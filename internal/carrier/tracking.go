package carrier

import (
	"context"
	"strings"
	"time"
)

// Status is the internal shipment status vocabulary. External carrier codes
// are mapped onto it; anything unrecognized becomes StatusUnknown.
type Status string

const (
	StatusBooked         Status = "BOOKED"
	StatusPickedUp       Status = "PICKED_UP"
	StatusInTransit      Status = "IN_TRANSIT"
	StatusOutForDelivery Status = "OUT_FOR_DELIVERY"
	StatusDelivered      Status = "DELIVERED"
	StatusReturned       Status = "RETURNED"
	StatusFailed         Status = "FAILED"
	StatusUnknown        Status = "UNKNOWN"
)

// TrackingEvent is one normalized scan in a shipment's history.
type TrackingEvent struct {
	Code        string    `json:"code"`
	Status      Status    `json:"status"`
	Location    string    `json:"location,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description,omitempty"`
}

// MapStatus normalizes a carrier status code onto the internal vocabulary.
func MapStatus(code string) Status {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "BKD", "BOOKED", "MANIFESTED", "SOFT_DATA":
		return StatusBooked
	case "PKP", "PICKED_UP", "PICKUP_DONE", "BAGGED":
		return StatusPickedUp
	case "IT", "IN_TRANSIT", "SHIPPED", "REACHED_HUB", "DEPARTED":
		return StatusInTransit
	case "OFD", "OUT_FOR_DELIVERY", "DISPATCHED":
		return StatusOutForDelivery
	case "DLV", "DELIVERED", "POD_CAPTURED":
		return StatusDelivered
	case "RTO", "RTO_DELIVERED", "RETURNED":
		return StatusReturned
	case "UD", "UNDELIVERED", "FAILED", "LOST", "DAMAGED", "CANCELLED":
		return StatusFailed
	default:
		return StatusUnknown
	}
}

// Track fetches and normalizes the scan history for a waybill. Fallback
// waybills never reached the carrier, so they report a single synthetic
// BOOKED event instead of a doomed network call.
func (g *Gateway) Track(ctx context.Context, waybill string) ([]TrackingEvent, error) {
	if IsFallbackWaybill(waybill) {
		return []TrackingEvent{{
			Code:        "BKD",
			Status:      StatusBooked,
			Timestamp:   g.now().UTC(),
			Description: "booked in fallback mode, awaiting carrier reconciliation",
		}}, nil
	}

	raw, err := g.client.Track(ctx, waybill)
	if err != nil {
		return nil, err
	}

	events := make([]TrackingEvent, 0, len(raw))
	for _, e := range raw {
		events = append(events, TrackingEvent{
			Code:        e.Code,
			Status:      MapStatus(e.Code),
			Location:    e.Location,
			Timestamp:   e.Timestamp,
			Description: e.Description,
		})
	}
	return events, nil
}

// Label fetches the printable label document for a waybill. Label failures
// are the caller's to absorb: a booked waybill is never unwound because its
// label could not be rendered.
func (g *Gateway) Label(ctx context.Context, waybill string) ([]byte, error) {
	return g.client.Label(ctx, waybill)
}
