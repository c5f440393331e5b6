package margin

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
)

// Record is the persisted margin outcome of one settled booking. Created
// once, never mutated. When the carrier response omitted billing data the
// cost is a heuristic estimate and EstimatedCost is set; estimated figures
// need a real cost-reconciliation feed before they are trusted for financial
// reporting.
type Record struct {
	ID            string
	BookingRef    string
	PriceCharged  int64
	CarrierCost   int64
	EstimatedCost bool
	Margin        int64
	MarginPercent float64
	WeightKg      float64
	ServiceType   string
	Route         string
	CreatedAt     time.Time
}

// Detail is the descriptive context captured alongside the figures.
type Detail struct {
	WeightKg    float64
	ServiceType string
	Route       string
}

// Store persists margin records.
type Store interface {
	Insert(ctx context.Context, record Record) error
	ByBookingRef(ctx context.Context, bookingRef string) (Record, error)
}

// Recorder computes and persists booking margins. It runs only after a
// settled booking and is strictly best-effort: a persistence failure is
// logged for out-of-band backfill, never propagated.
type Recorder struct {
	store  Store
	logger *slog.Logger
}

// NewRecorder builds a margin recorder over the given store.
func NewRecorder(store Store, logger *slog.Logger) *Recorder {
	return &Recorder{store: store, logger: logger}
}

// Record computes the margin for a settled booking. carrierCost <= 0 means
// the carrier omitted billing data; the cost is then estimated from weight
// and service type and flagged as such.
func (r *Recorder) Record(ctx context.Context, bookingRef string, priceCharged, carrierCost int64, detail Detail) (Record, error) {
	estimated := false
	if carrierCost <= 0 {
		carrierCost = EstimateCarrierCost(detail.WeightKg, detail.ServiceType)
		estimated = true
	}

	record := Record{
		ID:            uuid.NewString(),
		BookingRef:    bookingRef,
		PriceCharged:  priceCharged,
		CarrierCost:   carrierCost,
		EstimatedCost: estimated,
		Margin:        priceCharged - carrierCost,
		WeightKg:      detail.WeightKg,
		ServiceType:   detail.ServiceType,
		Route:         detail.Route,
		CreatedAt:     time.Now().UTC(),
	}
	if priceCharged != 0 {
		record.MarginPercent = float64(record.Margin) / float64(priceCharged) * 100
	}

	if err := r.store.Insert(ctx, record); err != nil {
		r.logger.Error("margin record persistence failed, needs backfill",
			"booking_ref", bookingRef, "error", err)
		return Record{}, err
	}
	return record, nil
}

// EstimateCarrierCost approximates the carrier's billed cost when the booking
// response carries no billing data: a flat pickup component plus a per-kg
// charge above the first kilogram, with an express premium.
// TODO: replace with the carrier invoice reconciliation feed once finance
// exposes it; estimated figures are not reporting-grade.
func EstimateCarrierCost(weightKg float64, serviceType string) int64 {
	const (
		basePaise      = 4_500
		perKgPaise     = 1_500
		expressExtra   = 2_000
		includedWeight = 1.0
	)

	cost := int64(basePaise)
	if weightKg > includedWeight {
		cost += int64(math.Ceil(weightKg-includedWeight) * perKgPaise)
	}
	if serviceType == "express" {
		cost += expressExtra
	}
	return cost
}
