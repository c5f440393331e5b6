package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters for the booking pipeline, registered on the default Prometheus
// registry and exported on /metrics.
var (
	BookingsSettled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spareflow_bookings_settled_total",
		Help: "Bookings that reached the SETTLED state, including fallback waybills.",
	})

	BookingsCompensated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spareflow_bookings_compensated_total",
		Help: "Bookings refunded after a terminal carrier failure.",
	})

	CarrierAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spareflow_carrier_attempts_total",
		Help: "Individual carrier booking API attempts, including retries.",
	})

	FallbackWaybills = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spareflow_carrier_fallback_waybills_total",
		Help: "Locally synthesized waybills issued when the carrier was unavailable.",
	})
)
