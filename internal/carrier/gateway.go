package carrier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rajeshtiwari2503/spareflow-sub004/internal/metrics"
)

const fallbackPrefix = "SF-FB-"

// RetryPolicy bounds the gateway's attempt loop. It is injected rather than
// hard-coded so tests can run it against a fake clock.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
	Timeout     time.Duration
}

// DefaultRetryPolicy mirrors production settings: one initial attempt plus
// two retries, 2s apart, 40s per attempt.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Delay: 2 * time.Second, Timeout: 40 * time.Second}
}

// BookingResult is the outcome of one IssueWaybill call. Exactly one of the
// following holds: Err is set (terminal failure, no waybill), or Waybill is
// set with Fallback=false (carrier booked it), or Waybill is set with
// Fallback=true (locally synthesized, FallbackReason explains why).
type BookingResult struct {
	Waybill        string
	TrackingURL    string
	CourierCharge  int64
	Err            error
	Fallback       bool
	FallbackReason string
	Attempts       int
	Elapsed        time.Duration
}

// Success reports whether the booking ended with a usable waybill. Fallback
// waybills count as success: the pipeline settles on them.
func (r BookingResult) Success() bool { return r.Err == nil }

// Gateway wraps the carrier client with validation, bounded retries and
// degrade-to-available fallback synthesis.
type Gateway struct {
	client Client
	policy RetryPolicy
	logger *slog.Logger

	// Overridable for tests.
	sleep func(time.Duration)
	now   func() time.Time
}

// NewGateway builds a carrier gateway with the given retry policy.
func NewGateway(client Client, policy RetryPolicy, logger *slog.Logger) *Gateway {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &Gateway{
		client: client,
		policy: policy,
		logger: logger,
		sleep:  time.Sleep,
		now:    time.Now,
	}
}

// IssueWaybill books one shipment with the carrier. It never leaves the call
// without a waybill unless the failure is terminal (invalid request or a
// carrier 400): transient exhaustion and auth failures synthesize a fallback
// waybill so downstream settlement, label and tracking can proceed.
func (g *Gateway) IssueWaybill(ctx context.Context, req BookingRequest) BookingResult {
	started := g.now()

	if err := req.Validate(); err != nil {
		return BookingResult{Err: err, Elapsed: g.now().Sub(started)}
	}

	var lastErr error
	for attempt := 1; attempt <= g.policy.MaxAttempts; attempt++ {
		metrics.CarrierAttempts.Inc()

		attemptCtx, cancel := context.WithTimeout(ctx, g.policy.Timeout)
		resp, err := g.client.CreateBooking(attemptCtx, req)
		cancel()

		if err == nil {
			g.logger.Info("carrier booking issued",
				"reference", req.Reference, "waybill", resp.Waybill, "attempt", attempt)
			return BookingResult{
				Waybill:       resp.Waybill,
				TrackingURL:   resp.TrackingURL,
				CourierCharge: resp.CourierCharge,
				Attempts:      attempt,
				Elapsed:       g.now().Sub(started),
			}
		}

		if errors.Is(err, ErrCarrierAuth) {
			// Configuration problem, not a transient fault. Alert and degrade.
			g.logger.Error("carrier credentials rejected, switching to fallback waybill",
				"reference", req.Reference, "error", err)
			return g.fallback(req, attempt, started, "carrier authentication failed")
		}

		var badReq *BadRequestError
		if errors.As(err, &badReq) {
			g.logger.Warn("carrier rejected booking payload",
				"reference", req.Reference, "error", err)
			return BookingResult{Err: badReq, Attempts: attempt, Elapsed: g.now().Sub(started)}
		}

		lastErr = err
		g.logger.Warn("carrier booking attempt failed",
			"reference", req.Reference, "attempt", attempt, "max_attempts", g.policy.MaxAttempts, "error", err)
		if attempt < g.policy.MaxAttempts {
			g.sleep(g.policy.Delay)
		}
	}

	reason := fmt.Sprintf("carrier unreachable after %d attempts: %v", g.policy.MaxAttempts, lastErr)
	return g.fallback(req, g.policy.MaxAttempts, started, reason)
}

func (g *Gateway) fallback(req BookingRequest, attempts int, started time.Time, reason string) BookingResult {
	metrics.FallbackWaybills.Inc()
	waybill := g.syntheticWaybill()
	g.logger.Warn("issuing fallback waybill",
		"reference", req.Reference, "waybill", waybill, "reason", reason)
	return BookingResult{
		Waybill:        waybill,
		Fallback:       true,
		FallbackReason: reason,
		Attempts:       attempts,
		Elapsed:        g.now().Sub(started),
	}
}

// syntheticWaybill produces a locally generated identifier in a format no
// carrier uses, with an embedded timestamp for reconciliation.
func (g *Gateway) syntheticWaybill() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fallbackPrefix + g.now().UTC().Format("20060102150405") + "-" + suffix
}

// IsFallbackWaybill reports whether a waybill was locally synthesized rather
// than issued by the carrier.
func IsFallbackWaybill(waybill string) bool {
	return strings.HasPrefix(waybill, fallbackPrefix)
}
