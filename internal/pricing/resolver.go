package pricing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
)

// ErrInvalidInput indicates the resolve request itself is malformed. Missing
// optional rules never produce this; they degrade to the system default.
var ErrInvalidInput = errors.New("invalid pricing input")

// ResolveInput carries everything the resolver needs to price one shipment line.
type ResolveInput struct {
	AccountID     string
	Role          string
	WeightKg      float64
	ZoneKey       string
	Units         int
	ServiceType   string
	RecipientType string
}

// Breakdown is the fully itemized output of a price resolution. AppliedRules
// records every rule that contributed, in evaluation order, with enough
// arithmetic detail to audit the total.
type Breakdown struct {
	BaseRate            int64    `json:"base_rate_paise"`
	RoleMultiplier      float64  `json:"role_multiplier"`
	WeightSurcharge     int64    `json:"weight_surcharge_paise"`
	ZoneSurcharge       int64    `json:"zone_surcharge_paise"`
	ServiceSurcharge    int64    `json:"service_surcharge_paise"`
	RecipientAdjustment int64    `json:"recipient_adjustment_paise"`
	UnitPrice           int64    `json:"unit_price_paise"`
	Units               int      `json:"units"`
	Total               int64    `json:"total_paise"`
	AppliedRules        []string `json:"applied_rules"`
}

// Resolver computes itemized per-box prices from layered pricing rules.
type Resolver struct {
	store       RuleStore
	defaultRate int64
	logger      *slog.Logger
}

// NewResolver builds a resolver over the given rule store. defaultRate is the
// system fallback per-box rate in paise.
func NewResolver(store RuleStore, defaultRate int64, logger *slog.Logger) *Resolver {
	return &Resolver{store: store, defaultRate: defaultRate, logger: logger}
}

// Resolve prices one shipment line. Rule lookups that fail degrade to the
// system default and are noted as "default fallback" in the applied rules;
// only invalid input produces an error.
func (r *Resolver) Resolve(ctx context.Context, input ResolveInput) (Breakdown, error) {
	if input.WeightKg < 0 {
		return Breakdown{}, fmt.Errorf("%w: weight must be non-negative", ErrInvalidInput)
	}
	if input.Units <= 0 {
		return Breakdown{}, fmt.Errorf("%w: unit count must be positive", ErrInvalidInput)
	}

	b := Breakdown{RoleMultiplier: 1, Units: input.Units}

	r.resolveBase(ctx, input, &b)
	r.resolveWeight(ctx, input, &b)
	r.resolveZone(ctx, input, &b)
	r.resolveService(ctx, input, &b)
	multiplied := roundPaise(float64(b.BaseRate) * b.RoleMultiplier)
	r.resolveRecipient(ctx, input, multiplied, &b)

	b.UnitPrice = multiplied + b.WeightSurcharge + b.ZoneSurcharge + b.ServiceSurcharge + b.RecipientAdjustment
	b.Total = b.UnitPrice * int64(input.Units)
	return b, nil
}

func (r *Resolver) resolveBase(ctx context.Context, input ResolveInput, b *Breakdown) {
	rate, err := r.store.AccountRate(ctx, input.AccountID)
	if err != nil {
		r.fallback(b, "account rate", err)
		return
	}
	if rate != nil {
		b.BaseRate = rate.RatePaise
		b.AppliedRules = append(b.AppliedRules, fmt.Sprintf("account rate: %dp per box (account %s)", rate.RatePaise, input.AccountID))
		return
	}

	roleRate, err := r.store.RoleRate(ctx, input.Role)
	if err != nil {
		r.fallback(b, "role rate", err)
		return
	}
	if roleRate != nil {
		b.BaseRate = roleRate.RatePaise
		if roleRate.Multiplier > 0 {
			b.RoleMultiplier = roleRate.Multiplier
		}
		b.AppliedRules = append(b.AppliedRules, fmt.Sprintf("role rate: %dp × %.2f (role %s)", roleRate.RatePaise, b.RoleMultiplier, input.Role))
		return
	}

	b.BaseRate = r.defaultRate
	b.AppliedRules = append(b.AppliedRules, fmt.Sprintf("default rate: %dp per box", r.defaultRate))
}

func (r *Resolver) resolveWeight(ctx context.Context, input ResolveInput, b *Breakdown) {
	tiers, err := r.store.WeightTiers(ctx)
	if err != nil {
		r.fallback(b, "weight tiers", err)
		return
	}

	// First match on [Min, Max); overlapping tiers tie-break on highest Min.
	var match *WeightTier
	for i := range tiers {
		tier := &tiers[i]
		if !tier.Active || input.WeightKg < tier.MinKg || input.WeightKg >= tier.MaxKg {
			continue
		}
		if match == nil || tier.MinKg > match.MinKg {
			match = tier
		}
	}
	if match == nil {
		return
	}

	b.WeightSurcharge = roundPaise((input.WeightKg - match.MinKg) * float64(match.PerKgPaise))
	b.AppliedRules = append(b.AppliedRules,
		fmt.Sprintf("weight tier %.1f-%.1fkg: (%.2f-%.1f)kg × %dp = %dp",
			match.MinKg, match.MaxKg, input.WeightKg, match.MinKg, match.PerKgPaise, b.WeightSurcharge))
}

func (r *Resolver) resolveZone(ctx context.Context, input ResolveInput, b *Breakdown) {
	if input.ZoneKey == "" {
		return
	}
	zone, err := r.store.ZoneRate(ctx, input.ZoneKey)
	if err != nil {
		r.fallback(b, "zone rate", err)
		return
	}
	if zone == nil {
		return
	}
	b.ZoneSurcharge = zone.SurchargePaise
	b.AppliedRules = append(b.AppliedRules, fmt.Sprintf("zone surcharge %s: %dp", zone.ZoneKey, zone.SurchargePaise))
}

func (r *Resolver) resolveService(ctx context.Context, input ResolveInput, b *Breakdown) {
	if input.ServiceType == "" {
		return
	}
	svc, err := r.store.ServiceRate(ctx, input.ServiceType)
	if err != nil {
		r.fallback(b, "service rate", err)
		return
	}
	if svc == nil {
		return
	}
	b.ServiceSurcharge = svc.SurchargePaise
	b.AppliedRules = append(b.AppliedRules, fmt.Sprintf("service surcharge %s: %dp", svc.ServiceType, svc.SurchargePaise))
}

func (r *Resolver) resolveRecipient(ctx context.Context, input ResolveInput, multipliedBase int64, b *Breakdown) {
	if input.RecipientType == "" {
		return
	}
	rec, err := r.store.RecipientRate(ctx, input.RecipientType)
	if err != nil {
		r.fallback(b, "recipient rate", err)
		return
	}
	if rec == nil {
		return
	}
	b.RecipientAdjustment = roundPaise(float64(multipliedBase) * rec.Percent / 100)
	b.AppliedRules = append(b.AppliedRules,
		fmt.Sprintf("recipient adjustment %s: +%.0f%% of %dp = %dp", rec.RecipientType, rec.Percent, multipliedBase, b.RecipientAdjustment))
}

// fallback notes a failed rule lookup without aborting resolution. The base
// rate degrades to the system default when the failure happened before a base
// rate was chosen.
func (r *Resolver) fallback(b *Breakdown, stage string, err error) {
	if r.logger != nil {
		r.logger.Warn("pricing rule lookup failed", "stage", stage, "error", err)
	}
	if b.BaseRate == 0 {
		b.BaseRate = r.defaultRate
	}
	b.AppliedRules = append(b.AppliedRules, "default fallback")
}

func roundPaise(v float64) int64 {
	return int64(math.Round(v))
}
