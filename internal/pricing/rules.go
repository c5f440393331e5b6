package pricing

import "context"

// Rate rules are layered: an account-specific rate beats a role rate, which
// beats the system default. Surcharge rules (weight, zone, service, recipient)
// are independent and additive. Every rule carries an Active flag; inactive
// rules are invisible to the resolver.

// AccountRate pins a per-box base rate to one account.
type AccountRate struct {
	ID        string `json:"id"`
	AccountID string `json:"account_id"`
	RatePaise int64  `json:"rate_paise"`
	Active    bool   `json:"active"`
}

// RoleRate supplies a base rate and multiplier for an account role
// (e.g. distributor, dealer).
type RoleRate struct {
	ID         string  `json:"id"`
	Role       string  `json:"role"`
	RatePaise  int64   `json:"rate_paise"`
	Multiplier float64 `json:"multiplier"`
	Active     bool    `json:"active"`
}

// WeightTier adds a per-kg surcharge for weights inside [MinKg, MaxKg).
type WeightTier struct {
	ID         string  `json:"id"`
	MinKg      float64 `json:"min_kg"`
	MaxKg      float64 `json:"max_kg"`
	PerKgPaise int64   `json:"per_kg_paise"`
	Active     bool    `json:"active"`
}

// ZoneRate adds a flat surcharge for an exact zone key (e.g. a pincode prefix).
type ZoneRate struct {
	ID             string `json:"id"`
	ZoneKey        string `json:"zone_key"`
	SurchargePaise int64  `json:"surcharge_paise"`
	Active         bool   `json:"active"`
}

// ServiceRate adds a flat surcharge for a service type (e.g. express).
type ServiceRate struct {
	ID             string `json:"id"`
	ServiceType    string `json:"service_type"`
	SurchargePaise int64  `json:"surcharge_paise"`
	Active         bool   `json:"active"`
}

// RecipientRate adds a percentage on top of the multiplied base for a
// recipient category (e.g. +10% for end customers).
type RecipientRate struct {
	ID            string  `json:"id"`
	RecipientType string  `json:"recipient_type"`
	Percent       float64 `json:"percent"`
	Active        bool    `json:"active"`
}

// RuleStore is the read/write surface for pricing rules. The resolver only
// reads; the Save methods serve the administrative configuration endpoints.
// Lookup methods return nil (no error) when no active rule matches.
type RuleStore interface {
	AccountRate(ctx context.Context, accountID string) (*AccountRate, error)
	RoleRate(ctx context.Context, role string) (*RoleRate, error)
	WeightTiers(ctx context.Context) ([]WeightTier, error)
	ZoneRate(ctx context.Context, zoneKey string) (*ZoneRate, error)
	ServiceRate(ctx context.Context, serviceType string) (*ServiceRate, error)
	RecipientRate(ctx context.Context, recipientType string) (*RecipientRate, error)

	SaveAccountRate(ctx context.Context, rate AccountRate) (AccountRate, error)
	SaveRoleRate(ctx context.Context, rate RoleRate) (RoleRate, error)
	SaveWeightTier(ctx context.Context, tier WeightTier) (WeightTier, error)
	SaveZoneRate(ctx context.Context, rate ZoneRate) (ZoneRate, error)
	SaveServiceRate(ctx context.Context, rate ServiceRate) (ServiceRate, error)
	SaveRecipientRate(ctx context.Context, rate RecipientRate) (RecipientRate, error)
}
