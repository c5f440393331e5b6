package pricing

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRuleStore persists pricing rules in PostgreSQL, one table per rule
// kind. Lookups only see active rules.
type PostgresRuleStore struct {
	db *pgxpool.Pool
}

// NewPostgresRuleStore builds a rule store backed by PostgreSQL.
func NewPostgresRuleStore(db *pgxpool.Pool) *PostgresRuleStore {
	return &PostgresRuleStore{db: db}
}

func (s *PostgresRuleStore) AccountRate(ctx context.Context, accountID string) (*AccountRate, error) {
	const query = `SELECT id, account_id, rate_paise, active FROM pricing_account_rates
        WHERE account_id = $1 AND active ORDER BY updated_at DESC LIMIT 1`
	var rate AccountRate
	var id uuid.UUID
	err := s.db.QueryRow(ctx, query, accountID).Scan(&id, &rate.AccountID, &rate.RatePaise, &rate.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rate.ID = id.String()
	return &rate, nil
}

func (s *PostgresRuleStore) RoleRate(ctx context.Context, role string) (*RoleRate, error) {
	const query = `SELECT id, role, rate_paise, multiplier, active FROM pricing_role_rates
        WHERE role = $1 AND active ORDER BY updated_at DESC LIMIT 1`
	var rate RoleRate
	var id uuid.UUID
	err := s.db.QueryRow(ctx, query, role).Scan(&id, &rate.Role, &rate.RatePaise, &rate.Multiplier, &rate.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rate.ID = id.String()
	return &rate, nil
}

func (s *PostgresRuleStore) WeightTiers(ctx context.Context) ([]WeightTier, error) {
	const query = `SELECT id, min_kg, max_kg, per_kg_paise, active FROM pricing_weight_tiers WHERE active`
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tiers []WeightTier
	for rows.Next() {
		var tier WeightTier
		var id uuid.UUID
		if err := rows.Scan(&id, &tier.MinKg, &tier.MaxKg, &tier.PerKgPaise, &tier.Active); err != nil {
			return nil, err
		}
		tier.ID = id.String()
		tiers = append(tiers, tier)
	}
	return tiers, rows.Err()
}

func (s *PostgresRuleStore) ZoneRate(ctx context.Context, zoneKey string) (*ZoneRate, error) {
	const query = `SELECT id, zone_key, surcharge_paise, active FROM pricing_zone_rates
        WHERE zone_key = $1 AND active ORDER BY updated_at DESC LIMIT 1`
	var rate ZoneRate
	var id uuid.UUID
	err := s.db.QueryRow(ctx, query, zoneKey).Scan(&id, &rate.ZoneKey, &rate.SurchargePaise, &rate.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rate.ID = id.String()
	return &rate, nil
}

func (s *PostgresRuleStore) ServiceRate(ctx context.Context, serviceType string) (*ServiceRate, error) {
	const query = `SELECT id, service_type, surcharge_paise, active FROM pricing_service_rates
        WHERE service_type = $1 AND active ORDER BY updated_at DESC LIMIT 1`
	var rate ServiceRate
	var id uuid.UUID
	err := s.db.QueryRow(ctx, query, serviceType).Scan(&id, &rate.ServiceType, &rate.SurchargePaise, &rate.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rate.ID = id.String()
	return &rate, nil
}

func (s *PostgresRuleStore) RecipientRate(ctx context.Context, recipientType string) (*RecipientRate, error) {
	const query = `SELECT id, recipient_type, percent, active FROM pricing_recipient_rates
        WHERE recipient_type = $1 AND active ORDER BY updated_at DESC LIMIT 1`
	var rate RecipientRate
	var id uuid.UUID
	err := s.db.QueryRow(ctx, query, recipientType).Scan(&id, &rate.RecipientType, &rate.Percent, &rate.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rate.ID = id.String()
	return &rate, nil
}

func (s *PostgresRuleStore) SaveAccountRate(ctx context.Context, rate AccountRate) (AccountRate, error) {
	id, err := ruleID(rate.ID)
	if err != nil {
		return AccountRate{}, err
	}
	_, err = s.db.Exec(ctx, `INSERT INTO pricing_account_rates (id, account_id, rate_paise, active, updated_at)
        VALUES ($1, $2, $3, $4, now())
        ON CONFLICT (id) DO UPDATE SET account_id = $2, rate_paise = $3, active = $4, updated_at = now()`,
		id, rate.AccountID, rate.RatePaise, rate.Active)
	if err != nil {
		return AccountRate{}, err
	}
	rate.ID = id.String()
	return rate, nil
}

func (s *PostgresRuleStore) SaveRoleRate(ctx context.Context, rate RoleRate) (RoleRate, error) {
	id, err := ruleID(rate.ID)
	if err != nil {
		return RoleRate{}, err
	}
	_, err = s.db.Exec(ctx, `INSERT INTO pricing_role_rates (id, role, rate_paise, multiplier, active, updated_at)
        VALUES ($1, $2, $3, $4, $5, now())
        ON CONFLICT (id) DO UPDATE SET role = $2, rate_paise = $3, multiplier = $4, active = $5, updated_at = now()`,
		id, rate.Role, rate.RatePaise, rate.Multiplier, rate.Active)
	if err != nil {
		return RoleRate{}, err
	}
	rate.ID = id.String()
	return rate, nil
}

func (s *PostgresRuleStore) SaveWeightTier(ctx context.Context, tier WeightTier) (WeightTier, error) {
	id, err := ruleID(tier.ID)
	if err != nil {
		return WeightTier{}, err
	}
	_, err = s.db.Exec(ctx, `INSERT INTO pricing_weight_tiers (id, min_kg, max_kg, per_kg_paise, active, updated_at)
        VALUES ($1, $2, $3, $4, $5, now())
        ON CONFLICT (id) DO UPDATE SET min_kg = $2, max_kg = $3, per_kg_paise = $4, active = $5, updated_at = now()`,
		id, tier.MinKg, tier.MaxKg, tier.PerKgPaise, tier.Active)
	if err != nil {
		return WeightTier{}, err
	}
	tier.ID = id.String()
	return tier, nil
}

func (s *PostgresRuleStore) SaveZoneRate(ctx context.Context, rate ZoneRate) (ZoneRate, error) {
	id, err := ruleID(rate.ID)
	if err != nil {
		return ZoneRate{}, err
	}
	_, err = s.db.Exec(ctx, `INSERT INTO pricing_zone_rates (id, zone_key, surcharge_paise, active, updated_at)
        VALUES ($1, $2, $3, $4, now())
        ON CONFLICT (id) DO UPDATE SET zone_key = $2, surcharge_paise = $3, active = $4, updated_at = now()`,
		id, rate.ZoneKey, rate.SurchargePaise, rate.Active)
	if err != nil {
		return ZoneRate{}, err
	}
	rate.ID = id.String()
	return rate, nil
}

func (s *PostgresRuleStore) SaveServiceRate(ctx context.Context, rate ServiceRate) (ServiceRate, error) {
	id, err := ruleID(rate.ID)
	if err != nil {
		return ServiceRate{}, err
	}
	_, err = s.db.Exec(ctx, `INSERT INTO pricing_service_rates (id, service_type, surcharge_paise, active, updated_at)
        VALUES ($1, $2, $3, $4, now())
        ON CONFLICT (id) DO UPDATE SET service_type = $2, surcharge_paise = $3, active = $4, updated_at = now()`,
		id, rate.ServiceType, rate.SurchargePaise, rate.Active)
	if err != nil {
		return ServiceRate{}, err
	}
	rate.ID = id.String()
	return rate, nil
}

func (s *PostgresRuleStore) SaveRecipientRate(ctx context.Context, rate RecipientRate) (RecipientRate, error) {
	id, err := ruleID(rate.ID)
	if err != nil {
		return RecipientRate{}, err
	}
	_, err = s.db.Exec(ctx, `INSERT INTO pricing_recipient_rates (id, recipient_type, percent, active, updated_at)
        VALUES ($1, $2, $3, $4, now())
        ON CONFLICT (id) DO UPDATE SET recipient_type = $2, percent = $3, active = $4, updated_at = now()`,
		id, rate.RecipientType, rate.Percent, rate.Active)
	if err != nil {
		return RecipientRate{}, err
	}
	rate.ID = id.String()
	return rate, nil
}

func ruleID(id string) (uuid.UUID, error) {
	if id == "" {
		return uuid.New(), nil
	}
	return uuid.Parse(id)
}
