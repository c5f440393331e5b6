package pricing

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type memoryRuleStore struct {
	mu             sync.RWMutex
	accountRates   map[string]AccountRate
	roleRates      map[string]RoleRate
	weightTiers    map[string]WeightTier
	zoneRates      map[string]ZoneRate
	serviceRates   map[string]ServiceRate
	recipientRates map[string]RecipientRate
}

// NewMemoryRuleStore constructs an in-memory rule store for tests and
// database-less development runs.
func NewMemoryRuleStore() RuleStore {
	return &memoryRuleStore{
		accountRates:   make(map[string]AccountRate),
		roleRates:      make(map[string]RoleRate),
		weightTiers:    make(map[string]WeightTier),
		zoneRates:      make(map[string]ZoneRate),
		serviceRates:   make(map[string]ServiceRate),
		recipientRates: make(map[string]RecipientRate),
	}
}

func (s *memoryRuleStore) AccountRate(_ context.Context, accountID string) (*AccountRate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rate := range s.accountRates {
		if rate.AccountID == accountID && rate.Active {
			r := rate
			return &r, nil
		}
	}
	return nil, nil
}

func (s *memoryRuleStore) RoleRate(_ context.Context, role string) (*RoleRate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rate := range s.roleRates {
		if rate.Role == role && rate.Active {
			r := rate
			return &r, nil
		}
	}
	return nil, nil
}

func (s *memoryRuleStore) WeightTiers(_ context.Context) ([]WeightTier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tiers := make([]WeightTier, 0, len(s.weightTiers))
	for _, tier := range s.weightTiers {
		if tier.Active {
			tiers = append(tiers, tier)
		}
	}
	return tiers, nil
}

func (s *memoryRuleStore) ZoneRate(_ context.Context, zoneKey string) (*ZoneRate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rate := range s.zoneRates {
		if rate.ZoneKey == zoneKey && rate.Active {
			r := rate
			return &r, nil
		}
	}
	return nil, nil
}

func (s *memoryRuleStore) ServiceRate(_ context.Context, serviceType string) (*ServiceRate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rate := range s.serviceRates {
		if rate.ServiceType == serviceType && rate.Active {
			r := rate
			return &r, nil
		}
	}
	return nil, nil
}

func (s *memoryRuleStore) RecipientRate(_ context.Context, recipientType string) (*RecipientRate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rate := range s.recipientRates {
		if rate.RecipientType == recipientType && rate.Active {
			r := rate
			return &r, nil
		}
	}
	return nil, nil
}

func (s *memoryRuleStore) SaveAccountRate(_ context.Context, rate AccountRate) (AccountRate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rate.ID == "" {
		rate.ID = uuid.NewString()
	}
	s.accountRates[rate.ID] = rate
	return rate, nil
}

func (s *memoryRuleStore) SaveRoleRate(_ context.Context, rate RoleRate) (RoleRate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rate.ID == "" {
		rate.ID = uuid.NewString()
	}
	s.roleRates[rate.ID] = rate
	return rate, nil
}

func (s *memoryRuleStore) SaveWeightTier(_ context.Context, tier WeightTier) (WeightTier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tier.ID == "" {
		tier.ID = uuid.NewString()
	}
	s.weightTiers[tier.ID] = tier
	return tier, nil
}

func (s *memoryRuleStore) SaveZoneRate(_ context.Context, rate ZoneRate) (ZoneRate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rate.ID == "" {
		rate.ID = uuid.NewString()
	}
	s.zoneRates[rate.ID] = rate
	return rate, nil
}

func (s *memoryRuleStore) SaveServiceRate(_ context.Context, rate ServiceRate) (ServiceRate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rate.ID == "" {
		rate.ID = uuid.NewString()
	}
	s.serviceRates[rate.ID] = rate
	return rate, nil
}

func (s *memoryRuleStore) SaveRecipientRate(_ context.Context, rate RecipientRate) (RecipientRate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rate.ID == "" {
		rate.ID = uuid.NewString()
	}
	s.recipientRates[rate.ID] = rate
	return rate, nil
}
