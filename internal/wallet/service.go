package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rajeshtiwari2503/spareflow-sub004/internal/ledger"
)

const statusActive = "active"

// Service exposes merchant account operations backed by the ledger.
type Service struct {
	repo   Repository
	ledger ledger.Ledger
}

// NewService builds an account service instance.
func NewService(repo Repository, ledger ledger.Ledger) *Service {
	return &Service{repo: repo, ledger: ledger}
}

// CreateInput captures data required to register a merchant account.
type CreateInput struct {
	Name string
	Role string
}

// Create provisions an account and its zero-balance ledger record.
func (s *Service) Create(ctx context.Context, input CreateInput) (Account, error) {
	if input.Name == "" {
		return Account{}, fmt.Errorf("account name is required")
	}
	accountID := uuid.New().String()

	if err := s.ledger.EnsureAccount(ctx, accountID); err != nil {
		return Account{}, err
	}

	role := input.Role
	if role == "" {
		role = "brand"
	}

	account := Account{
		ID:        accountID,
		Name:      input.Name,
		Role:      role,
		Status:    statusActive,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, account); err != nil {
		return Account{}, err
	}

	return account, nil
}

// Get retrieves account metadata.
func (s *Service) Get(ctx context.Context, id string) (Account, error) {
	return s.repo.Get(ctx, id)
}

// Balance returns the ledger balance for the account.
func (s *Service) Balance(ctx context.Context, id string) (Balance, error) {
	account, err := s.repo.Get(ctx, id)
	if err != nil {
		return Balance{}, err
	}
	bal, err := s.ledger.Balance(ctx, account.ID)
	if err != nil {
		return Balance{}, err
	}
	return Balance{
		AccountID:     account.ID,
		Amount:        bal.Amount,
		TotalCredited: bal.TotalCredited,
		TotalDebited:  bal.TotalDebited,
		LastCreditAt:  bal.LastCreditAt,
		AsOf:          time.Now().UTC(),
	}, nil
}

// Recharge credits funds into the account ledger (manual top-up from the
// dashboard collaborator).
func (s *Service) Recharge(ctx context.Context, id string, amount int64, reference string) (ledger.OperationResult, error) {
	account, err := s.repo.Get(ctx, id)
	if err != nil {
		return ledger.OperationResult{}, err
	}
	return s.ledger.Credit(ctx, account.ID, amount, "manual recharge", reference)
}

// History returns the account's transaction log, newest first.
func (s *Service) History(ctx context.Context, id string, limit, offset int) ([]ledger.Entry, error) {
	account, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.ledger.Entries(ctx, account.ID, limit, offset)
}
