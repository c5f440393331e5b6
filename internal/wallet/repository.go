package wallet

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists account metadata.
type Repository interface {
	Create(ctx context.Context, account Account) error
	Get(ctx context.Context, id string) (Account, error)
}

// PostgresRepository stores accounts in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts an account record.
func (r *PostgresRepository) Create(ctx context.Context, account Account) error {
	accountID, err := uuid.Parse(account.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO accounts (id, name, role, status, created_at)
        VALUES ($1, $2, $3, $4, $5)`, accountID, account.Name, account.Role, account.Status, account.CreatedAt.UTC())
	return err
}

// Get fetches account metadata by identifier.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Account, error) {
	accountID, err := uuid.Parse(id)
	if err != nil {
		return Account{}, err
	}
	row := r.db.QueryRow(ctx, `SELECT id, name, role, status, created_at FROM accounts WHERE id = $1`, accountID)
	var a Account
	var idVal uuid.UUID
	var createdAt time.Time
	if err := row.Scan(&idVal, &a.Name, &a.Role, &a.Status, &createdAt); err != nil {
		return Account{}, err
	}
	a.ID = idVal.String()
	a.CreatedAt = createdAt.UTC()
	return a, nil
}
