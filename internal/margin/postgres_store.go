package margin

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists margin records in PostgreSQL for analytics.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore builds a margin store backed by PostgreSQL.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, record Record) error {
	id, err := uuid.Parse(record.ID)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `INSERT INTO margin_records
        (id, booking_ref, price_charged, carrier_cost, estimated_cost, margin, margin_percent, weight_kg, service_type, route, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		id, record.BookingRef, record.PriceCharged, record.CarrierCost, record.EstimatedCost,
		record.Margin, record.MarginPercent, record.WeightKg, record.ServiceType, record.Route, record.CreatedAt.UTC())
	return err
}

func (s *PostgresStore) ByBookingRef(ctx context.Context, bookingRef string) (Record, error) {
	const query = `SELECT id, booking_ref, price_charged, carrier_cost, estimated_cost, margin, margin_percent, weight_kg, service_type, route, created_at
        FROM margin_records WHERE booking_ref = $1`
	var record Record
	var id uuid.UUID
	var createdAt time.Time
	err := s.db.QueryRow(ctx, query, bookingRef).Scan(&id, &record.BookingRef, &record.PriceCharged,
		&record.CarrierCost, &record.EstimatedCost, &record.Margin, &record.MarginPercent,
		&record.WeightKg, &record.ServiceType, &record.Route, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	record.ID = id.String()
	record.CreatedAt = createdAt.UTC()
	return record, nil
}
