// Package postgres provides a PostgreSQL implementation of the billing store
// interfaces backed by a pgx connection pool. The catalog lives in a
// single-row table; subscriptions are keyed by user ID.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mihaimyh/gobilling/pkg/billing"
)

// Config holds PostgreSQL storage configuration.
type Config struct {
	// ConnectionString is the PostgreSQL connection string
	ConnectionString string

	// Pool configuration
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration

	// SkipSchemaInit disables table creation on startup for deployments
	// that manage migrations externally
	SkipSchemaInit bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxConns:        10,
		MinConns:        2,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
	}
}

// Store implements billing.CatalogStore and billing.SubscriptionStore using
// PostgreSQL.
type Store struct {
	pool   *pgxpool.Pool
	config Config
}

// New creates a new PostgreSQL storage adapter.
func New(ctx context.Context, config Config) (*Store, error) {
	if config.ConnectionString == "" {
		return nil, fmt.Errorf("connection string is required")
	}

	poolConfig, err := pgxpool.ParseConfig(config.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}
	if config.MaxConns > 0 {
		poolConfig.MaxConns = config.MaxConns
	}
	if config.MinConns > 0 {
		poolConfig.MinConns = config.MinConns
	}
	if config.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = config.MaxConnLifetime
	}
	if config.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = config.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	s := &Store{pool: pool, config: config}
	if !config.SkipSchemaInit {
		if err := s.initSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return s, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS billing_catalog (
	id         TEXT PRIMARY KEY,
	catalog    JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS billing_subscriptions (
	user_id            TEXT PRIMARY KEY,
	name               TEXT NOT NULL,
	plan_id            TEXT NOT NULL,
	payment_session_id TEXT NOT NULL,
	status             TEXT NOT NULL,
	start_date         TIMESTAMPTZ NOT NULL,
	end_date           TIMESTAMPTZ NOT NULL,
	trial_ends_at      TIMESTAMPTZ,
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);`

	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

// catalogRowID is the key of the single catalog row. One adapter instance
// manages one catalog.
const catalogRowID = "default"

// Load implements billing.CatalogStore.
func (s *Store) Load(ctx context.Context) (*billing.Catalog, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT catalog FROM billing_catalog WHERE id = $1`, catalogRowID,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading catalog: %w", err)
	}

	var catalog billing.Catalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}
	return &catalog, nil
}

// Save implements billing.CatalogStore.
func (s *Store) Save(ctx context.Context, catalog *billing.Catalog) error {
	if catalog == nil {
		return fmt.Errorf("invalid catalog")
	}

	data, err := json.Marshal(catalog)
	if err != nil {
		return fmt.Errorf("encoding catalog: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
INSERT INTO billing_catalog (id, catalog, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (id) DO UPDATE SET catalog = EXCLUDED.catalog, updated_at = now()`,
		catalogRowID, data)
	if err != nil {
		return fmt.Errorf("writing catalog: %w", err)
	}
	return nil
}

// Get implements billing.SubscriptionStore.
func (s *Store) Get(ctx context.Context, userID string) (*billing.Subscription, error) {
	var sub billing.Subscription
	err := s.pool.QueryRow(ctx, `
SELECT name, plan_id, payment_session_id, status, start_date, end_date, trial_ends_at
FROM billing_subscriptions WHERE user_id = $1`, userID,
	).Scan(&sub.Name, &sub.PlanID, &sub.PaymentSessionID, &sub.Status,
		&sub.StartDate, &sub.EndDate, &sub.TrialEndsAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading subscription: %w", err)
	}
	return &sub, nil
}

// Create implements billing.SubscriptionStore.
func (s *Store) Create(ctx context.Context, userID string, sub *billing.Subscription) error {
	if userID == "" || sub == nil {
		return fmt.Errorf("invalid subscription")
	}

	_, err := s.pool.Exec(ctx, `
INSERT INTO billing_subscriptions
	(user_id, name, plan_id, payment_session_id, status, start_date, end_date, trial_ends_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		userID, sub.Name, sub.PlanID, sub.PaymentSessionID, string(sub.Status),
		sub.StartDate, sub.EndDate, sub.TrialEndsAt)
	if err != nil {
		return fmt.Errorf("creating subscription: %w", err)
	}
	return nil
}

// Update implements billing.SubscriptionStore.
func (s *Store) Update(ctx context.Context, userID string, sub *billing.Subscription) error {
	if userID == "" || sub == nil {
		return fmt.Errorf("invalid subscription")
	}

	tag, err := s.pool.Exec(ctx, `
UPDATE billing_subscriptions SET
	name = $2, plan_id = $3, payment_session_id = $4, status = $5,
	start_date = $6, end_date = $7, trial_ends_at = $8, updated_at = now()
WHERE user_id = $1`,
		userID, sub.Name, sub.PlanID, sub.PaymentSessionID, string(sub.Status),
		sub.StartDate, sub.EndDate, sub.TrialEndsAt)
	if err != nil {
		return fmt.Errorf("updating subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return billing.ErrSubscriptionNotFound
	}
	return nil
}
