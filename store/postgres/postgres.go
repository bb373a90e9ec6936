// Package postgres provides a PostgreSQL-backed SharedStore for budgetguard.
//
// Spend counters live in a single table keyed by spend key, incremented
// with an atomic upsert that rotates the window when its expiry passes.
// Use it when a deployment already runs Postgres and adding Redis is not
// worth the operational cost.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ineyio/budgetguard"
)

// Store is a PostgreSQL-backed SharedStore.
type Store struct {
	pool        *pgxpool.Pool
	tablePrefix string
}

var _ budgetguard.SharedStore = (*Store)(nil)

// Option configures Store.
type Option func(*Store)

// WithTablePrefix sets the table name prefix (default "budgetguard_").
func WithTablePrefix(prefix string) Option {
	return func(s *Store) { s.tablePrefix = prefix }
}

// New creates a new PostgreSQL-backed SharedStore.
func New(pool *pgxpool.Pool, opts ...Option) *Store {
	s := &Store{
		pool:        pool,
		tablePrefix: "budgetguard_",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) spendTable() string { return s.tablePrefix + "spend" }

// EnsureSchema creates the required table if it doesn't exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	q := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key TEXT PRIMARY KEY,
			value DOUBLE PRECISION NOT NULL DEFAULT 0,
			expires_at TIMESTAMPTZ NOT NULL
		);
	`, s.spendTable())
	_, err := s.pool.Exec(ctx, q)
	if err != nil {
		return fmt.Errorf("budgetguard/postgres: ensure schema: %w", err)
	}
	return nil
}

// Increment atomically adds delta to key and returns the new value. An
// expired row starts a fresh window at delta with a new expiry; a live
// row keeps its original expiry so the window ends relative to its first
// spend.
func (s *Store) Increment(ctx context.Context, key string, delta float64, ttl time.Duration) (float64, error) {
	expiresAt := time.Now().UTC().Add(ttl)

	var value float64
	err := s.pool.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO %s (key, value, expires_at) VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET
			value = CASE WHEN %s.expires_at <= now() THEN EXCLUDED.value
			             ELSE %s.value + EXCLUDED.value END,
			expires_at = CASE WHEN %s.expires_at <= now() THEN EXCLUDED.expires_at
			                  ELSE %s.expires_at END
		RETURNING value
	`, s.spendTable(), s.spendTable(), s.spendTable(), s.spendTable(), s.spendTable()),
		key, delta, expiresAt,
	).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("budgetguard/postgres: increment %s: %w", key, err)
	}
	return value, nil
}

// BatchGet returns the values for all keys with an unexpired window.
func (s *Store) BatchGet(ctx context.Context, keys []string) (map[string]float64, error) {
	if len(keys) == 0 {
		return map[string]float64{}, nil
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT key, value FROM %s WHERE key = ANY($1) AND expires_at > now()
	`, s.spendTable()), keys)
	if err != nil {
		return nil, fmt.Errorf("budgetguard/postgres: batch get: %w", err)
	}
	defer rows.Close()

	out := make(map[string]float64, len(keys))
	for rows.Next() {
		var key string
		var value float64
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("budgetguard/postgres: batch get scan: %w", err)
		}
		out[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("budgetguard/postgres: batch get rows: %w", err)
	}
	return out, nil
}
