package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the sales record table. Safe to run on every start.
const Schema = `
CREATE TABLE IF NOT EXISTS sales_records (
	subject_id          TEXT NOT NULL,
	period_key          TEXT NOT NULL,
	target_quantity     INTEGER,
	target_revenue      DOUBLE PRECISION,
	actual_quantity     INTEGER NOT NULL,
	actual_revenue      DOUBLE PRECISION NOT NULL,
	daily_average       DOUBLE PRECISION NOT NULL,
	required_daily_rate DOUBLE PRECISION NOT NULL,
	completion_percent  DOUBLE PRECISION NOT NULL,
	narrative_text      TEXT NOT NULL,
	updated_at          TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (subject_id, period_key)
);`

// NewPool opens a connection pool for dbURL and verifies it with a ping.
func NewPool(ctx context.Context, dbURL string) (*pgxpool.Pool, error) {
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL not set")
	}
	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	return pool, nil
}

// EnsureSchema applies Schema.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
