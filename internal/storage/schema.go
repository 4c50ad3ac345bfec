package storage

import (
	"context"
	"fmt"
)

const createSchemaSQL = `
CREATE TABLE IF NOT EXISTS monitors (
    id         TEXT PRIMARY KEY,
    user_id    TEXT NOT NULL,
    wallet     TEXT NOT NULL,
    threshold  NUMERIC(24,8) NOT NULL,
    direction  TEXT NOT NULL,
    instrument TEXT NOT NULL,
    network    TEXT NOT NULL,
    active     BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS activities (
    id            TEXT PRIMARY KEY,
    monitor_id    TEXT NOT NULL,
    price         NUMERIC(24,8) NOT NULL,
    fee_paid      NUMERIC(24,8) NOT NULL,
    settlement_ms BIGINT NOT NULL DEFAULT 0,
    proof_id      TEXT NOT NULL DEFAULT '',
    instrument    TEXT NOT NULL,
    triggered     BOOLEAN NOT NULL DEFAULT FALSE,
    status        TEXT NOT NULL,
    error         TEXT,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS activities_monitor_created_idx
    ON activities (monitor_id, created_at DESC);
`

// EnsureSchema creates the monitor and activity tables when absent.
// Safe to run on every start.
func (s *Store) EnsureSchema(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, createSchemaSQL); execErr != nil {
		return fmt.Errorf("ensure schema: %w", execErr)
	}
	return nil
}
