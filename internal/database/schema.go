package database

import (
	"context"
	"fmt"
)

// Schema bootstrap. Statements are idempotent so startup can run them
// unconditionally; real migrations live outside this service.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		timezone TEXT NOT NULL DEFAULT 'UTC',
		is_active BOOLEAN NOT NULL DEFAULT true,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		client_id UUID NOT NULL,
		event_type TEXT NOT NULL CHECK (event_type IN ('lock', 'unlock')),
		timestamp TIMESTAMPTZ NOT NULL,
		source TEXT NOT NULL DEFAULT 'automatic',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, client_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_user_timestamp ON events (user_id, timestamp)`,
	`CREATE INDEX IF NOT EXISTS idx_events_user_created ON events (user_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS weekly_scores (
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		week_start TIMESTAMPTZ NOT NULL,
		total_points NUMERIC(10,2) NOT NULL DEFAULT 0,
		streak_count INTEGER NOT NULL DEFAULT 0,
		longest_streak BIGINT NOT NULL DEFAULT 0,
		calculated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (user_id, week_start)
	)`,
}

// EnsureSchema creates the core tables and indexes if they are missing.
func (db *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema bootstrap failed: %w", err)
		}
	}
	db.logger.Info("schema bootstrap complete")
	return nil
}
