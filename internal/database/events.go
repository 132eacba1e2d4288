package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/davidtorcivia/stifle-sub000/internal/models"
	"github.com/davidtorcivia/stifle-sub000/internal/store"
)

// Compile-time check: *DB must satisfy store.EventStore.
var _ store.EventStore = (*DB)(nil)

// InsertEvent appends one event to the ledger. ON CONFLICT DO NOTHING
// with RETURNING is the atomic insert-if-absent: when the idempotency
// key already exists the statement returns no row and the caller gets
// store.ErrDuplicateEvent. Safe under concurrent syncs from two devices
// without any application-level lock.
func (db *DB) InsertEvent(ctx context.Context, p store.InsertEventParams) (uuid.UUID, error) {
	query := `
		INSERT INTO events (id, user_id, client_id, event_type, timestamp, source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (user_id, client_id) DO NOTHING
		RETURNING id
	`

	id := uuid.New()
	var stored uuid.UUID
	err := db.pool.QueryRow(ctx, query, id, p.UserID, p.ClientID, p.EventType, p.Timestamp, p.Source).Scan(&stored)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, store.ErrDuplicateEvent
		}
		return uuid.Nil, fmt.Errorf("failed to insert event: %w", err)
	}

	return stored, nil
}

// EventsSince returns events received after the given server receipt
// instant, excluding client ids the caller just submitted, ordered by
// event timestamp ascending. This is the multi-device delta read: the
// cursor is created_at (receipt time), not the event timestamp.
func (db *DB) EventsSince(ctx context.Context, userID uuid.UUID, since time.Time, excludeClientIDs []uuid.UUID, limit int) ([]models.Event, error) {
	query := `
		SELECT id, user_id, client_id, event_type, timestamp, source, created_at
		FROM events
		WHERE user_id = $1 AND created_at > $2 AND NOT (client_id = ANY($3))
		ORDER BY timestamp ASC
		LIMIT $4
	`

	if excludeClientIDs == nil {
		excludeClientIDs = []uuid.UUID{}
	}

	rows, err := db.pool.Query(ctx, query, userID, since, excludeClientIDs, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events since %s: %w", since, err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// LastEvent returns the user's most recent event by timestamp.
func (db *DB) LastEvent(ctx context.Context, userID uuid.UUID) (*models.Event, error) {
	query := `
		SELECT id, user_id, client_id, event_type, timestamp, source, created_at
		FROM events
		WHERE user_id = $1
		ORDER BY timestamp DESC
		LIMIT 1
	`

	ev, err := scanEventRow(db.pool.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query last event: %w", err)
	}
	return ev, nil
}

// EventsInWindow returns events with timestamp in [start, end), oldest
// first, optionally filtered by type.
func (db *DB) EventsInWindow(ctx context.Context, userID uuid.UUID, start, end time.Time, eventType string) ([]models.Event, error) {
	query := `
		SELECT id, user_id, client_id, event_type, timestamp, source, created_at
		FROM events
		WHERE user_id = $1 AND timestamp >= $2 AND timestamp < $3
	`

	params := []interface{}{userID, start, end}
	if eventType != "" {
		query += fmt.Sprintf(" AND event_type = $%d", len(params)+1)
		params = append(params, eventType)
	}
	query += " ORDER BY timestamp ASC"

	rows, err := db.pool.Query(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events in window: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// LastEventBefore returns the latest event of the given type strictly
// before ts, or nil.
func (db *DB) LastEventBefore(ctx context.Context, userID uuid.UUID, ts time.Time, eventType string) (*models.Event, error) {
	query := `
		SELECT id, user_id, client_id, event_type, timestamp, source, created_at
		FROM events
		WHERE user_id = $1 AND event_type = $2 AND timestamp < $3
		ORDER BY timestamp DESC
		LIMIT 1
	`

	ev, err := scanEventRow(db.pool.QueryRow(ctx, query, userID, eventType, ts))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query preceding %s event: %w", eventType, err)
	}
	return ev, nil
}

// PurgeEventsBefore removes events older than the retention cutoff.
func (db *DB) PurgeEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := db.pool.Exec(ctx, `DELETE FROM events WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge events: %w", err)
	}
	return result.RowsAffected(), nil
}

// DeleteUserEvents erases a user's full ledger (account deletion).
func (db *DB) DeleteUserEvents(ctx context.Context, userID uuid.UUID) error {
	_, err := db.pool.Exec(ctx, `DELETE FROM events WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete events for user %s: %w", userID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEventRow(row rowScanner) (*models.Event, error) {
	var ev models.Event
	err := row.Scan(
		&ev.ID,
		&ev.UserID,
		&ev.ClientID,
		&ev.EventType,
		&ev.Timestamp,
		&ev.Source,
		&ev.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

func scanEvents(rows pgx.Rows) ([]models.Event, error) {
	events := []models.Event{}
	for rows.Next() {
		ev, err := scanEventRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		events = append(events, *ev)
	}
	return events, rows.Err()
}
