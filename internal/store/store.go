package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/davidtorcivia/stifle-sub000/internal/models"
)

var (
	// ErrDuplicateEvent means (user_id, client_id) already exists. Retries
	// and double-submissions from a second device hit this path; callers
	// treat it as success-no-op.
	ErrDuplicateEvent = errors.New("event already recorded")

	// ErrUserNotFound is returned by directory lookups for unknown or
	// inactive users.
	ErrUserNotFound = errors.New("user not found")

	// ErrScoreNotFound is returned when no weekly score row exists yet.
	ErrScoreNotFound = errors.New("weekly score not found")
)

// InsertEventParams carries one normalized event into the ledger.
type InsertEventParams struct {
	UserID    uuid.UUID
	ClientID  uuid.UUID
	EventType string
	Timestamp time.Time
	Source    string
}

// EventStore is the append-only event ledger. Events are immutable:
// implementations expose insert and read only, plus the retention purge
// and full-account erasure required by data lifecycle rules.
type EventStore interface {
	// InsertEvent persists an event if (user_id, client_id) is absent and
	// returns the server-assigned id. It must be atomic insert-if-absent,
	// never read-then-write; a duplicate returns ErrDuplicateEvent.
	InsertEvent(ctx context.Context, p InsertEventParams) (uuid.UUID, error)

	// EventsSince returns events received (by server created_at) strictly
	// after since, excluding the given client ids, ordered by event
	// timestamp ascending and capped at limit.
	EventsSince(ctx context.Context, userID uuid.UUID, since time.Time, excludeClientIDs []uuid.UUID, limit int) ([]models.Event, error)

	// LastEvent returns the user's most recent event by timestamp, or
	// (nil, nil) when the ledger is empty for that user.
	LastEvent(ctx context.Context, userID uuid.UUID) (*models.Event, error)

	// EventsInWindow returns events with timestamp in [start, end),
	// optionally filtered by event type (empty string means all types),
	// ordered by timestamp ascending.
	EventsInWindow(ctx context.Context, userID uuid.UUID, start, end time.Time, eventType string) ([]models.Event, error)

	// LastEventBefore returns the user's most recent event of the given
	// type with timestamp strictly before ts, or (nil, nil).
	LastEventBefore(ctx context.Context, userID uuid.UUID, ts time.Time, eventType string) (*models.Event, error)

	// PurgeEventsBefore deletes events with timestamp older than cutoff
	// across all users, returning the number of rows removed.
	PurgeEventsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// DeleteUserEvents erases a user's entire ledger (account deletion).
	DeleteUserEvents(ctx context.Context, userID uuid.UUID) error
}

// ScoreStore persists the materialized weekly aggregates.
type ScoreStore interface {
	// UpsertWeeklyScore overwrites the (user_id, week_start) row with the
	// freshly computed values.
	UpsertWeeklyScore(ctx context.Context, score models.WeeklyScore) error

	// GetWeeklyScore returns the row for (user_id, week_start) or
	// ErrScoreNotFound.
	GetWeeklyScore(ctx context.Context, userID uuid.UUID, weekStart time.Time) (*models.WeeklyScore, error)

	// WeeklyLeaderboard returns all scores for a week ordered by
	// total_points descending, joined with user display fields.
	WeeklyLeaderboard(ctx context.Context, weekStart time.Time) ([]models.LeaderboardEntry, error)
}

// UserDirectory is the outbound collaborator the core consults for week
// boundary resolution and login.
type UserDirectory interface {
	// GetTimezone returns the user's stored IANA timezone name.
	GetTimezone(ctx context.Context, userID uuid.UUID) (string, error)

	// GetByUsername returns an active user for credential checks.
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}
