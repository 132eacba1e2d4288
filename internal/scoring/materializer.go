package scoring

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/davidtorcivia/stifle-sub000/internal/models"
	"github.com/davidtorcivia/stifle-sub000/internal/store"
)

// Materializer recomputes and upserts the weekly score aggregate. The
// output is a pure function of the event ledger, so concurrent
// recomputes for the same user are safe: the last writer overwrites with
// an equally valid full recomputation.
type Materializer struct {
	events store.EventStore
	scores store.ScoreStore
	users  store.UserDirectory
	logger *zap.Logger

	// Now returns server time; tests pin it.
	Now func() time.Time
}

// NewMaterializer creates a weekly score materializer.
func NewMaterializer(events store.EventStore, scores store.ScoreStore, users store.UserDirectory, logger *zap.Logger) *Materializer {
	return &Materializer{
		events: events,
		scores: scores,
		users:  users,
		logger: logger,
		Now:    time.Now,
	}
}

// Recompute rebuilds the WeeklyScore row for the user's current week and
// overwrites it. Idempotent: with no new events, two calls store
// identical values. No transaction wraps the read/aggregate/upsert pass;
// the ledger rows are immutable and the upsert is the atomic unit.
func (m *Materializer) Recompute(ctx context.Context, userID uuid.UUID) error {
	timezone, err := m.users.GetTimezone(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to resolve timezone for user %s: %w", userID, err)
	}

	// An invalid stored timezone degrades to UTC, same as the read
	// handlers: the user keeps scoring rather than failing every sync.
	window, err := CurrentWeek(m.Now(), timezone)
	if err != nil {
		m.logger.Warn("stored timezone invalid, falling back to UTC",
			zap.String("user_id", userID.String()),
			zap.String("timezone", timezone))
		window = WeekOf(m.Now().UTC())
	}

	streaks, err := ExtractStreaks(ctx, m.events, userID, window)
	if err != nil {
		return err
	}

	total := decimal.Zero
	count := 0
	var longest int64
	for _, streak := range streaks {
		points := Points(streak.LockAt, streak.UnlockAt)
		if !points.IsPositive() {
			continue
		}
		total = total.Add(points)
		count++
		if secs := int64(streak.Duration().Seconds()); secs > longest {
			longest = secs
		}
	}

	score := models.WeeklyScore{
		UserID:        userID,
		WeekStart:     window.Start,
		TotalPoints:   total,
		StreakCount:   count,
		LongestStreak: longest,
		CalculatedAt:  m.Now(),
	}
	if err := m.scores.UpsertWeeklyScore(ctx, score); err != nil {
		return fmt.Errorf("failed to upsert weekly score: %w", err)
	}

	m.logger.Debug("weekly score recomputed",
		zap.String("user_id", userID.String()),
		zap.Time("week_start", window.Start),
		zap.String("total_points", total.StringFixed(2)),
		zap.Int("streak_count", count))
	return nil
}

// RecomputeBestEffort runs Recompute and swallows the error after logging
// it. Sync responses must never fail because scoring lagged: the ledger
// write is already committed and the score is re-derivable on any later
// sync or admin recompute.
func (m *Materializer) RecomputeBestEffort(ctx context.Context, userID uuid.UUID) {
	if err := m.Recompute(ctx, userID); err != nil {
		m.logger.Error("weekly score recompute failed",
			zap.String("user_id", userID.String()),
			zap.Error(err))
	}
}
