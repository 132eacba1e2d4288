package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/davidtorcivia/stifle-sub000/internal/models"
	"github.com/davidtorcivia/stifle-sub000/internal/store"
)

// Compile-time check: *DB must satisfy store.ScoreStore.
var _ store.ScoreStore = (*DB)(nil)

// UpsertWeeklyScore overwrites the (user_id, week_start) aggregate with
// freshly recomputed values. Full overwrite, not increment: concurrent
// recomputes both write a complete, valid row.
func (db *DB) UpsertWeeklyScore(ctx context.Context, score models.WeeklyScore) error {
	query := `
		INSERT INTO weekly_scores (user_id, week_start, total_points, streak_count, longest_streak, calculated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, week_start) DO UPDATE SET
			total_points = EXCLUDED.total_points,
			streak_count = EXCLUDED.streak_count,
			longest_streak = EXCLUDED.longest_streak,
			calculated_at = EXCLUDED.calculated_at
	`

	_, err := db.pool.Exec(ctx, query,
		score.UserID,
		score.WeekStart,
		score.TotalPoints.StringFixed(2),
		score.StreakCount,
		score.LongestStreak,
		score.CalculatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert weekly score: %w", err)
	}
	return nil
}

// GetWeeklyScore returns the aggregate row for one (user, week).
func (db *DB) GetWeeklyScore(ctx context.Context, userID uuid.UUID, weekStart time.Time) (*models.WeeklyScore, error) {
	query := `
		SELECT user_id, week_start, total_points::text, streak_count, longest_streak, calculated_at
		FROM weekly_scores
		WHERE user_id = $1 AND week_start = $2
	`

	var score models.WeeklyScore
	var totalPoints string
	err := db.pool.QueryRow(ctx, query, userID, weekStart).Scan(
		&score.UserID,
		&score.WeekStart,
		&totalPoints,
		&score.StreakCount,
		&score.LongestStreak,
		&score.CalculatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrScoreNotFound
		}
		return nil, fmt.Errorf("failed to query weekly score: %w", err)
	}

	score.TotalPoints, err = decimal.NewFromString(totalPoints)
	if err != nil {
		return nil, fmt.Errorf("failed to parse total_points %q: %w", totalPoints, err)
	}
	return &score, nil
}

// WeeklyLeaderboard returns the ranked scores for one week. Ordering is
// the whole of the ranking logic: points desc, then username for a
// stable tiebreak.
func (db *DB) WeeklyLeaderboard(ctx context.Context, weekStart time.Time) ([]models.LeaderboardEntry, error) {
	query := `
		SELECT
			s.user_id,
			u.username,
			u.display_name,
			s.total_points::text,
			s.streak_count,
			s.longest_streak
		FROM weekly_scores s
		JOIN users u ON u.id = s.user_id
		WHERE s.week_start = $1 AND u.is_active = true
		ORDER BY s.total_points DESC, u.username ASC
	`

	rows, err := db.pool.Query(ctx, query, weekStart)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	entries := []models.LeaderboardEntry{}
	rank := 1
	for rows.Next() {
		var entry models.LeaderboardEntry
		var totalPoints string
		err := rows.Scan(
			&entry.UserID,
			&entry.Username,
			&entry.DisplayName,
			&totalPoints,
			&entry.StreakCount,
			&entry.LongestStreak,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}

		points, err := decimal.NewFromString(totalPoints)
		if err != nil {
			return nil, fmt.Errorf("failed to parse total_points %q: %w", totalPoints, err)
		}
		entry.TotalPoints = points.StringFixed(2)
		entry.Rank = rank
		entries = append(entries, entry)
		rank++
	}
	return entries, rows.Err()
}
