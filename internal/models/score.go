package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WeeklyScore is the materialized aggregate for one (user, week).
// It is fully derivable from the event ledger: recompute always
// overwrites the whole row, so it is safe to drop and rebuild.
type WeeklyScore struct {
	UserID        uuid.UUID       `json:"user_id" db:"user_id"`
	WeekStart     time.Time       `json:"week_start" db:"week_start"`
	TotalPoints   decimal.Decimal `json:"total_points" db:"total_points"`
	StreakCount   int             `json:"streak_count" db:"streak_count"`
	LongestStreak int64           `json:"longest_streak" db:"longest_streak"` // seconds
	CalculatedAt  time.Time       `json:"calculated_at" db:"calculated_at"`
}

// WeeklyScoreResponse is the API response format.
type WeeklyScoreResponse struct {
	UserID        uuid.UUID `json:"user_id"`
	WeekStart     string    `json:"week_start"`
	TotalPoints   string    `json:"total_points"`
	StreakCount   int       `json:"streak_count"`
	LongestStreak int64     `json:"longest_streak"`
	CalculatedAt  string    `json:"calculated_at"`
}

// ToResponse converts WeeklyScore to WeeklyScoreResponse.
func (s *WeeklyScore) ToResponse() WeeklyScoreResponse {
	return WeeklyScoreResponse{
		UserID:        s.UserID,
		WeekStart:     s.WeekStart.Format("2006-01-02"),
		TotalPoints:   s.TotalPoints.StringFixed(2),
		StreakCount:   s.StreakCount,
		LongestStreak: s.LongestStreak,
		CalculatedAt:  s.CalculatedAt.Format(time.RFC3339),
	}
}

// LeaderboardEntry is one ranked row of the weekly leaderboard.
type LeaderboardEntry struct {
	Rank          int       `json:"rank"`
	UserID        uuid.UUID `json:"user_id"`
	Username      string    `json:"username"`
	DisplayName   string    `json:"display_name"`
	TotalPoints   string    `json:"total_points"`
	StreakCount   int       `json:"streak_count"`
	LongestStreak int64     `json:"longest_streak"`
}

// LeaderboardResponse wraps the weekly leaderboard.
type LeaderboardResponse struct {
	WeekStart   string             `json:"week_start"`
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
	TotalUsers  int                `json:"total_users"`
}
