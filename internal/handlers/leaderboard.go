package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/davidtorcivia/stifle-sub000/internal/middleware"
	"github.com/davidtorcivia/stifle-sub000/internal/models"
	"github.com/davidtorcivia/stifle-sub000/internal/scoring"
	"github.com/davidtorcivia/stifle-sub000/internal/store"
)

// LeaderboardHandlers reads the materialized weekly_scores rows. Ranking
// is nothing more than the stored totals ordered descending.
type LeaderboardHandlers struct {
	scores store.ScoreStore
	users  store.UserDirectory
	logger *zap.Logger
}

// NewLeaderboardHandlers creates the leaderboard handlers.
func NewLeaderboardHandlers(scores store.ScoreStore, users store.UserDirectory, logger *zap.Logger) *LeaderboardHandlers {
	return &LeaderboardHandlers{scores: scores, users: users, logger: logger}
}

// GetWeeklyLeaderboard handles GET /api/leaderboard/weekly. The week is
// anchored to the caller's timezone; users in other timezones whose week
// starts at a different instant simply appear under their own rows.
func (h *LeaderboardHandlers) GetWeeklyLeaderboard(c *gin.Context) {
	userID, ok := middleware.GetAuthUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	timezone, err := h.users.GetTimezone(c.Request.Context(), userID)
	if err != nil {
		timezone = "UTC"
	}
	window, err := scoring.CurrentWeek(time.Now(), timezone)
	if err != nil {
		window = scoring.WeekOf(time.Now().UTC())
	}

	leaderboard, err := h.scores.WeeklyLeaderboard(c.Request.Context(), window.Start)
	if err != nil {
		h.logger.Error("leaderboard query failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query leaderboard"})
		return
	}

	c.JSON(http.StatusOK, models.LeaderboardResponse{
		WeekStart:   window.Start.Format("2006-01-02"),
		Leaderboard: leaderboard,
		TotalUsers:  len(leaderboard),
	})
}
