package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/davidtorcivia/stifle-sub000/internal/middleware"
	"github.com/davidtorcivia/stifle-sub000/internal/models"
	"github.com/davidtorcivia/stifle-sub000/internal/scoring"
	"github.com/davidtorcivia/stifle-sub000/internal/store"
)

// ScoreHandlers serves weekly score reads plus the admin recompute and
// retention endpoints.
type ScoreHandlers struct {
	scores       store.ScoreStore
	events       store.EventStore
	users        store.UserDirectory
	materializer *scoring.Materializer
	logger       *zap.Logger
}

// NewScoreHandlers creates the score handlers.
func NewScoreHandlers(scores store.ScoreStore, events store.EventStore, users store.UserDirectory, materializer *scoring.Materializer, logger *zap.Logger) *ScoreHandlers {
	return &ScoreHandlers{
		scores:       scores,
		events:       events,
		users:        users,
		materializer: materializer,
		logger:       logger,
	}
}

// GetWeeklyScore handles GET /api/scores/weekly: the caller's aggregate
// for the current week. A missing row means no scored streaks yet and
// comes back as zeros rather than a 404.
func (h *ScoreHandlers) GetWeeklyScore(c *gin.Context) {
	userID, ok := middleware.GetAuthUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	window, ok := h.resolveWeek(c, userID)
	if !ok {
		return
	}

	score, err := h.scores.GetWeeklyScore(c.Request.Context(), userID, window.Start)
	if err != nil {
		if errors.Is(err, store.ErrScoreNotFound) {
			empty := models.WeeklyScore{
				UserID:       userID,
				WeekStart:    window.Start,
				CalculatedAt: time.Now(),
			}
			c.JSON(http.StatusOK, empty.ToResponse())
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query weekly score"})
		return
	}

	c.JSON(http.StatusOK, score.ToResponse())
}

// RecomputeUser handles POST /api/admin/users/:id/recompute: the manual
// re-derivation path for when scoring lagged a sync.
func (h *ScoreHandlers) RecomputeUser(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID format"})
		return
	}

	if err := h.materializer.Recompute(c.Request.Context(), userID); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		h.logger.Error("admin recompute failed", zap.String("user_id", userID.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to recompute weekly score"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "recomputed", "user_id": userID})
}

// PurgeRetention handles POST /api/admin/retention/purge: drop events
// older than the given number of days.
func (h *ScoreHandlers) PurgeRetention(c *gin.Context) {
	var req struct {
		OlderThanDays int `json:"olderThanDays" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid purge request", "details": err.Error()})
		return
	}

	cutoff := time.Now().AddDate(0, 0, -req.OlderThanDays)
	purged, err := h.events.PurgeEventsBefore(c.Request.Context(), cutoff)
	if err != nil {
		h.logger.Error("retention purge failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to purge events"})
		return
	}

	h.logger.Info("retention purge completed", zap.Int64("purged", purged), zap.Time("cutoff", cutoff))
	c.JSON(http.StatusOK, gin.H{"purged": purged, "cutoff": cutoff.Format(time.RFC3339)})
}

// resolveWeek computes the caller's current week window from their
// stored timezone, answering the HTTP error itself on failure.
func (h *ScoreHandlers) resolveWeek(c *gin.Context, userID uuid.UUID) (scoring.WeekWindow, bool) {
	timezone, err := h.users.GetTimezone(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve timezone"})
		}
		return scoring.WeekWindow{}, false
	}

	window, err := scoring.CurrentWeek(time.Now(), timezone)
	if err != nil {
		h.logger.Warn("stored timezone invalid, falling back to UTC",
			zap.String("user_id", userID.String()), zap.String("timezone", timezone))
		window = scoring.WeekOf(time.Now().UTC())
	}
	return window, true
}
