package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/davidtorcivia/stifle-sub000/internal/eventsync"
	"github.com/davidtorcivia/stifle-sub000/internal/middleware"
	"github.com/davidtorcivia/stifle-sub000/internal/models"
)

// EventHandlers serves the sync protocol endpoints.
type EventHandlers struct {
	reconciler *eventsync.Reconciler
	logger     *zap.Logger
}

// NewEventHandlers creates the event sync handlers.
func NewEventHandlers(reconciler *eventsync.Reconciler, logger *zap.Logger) *EventHandlers {
	return &EventHandlers{reconciler: reconciler, logger: logger}
}

// SyncEvents handles POST /api/events/sync: merge the client batch into
// the ledger and return the other-device delta. A structurally invalid
// body is rejected whole; nothing is processed.
func (h *EventHandlers) SyncEvents(c *gin.Context) {
	userID, ok := middleware.GetAuthUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req models.SyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid sync request", "details": err.Error()})
		return
	}

	for _, ev := range req.Events {
		if ev.ID == uuid.Nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Event id is required"})
			return
		}
		if !models.ValidEventType(ev.EventType) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event type", "eventType": ev.EventType})
			return
		}
	}

	resp, err := h.reconciler.Sync(c.Request.Context(), userID, req)
	if err != nil {
		h.logger.Error("sync failed", zap.String("user_id", userID.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to sync events"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetCurrentStreak handles GET /api/events/current: live streak state
// derived from the user's last ledger event.
func (h *EventHandlers) GetCurrentStreak(c *gin.Context) {
	userID, ok := middleware.GetAuthUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	resp, err := h.reconciler.CurrentStreak(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("current streak lookup failed", zap.String("user_id", userID.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query current streak"})
		return
	}

	c.JSON(http.StatusOK, resp)
}
