package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/davidtorcivia/stifle-sub000/internal/auth"
	"github.com/davidtorcivia/stifle-sub000/internal/eventsync"
	"github.com/davidtorcivia/stifle-sub000/internal/models"
	"github.com/davidtorcivia/stifle-sub000/internal/scoring"
	"github.com/davidtorcivia/stifle-sub000/internal/store"
)

type testEnv struct {
	router *gin.Engine
	mem    *store.Memory
	userID uuid.UUID
	token  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zap.NewNop()
	mem := store.NewMemory()
	userID := uuid.New()
	mem.AddUser(models.User{
		ID:       userID,
		Username: "alice",
		Timezone: "UTC",
		IsActive: true,
	})

	jwtService := auth.NewJWTService("test-secret", "stifle-test")
	token, err := jwtService.GenerateToken(userID, "alice")
	require.NoError(t, err)

	materializer := scoring.NewMaterializer(mem, mem, mem, logger)
	normalizer := eventsync.NewNormalizer(0, 0, logger)
	reconciler := eventsync.NewReconciler(mem, normalizer, materializer, logger, 0)

	router := NewRouter(RouterDeps{
		Events:       mem,
		Scores:       mem,
		Users:        mem,
		Reconciler:   reconciler,
		Materializer: materializer,
		JWT:          jwtService,
		Logger:       logger,
		Version:      "test",
	})

	return &testEnv{router: router, mem: mem, userID: userID, token: token}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.token)

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestSyncEndToEndScenario(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now().UTC()

	// 15-minute streak synced in one batch.
	lockID, unlockID := uuid.New(), uuid.New()
	w := env.do(t, http.MethodPost, "/api/events/sync", models.SyncRequest{
		Events: []models.SyncEventRequest{
			{ID: lockID, EventType: "lock", Timestamp: now.Add(-20 * time.Minute).UnixMilli(), Source: "automatic"},
			{ID: unlockID, EventType: "unlock", Timestamp: now.Add(-5 * time.Minute).UnixMilli(), Source: "automatic"},
		},
		LastSync:   0,
		ClientTime: now.UnixMilli(),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.SyncResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Confirmed, 2)
	require.Equal(t, lockID, resp.Confirmed[0].ClientID)
	require.Equal(t, unlockID, resp.Confirmed[1].ClientID)
	require.Empty(t, resp.NewEvents)
	require.NotZero(t, resp.ServerTime)

	// The synchronous recompute materialized the week.
	w = env.do(t, http.MethodGet, "/api/scores/weekly", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var score struct {
		TotalPoints   string `json:"total_points"`
		StreakCount   int    `json:"streak_count"`
		LongestStreak int64  `json:"longest_streak"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &score))
	require.Equal(t, "27.08", score.TotalPoints) // ln(15)*10
	require.Equal(t, 1, score.StreakCount)
	require.Equal(t, int64(900), score.LongestStreak)

	// Idempotent re-send: same batch confirms nothing new and the score
	// is unchanged.
	w = env.do(t, http.MethodPost, "/api/events/sync", models.SyncRequest{
		Events: []models.SyncEventRequest{
			{ID: lockID, EventType: "lock", Timestamp: now.Add(-20 * time.Minute).UnixMilli(), Source: "automatic"},
			{ID: unlockID, EventType: "unlock", Timestamp: now.Add(-5 * time.Minute).UnixMilli(), Source: "automatic"},
		},
		LastSync:   resp.ServerTime,
		ClientTime: now.UnixMilli(),
	})
	require.Equal(t, http.StatusOK, w.Code)
	var resend models.SyncResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resend))
	require.Empty(t, resend.Confirmed)

	w = env.do(t, http.MethodGet, "/api/scores/weekly", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &score))
	require.Equal(t, "27.08", score.TotalPoints)
}

func TestSyncRejectsMalformedBatch(t *testing.T) {
	env := newTestEnv(t)

	// Invalid event type: the whole request is rejected, nothing stored.
	w := env.do(t, http.MethodPost, "/api/events/sync", gin.H{
		"events": []gin.H{
			{"id": uuid.New(), "eventType": "explode", "timestamp": time.Now().UnixMilli()},
		},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	last, err := env.mem.LastEvent(context.Background(), env.userID)
	require.NoError(t, err)
	require.Nil(t, last)

	// Structurally invalid JSON.
	req := httptest.NewRequest(http.MethodPost, "/api/events/sync", bytes.NewBufferString("{not json"))
	req.Header.Set("Authorization", "Bearer "+env.token)
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSyncRequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/events/sync", bytes.NewBufferString("{}"))
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCurrentStreakEndpoint(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now().UTC()

	w := env.do(t, http.MethodGet, "/api/events/current", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var current models.CurrentStreakResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &current))
	require.False(t, current.InStreak)

	w = env.do(t, http.MethodPost, "/api/events/sync", models.SyncRequest{
		Events: []models.SyncEventRequest{
			{ID: uuid.New(), EventType: "lock", Timestamp: now.Add(-10 * time.Minute).UnixMilli(), Source: "shortcut"},
		},
		ClientTime: now.UnixMilli(),
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/events/current", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &current))
	require.True(t, current.InStreak)
	require.NotNil(t, current.StreakStartedAt)
	require.GreaterOrEqual(t, current.CurrentStreakSeconds, int64(599))
}

func TestWeeklyLeaderboardEndpoint(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now().UTC()

	// A second user with a bigger streak outranks alice.
	bobID := uuid.New()
	env.mem.AddUser(models.User{ID: bobID, Username: "bob", DisplayName: "Bob", Timezone: "UTC", IsActive: true})

	for i, sync := range []struct {
		userID   uuid.UUID
		duration time.Duration
	}{
		{env.userID, 15 * time.Minute},
		{bobID, 2 * time.Hour},
	} {
		lockAt := now.Add(-3*time.Hour + time.Duration(i)*time.Minute)
		_, err := env.mem.InsertEvent(context.Background(), store.InsertEventParams{
			UserID: sync.userID, ClientID: uuid.New(), EventType: "lock", Timestamp: lockAt, Source: "automatic",
		})
		require.NoError(t, err)
		_, err = env.mem.InsertEvent(context.Background(), store.InsertEventParams{
			UserID: sync.userID, ClientID: uuid.New(), EventType: "unlock", Timestamp: lockAt.Add(sync.duration), Source: "automatic",
		})
		require.NoError(t, err)
	}

	logger := zap.NewNop()
	materializer := scoring.NewMaterializer(env.mem, env.mem, env.mem, logger)
	require.NoError(t, materializer.Recompute(context.Background(), env.userID))
	require.NoError(t, materializer.Recompute(context.Background(), bobID))

	w := env.do(t, http.MethodGet, "/api/leaderboard/weekly", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.LeaderboardResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.TotalUsers)
	require.Equal(t, "bob", resp.Leaderboard[0].Username)
	require.Equal(t, 1, resp.Leaderboard[0].Rank)
	require.Equal(t, "alice", resp.Leaderboard[1].Username)
}

func TestWeeklyScoreEmptyWeekShape(t *testing.T) {
	env := newTestEnv(t)

	// No scored streaks yet: the response is still the full score shape,
	// zero-valued, not an ad hoc body.
	w := env.do(t, http.MethodGet, "/api/scores/weekly", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var score models.WeeklyScoreResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &score))
	require.Equal(t, env.userID, score.UserID)
	require.Equal(t, "0.00", score.TotalPoints)
	require.Zero(t, score.StreakCount)
	require.Zero(t, score.LongestStreak)
	require.NotEmpty(t, score.WeekStart)
	require.NotEmpty(t, score.CalculatedAt)
}

func TestAdminRecomputeEndpoint(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now().UTC()

	_, err := env.mem.InsertEvent(context.Background(), store.InsertEventParams{
		UserID: env.userID, ClientID: uuid.New(), EventType: "lock", Timestamp: now.Add(-30 * time.Minute), Source: "automatic",
	})
	require.NoError(t, err)
	_, err = env.mem.InsertEvent(context.Background(), store.InsertEventParams{
		UserID: env.userID, ClientID: uuid.New(), EventType: "unlock", Timestamp: now.Add(-15 * time.Minute), Source: "automatic",
	})
	require.NoError(t, err)

	w := env.do(t, http.MethodPost, fmt.Sprintf("/api/admin/users/%s/recompute", env.userID), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, http.MethodGet, "/api/scores/weekly", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var score struct {
		StreakCount int `json:"streak_count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &score))
	require.Equal(t, 1, score.StreakCount)

	w = env.do(t, http.MethodPost, "/api/admin/users/not-a-uuid/recompute", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
