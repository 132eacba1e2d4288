package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/davidtorcivia/stifle-sub000/internal/models"
)

// Memory is an in-memory implementation of the store contracts, used by
// tests and local development. It mirrors the SQL semantics exactly:
// insert-if-absent on (user_id, client_id), created_at cursor reads,
// half-open window queries.
type Memory struct {
	mu     sync.RWMutex
	events []models.Event
	scores map[scoreKey]models.WeeklyScore
	users  map[uuid.UUID]models.User

	// Now lets tests pin server receipt time; defaults to time.Now.
	Now func() time.Time
}

type scoreKey struct {
	userID    uuid.UUID
	weekStart int64
}

var (
	_ EventStore    = (*Memory)(nil)
	_ ScoreStore    = (*Memory)(nil)
	_ UserDirectory = (*Memory)(nil)
)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		scores: make(map[scoreKey]models.WeeklyScore),
		users:  make(map[uuid.UUID]models.User),
		Now:    time.Now,
	}
}

// AddUser registers a user in the directory.
func (m *Memory) AddUser(u models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

func (m *Memory) InsertEvent(_ context.Context, p InsertEventParams) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, ev := range m.events {
		if ev.UserID == p.UserID && ev.ClientID == p.ClientID {
			return uuid.Nil, ErrDuplicateEvent
		}
	}

	ev := models.Event{
		ID:        uuid.New(),
		UserID:    p.UserID,
		ClientID:  p.ClientID,
		EventType: p.EventType,
		Timestamp: p.Timestamp,
		Source:    p.Source,
		CreatedAt: m.Now(),
	}
	m.events = append(m.events, ev)
	return ev.ID, nil
}

func (m *Memory) EventsSince(_ context.Context, userID uuid.UUID, since time.Time, excludeClientIDs []uuid.UUID, limit int) ([]models.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	excluded := make(map[uuid.UUID]bool, len(excludeClientIDs))
	for _, id := range excludeClientIDs {
		excluded[id] = true
	}

	out := []models.Event{}
	for _, ev := range m.events {
		if ev.UserID != userID || !ev.CreatedAt.After(since) || excluded[ev.ClientID] {
			continue
		}
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) LastEvent(_ context.Context, userID uuid.UUID) (*models.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var last *models.Event
	for i := range m.events {
		ev := m.events[i]
		if ev.UserID != userID {
			continue
		}
		if last == nil || ev.Timestamp.After(last.Timestamp) {
			last = &ev
		}
	}
	if last == nil {
		return nil, nil
	}
	cp := *last
	return &cp, nil
}

func (m *Memory) EventsInWindow(_ context.Context, userID uuid.UUID, start, end time.Time, eventType string) ([]models.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []models.Event{}
	for _, ev := range m.events {
		if ev.UserID != userID {
			continue
		}
		if ev.Timestamp.Before(start) || !ev.Timestamp.Before(end) {
			continue
		}
		if eventType != "" && ev.EventType != eventType {
			continue
		}
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (m *Memory) LastEventBefore(_ context.Context, userID uuid.UUID, ts time.Time, eventType string) (*models.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var last *models.Event
	for i := range m.events {
		ev := m.events[i]
		if ev.UserID != userID || ev.EventType != eventType || !ev.Timestamp.Before(ts) {
			continue
		}
		if last == nil || ev.Timestamp.After(last.Timestamp) {
			last = &ev
		}
	}
	if last == nil {
		return nil, nil
	}
	cp := *last
	return &cp, nil
}

func (m *Memory) PurgeEventsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.events[:0]
	var purged int64
	for _, ev := range m.events {
		if ev.Timestamp.Before(cutoff) {
			purged++
			continue
		}
		kept = append(kept, ev)
	}
	m.events = kept
	return purged, nil
}

func (m *Memory) DeleteUserEvents(_ context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.events[:0]
	for _, ev := range m.events {
		if ev.UserID == userID {
			continue
		}
		kept = append(kept, ev)
	}
	m.events = kept
	return nil
}

func (m *Memory) UpsertWeeklyScore(_ context.Context, score models.WeeklyScore) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scores[scoreKey{score.UserID, score.WeekStart.Unix()}] = score
	return nil
}

func (m *Memory) GetWeeklyScore(_ context.Context, userID uuid.UUID, weekStart time.Time) (*models.WeeklyScore, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	score, ok := m.scores[scoreKey{userID, weekStart.Unix()}]
	if !ok {
		return nil, ErrScoreNotFound
	}
	return &score, nil
}

func (m *Memory) WeeklyLeaderboard(_ context.Context, weekStart time.Time) ([]models.LeaderboardEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	scores := []models.WeeklyScore{}
	for key, score := range m.scores {
		if key.weekStart != weekStart.Unix() {
			continue
		}
		scores = append(scores, score)
	}
	sort.Slice(scores, func(i, j int) bool {
		if cmp := scores[i].TotalPoints.Cmp(scores[j].TotalPoints); cmp != 0 {
			return cmp > 0
		}
		return m.users[scores[i].UserID].Username < m.users[scores[j].UserID].Username
	})

	entries := make([]models.LeaderboardEntry, 0, len(scores))
	for i, score := range scores {
		u := m.users[score.UserID]
		entries = append(entries, models.LeaderboardEntry{
			Rank:          i + 1,
			UserID:        score.UserID,
			Username:      u.Username,
			DisplayName:   u.DisplayName,
			TotalPoints:   score.TotalPoints.StringFixed(2),
			StreakCount:   score.StreakCount,
			LongestStreak: score.LongestStreak,
		})
	}
	return entries, nil
}

func (m *Memory) GetTimezone(_ context.Context, userID uuid.UUID) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[userID]
	if !ok || !u.IsActive {
		return "", ErrUserNotFound
	}
	return u.Timezone, nil
}

func (m *Memory) GetByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if u.Username == username && u.IsActive {
			cp := u
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}
