package scoring

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/davidtorcivia/stifle-sub000/internal/models"
	"github.com/davidtorcivia/stifle-sub000/internal/store"
)

// Streak is one derived offline interval: a lock and the earliest unlock
// that follows it. Never persisted, always re-derived from the ledger.
type Streak struct {
	LockAt   time.Time
	UnlockAt time.Time
}

// Duration returns the streak length.
func (s Streak) Duration() time.Duration {
	return s.UnlockAt.Sub(s.LockAt)
}

// ExtractStreaks derives the streaks credited to a week. Every unlock
// inside [window.Start, window.End) pairs with the most recent preceding
// lock, which may predate the window: a streak spanning the Monday
// boundary is credited wholly to the unlock's week. An unlock with no
// preceding lock contributes nothing. Pairs come back in unlock order.
//
// Interleaved events from multiple devices need no device-aware merging:
// the "most recent preceding lock" rule resolves them deterministically
// from timestamp order alone.
func ExtractStreaks(ctx context.Context, events store.EventStore, userID uuid.UUID, window WeekWindow) ([]Streak, error) {
	unlocks, err := events.EventsInWindow(ctx, userID, window.Start, window.End, models.EventTypeUnlock)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unlock events: %w", err)
	}

	streaks := []Streak{}
	for _, unlock := range unlocks {
		lock, err := events.LastEventBefore(ctx, userID, unlock.Timestamp, models.EventTypeLock)
		if err != nil {
			return nil, fmt.Errorf("failed to find preceding lock: %w", err)
		}
		if lock == nil {
			continue // orphan unlock, no streak
		}
		streaks = append(streaks, Streak{
			LockAt:   lock.Timestamp,
			UnlockAt: unlock.Timestamp,
		})
	}
	return streaks, nil
}
