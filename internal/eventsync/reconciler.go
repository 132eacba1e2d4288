package eventsync

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/davidtorcivia/stifle-sub000/internal/models"
	"github.com/davidtorcivia/stifle-sub000/internal/scoring"
	"github.com/davidtorcivia/stifle-sub000/internal/store"
)

// DefaultPageSize caps how many other-device events one sync response
// carries; the client pages forward with its lastSync cursor.
const DefaultPageSize = 100

// Reconciler merges a client's event batch into the ledger and hands
// back the events it has not yet seen from the user's other devices.
// There is no conflict resolution: events are immutable and append-only,
// so concurrent submissions from different devices just interleave by
// timestamp at read time.
type Reconciler struct {
	events       store.EventStore
	normalizer   *Normalizer
	materializer *scoring.Materializer
	logger       *zap.Logger
	pageSize     int

	// now is swapped out by tests.
	now func() time.Time
}

// NewReconciler creates a sync reconciler. pageSize <= 0 uses the default.
func NewReconciler(events store.EventStore, normalizer *Normalizer, materializer *scoring.Materializer, logger *zap.Logger, pageSize int) *Reconciler {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Reconciler{
		events:       events,
		normalizer:   normalizer,
		materializer: materializer,
		logger:       logger,
		pageSize:     pageSize,
		now:          time.Now,
	}
}

// Sync processes the batch strictly in the order the client sent it:
// normalize, insert-if-absent, confirm. Stale events and duplicates are
// skipped silently: absence from confirmed is the only signal the
// client needs, and its retry with the same client ids is always safe.
// A non-duplicate storage failure aborts that one event; confirmations
// already collected stand, and the client retries the rest later.
func (r *Reconciler) Sync(ctx context.Context, userID uuid.UUID, req models.SyncRequest) (*models.SyncResponse, error) {
	now := r.now()

	confirmed := []models.SyncConfirmation{}
	batchClientIDs := make([]uuid.UUID, 0, len(req.Events))
	for _, in := range req.Events {
		batchClientIDs = append(batchClientIDs, in.ID)

		ts, ok := r.normalizer.Normalize(time.UnixMilli(in.Timestamp).UTC(), now)
		if !ok {
			continue
		}

		serverID, err := r.events.InsertEvent(ctx, store.InsertEventParams{
			UserID:    userID,
			ClientID:  in.ID,
			EventType: in.EventType,
			Timestamp: ts,
			Source:    in.Source,
		})
		if err != nil {
			if errors.Is(err, store.ErrDuplicateEvent) {
				continue // idempotent re-send, not an error
			}
			r.logger.Error("event insert failed",
				zap.String("user_id", userID.String()),
				zap.String("client_id", in.ID.String()),
				zap.Error(err))
			continue
		}

		confirmed = append(confirmed, models.SyncConfirmation{
			ClientID: in.ID,
			ServerID: serverID,
		})
	}

	// Scoring is best effort: the ledger writes above are committed and
	// must never be held hostage by a recompute failure.
	if len(confirmed) > 0 {
		r.materializer.RecomputeBestEffort(ctx, userID)
	}

	// serverTime is read after the inserts so every row written in this
	// request has created_at <= serverTime. Taking it up front would let
	// the next sync with lastSync = serverTime pull the device's own
	// batch back as new events.
	serverTime := r.now()

	newEvents, err := r.events.EventsSince(ctx, userID, time.UnixMilli(req.LastSync).UTC(), batchClientIDs, r.pageSize)
	if err != nil {
		return nil, err
	}

	resp := &models.SyncResponse{
		Confirmed:  confirmed,
		NewEvents:  make([]models.SyncEventResponse, 0, len(newEvents)),
		ServerTime: serverTime.UnixMilli(),
	}
	for i := range newEvents {
		resp.NewEvents = append(resp.NewEvents, newEvents[i].ToSyncResponse())
	}
	return resp, nil
}

// CurrentStreak derives the live streak state from the last ledger
// event: the user is in a streak iff their most recent event is a lock.
func (r *Reconciler) CurrentStreak(ctx context.Context, userID uuid.UUID) (*models.CurrentStreakResponse, error) {
	last, err := r.events.LastEvent(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := &models.CurrentStreakResponse{}
	if last != nil && last.EventType == models.EventTypeLock {
		startedAt := last.Timestamp.UnixMilli()
		resp.InStreak = true
		resp.StreakStartedAt = &startedAt
		resp.CurrentStreakSeconds = int64(r.now().Sub(last.Timestamp).Seconds())
	}
	return resp, nil
}
