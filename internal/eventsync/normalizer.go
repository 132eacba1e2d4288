package eventsync

import (
	"time"

	"go.uber.org/zap"
)

// Default clock-normalization thresholds. Client clocks drift and
// devices replay queued events after long offline stretches; anything
// older than the max age is untrustworthy, anything in the future is
// drift to be clamped.
const (
	DefaultMaxEventAge    = 7 * 24 * time.Hour
	DefaultMaxFutureDrift = 60 * time.Second
)

// Normalizer validates and adjusts client-reported timestamps before
// they enter the ledger. Stateless, per-event, no side effects beyond
// the accept/clamp/reject decision.
type Normalizer struct {
	maxAge         time.Duration
	maxFutureDrift time.Duration
	logger         *zap.Logger
}

// NewNormalizer creates a clock normalizer with the given thresholds;
// non-positive values fall back to the defaults.
func NewNormalizer(maxAge, maxFutureDrift time.Duration, logger *zap.Logger) *Normalizer {
	if maxAge <= 0 {
		maxAge = DefaultMaxEventAge
	}
	if maxFutureDrift <= 0 {
		maxFutureDrift = DefaultMaxFutureDrift
	}
	return &Normalizer{
		maxAge:         maxAge,
		maxFutureDrift: maxFutureDrift,
		logger:         logger,
	}
}

// Normalize returns the timestamp to store and whether the event is
// accepted at all. Events older than the max age relative to server now
// are rejected (dropped silently from the client's point of view);
// timestamps more than the drift allowance ahead of now are clamped to
// now; everything else passes through unchanged.
func (n *Normalizer) Normalize(ts, now time.Time) (time.Time, bool) {
	if ts.Before(now.Add(-n.maxAge)) {
		n.logger.Warn("dropping stale event",
			zap.Time("timestamp", ts),
			zap.Duration("age", now.Sub(ts)))
		return time.Time{}, false
	}
	if ts.After(now.Add(n.maxFutureDrift)) {
		n.logger.Warn("clamping future event timestamp",
			zap.Time("timestamp", ts),
			zap.Duration("drift", ts.Sub(now)))
		return now, true
	}
	return ts, true
}
