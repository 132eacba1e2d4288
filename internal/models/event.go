package models

import (
	"time"

	"github.com/google/uuid"
)

// Event types reported by the mobile clients.
const (
	EventTypeLock   = "lock"
	EventTypeUnlock = "unlock"
)

// ValidEventType reports whether t is a known event type.
func ValidEventType(t string) bool {
	return t == EventTypeLock || t == EventTypeUnlock
}

// Event is one immutable lock/unlock record in the ledger.
// ClientID is the client-generated idempotency key, unique per user;
// CreatedAt is the server receipt instant and is the delta-sync cursor,
// distinct from the (normalized) client Timestamp.
type Event struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	ClientID  uuid.UUID `json:"client_id" db:"client_id"`
	EventType string    `json:"event_type" db:"event_type"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
	Source    string    `json:"source" db:"source"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// SyncEventRequest is one client event inside a sync batch.
// Timestamp is epoch milliseconds as reported by the device.
type SyncEventRequest struct {
	ID        uuid.UUID `json:"id" binding:"required"`
	EventType string    `json:"eventType" binding:"required"`
	Timestamp int64     `json:"timestamp" binding:"required"`
	Source    string    `json:"source"`
}

// SyncRequest is the body of POST /api/events/sync.
type SyncRequest struct {
	Events     []SyncEventRequest `json:"events"`
	LastSync   int64              `json:"lastSync"`
	ClientTime int64              `json:"clientTime"`
}

// SyncConfirmation tells the client which local rows are now durable.
type SyncConfirmation struct {
	ClientID uuid.UUID `json:"clientId"`
	ServerID uuid.UUID `json:"serverId"`
}

// SyncEventResponse is an other-device event returned to the client.
type SyncEventResponse struct {
	ID        uuid.UUID `json:"id"`
	EventType string    `json:"eventType"`
	Timestamp int64     `json:"timestamp"`
	Source    string    `json:"source"`
}

// SyncResponse is the body returned by POST /api/events/sync.
type SyncResponse struct {
	Confirmed  []SyncConfirmation  `json:"confirmed"`
	NewEvents  []SyncEventResponse `json:"newEvents"`
	ServerTime int64               `json:"serverTime"`
}

// CurrentStreakResponse is the body of GET /api/events/current.
type CurrentStreakResponse struct {
	InStreak             bool   `json:"inStreak"`
	StreakStartedAt      *int64 `json:"streakStartedAt"`
	CurrentStreakSeconds int64  `json:"currentStreakSeconds"`
}

// ToSyncResponse converts a ledger event to the wire shape, using the
// client's idempotency key as the event id the way the mobile app
// originally wrote it.
func (e *Event) ToSyncResponse() SyncEventResponse {
	return SyncEventResponse{
		ID:        e.ClientID,
		EventType: e.EventType,
		Timestamp: e.Timestamp.UnixMilli(),
		Source:    e.Source,
	}
}
