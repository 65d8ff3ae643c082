package models

import (
	"encoding/json"
	"time"
)

// SyncOp is the kind of a queued write.
type SyncOp string

const (
	OpCreate SyncOp = "create"
	OpUpdate SyncOp = "update"
	OpDelete SyncOp = "delete"
)

// EntityType names the entity a queued write targets.
type EntityType string

const (
	EntityProfile    EntityType = "profile"
	EntityFact       EntityType = "fact"
	EntityPreference EntityType = "preference"
	EntitySession    EntityType = "session"
	EntityMessage    EntityType = "message"
	EntityConsent    EntityType = "consent"
)

// SyncQueueItem is a write awaiting delivery to the remote store.
type SyncQueueItem struct {
	ID         string          `json:"id"`
	Op         SyncOp          `json:"op"`
	Entity     EntityType      `json:"entity"`
	UserID     string          `json:"user_id"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
	Retries    int             `json:"retries"`
	LastError  string          `json:"last_error,omitempty"`
}

// FactRef identifies a fact for deletion.
type FactRef struct {
	UserID string `json:"user_id"`
	ID     string `json:"id"`
}

// SyncStatus is the externally observable health of the sync layer.
type SyncStatus struct {
	IsOnline       bool       `json:"is_online"`
	QueueLength    int        `json:"queue_length"`
	SyncInProgress bool       `json:"sync_in_progress"`
	LastSyncAt     *time.Time `json:"last_sync_at,omitempty"`
	LastError      string     `json:"last_error,omitempty"`
}
