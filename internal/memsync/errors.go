package memsync

import (
	"errors"
	"fmt"

	"github.com/hyperjump/kioku/internal/models"
)

var (
	// ErrNotInitialized is returned by every operation called before Initialize.
	ErrNotInitialized = errors.New("memory service not initialized")

	// ErrSyncInProgress is returned when ForceSync is entered while a flush is running.
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrOffline is returned by ForceSync when the remote store cannot be tried.
	ErrOffline = errors.New("remote store offline")

	// ErrConsentDenied is returned when the user has not granted the scope that a
	// write needs.
	ErrConsentDenied = errors.New("consent denied")

	// ErrInvalidArgument marks writes rejected before reaching any backend.
	ErrInvalidArgument = errors.New("invalid argument")
)

// FallbackError reports a write that neither the remote store nor the local backend
// accepted. When a remote store is configured the write is still queued for replay.
type FallbackError struct {
	Op     models.SyncOp
	Entity models.EntityType
	Remote error
	Local  error
}

func (e *FallbackError) Error() string {
	if e.Remote != nil {
		return fmt.Sprintf("%s %s: remote: %v; local: %v", e.Op, e.Entity, e.Remote, e.Local)
	}
	return fmt.Sprintf("%s %s: local: %v", e.Op, e.Entity, e.Local)
}

func (e *FallbackError) Unwrap() []error {
	var errs []error
	if e.Local != nil {
		errs = append(errs, e.Local)
	}
	if e.Remote != nil {
		errs = append(errs, e.Remote)
	}
	return errs
}

// QueueExhaustedError reports a queued write that reached the retry limit. The item
// stays at the head of the queue.
type QueueExhaustedError struct {
	Item *models.SyncQueueItem
	Err  error
}

func (e *QueueExhaustedError) Error() string {
	return fmt.Sprintf("sync item %s (%s %s) exhausted after %d retries: %v",
		e.Item.ID, e.Item.Op, e.Item.Entity, e.Item.Retries, e.Err)
}

func (e *QueueExhaustedError) Unwrap() error {
	return e.Err
}
