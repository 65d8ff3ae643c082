package memsync

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kioku/internal/models"
)

// ForceSync replays the queue against the remote store in FIFO order. It stops at the
// first failure so later writes never overtake earlier ones; the failed item's retry
// count is bumped, and once it reaches MaxRetries a *QueueExhaustedError is returned.
func (s *Service) ForceSync(ctx context.Context) error {
	if _, err := s.Identity(); err != nil {
		return err
	}
	if !s.online() {
		return ErrOffline
	}
	if !s.syncing.CompareAndSwap(false, true) {
		return ErrSyncInProgress
	}
	defer s.syncing.Store(false)

	items := s.queue.snapshot()
	start := time.Now()
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.replay(ctx, item)
		if err == nil {
			s.queue.remove(ctx, item.ID)
			continue
		}

		item.Retries++
		item.LastError = err.Error()
		s.queue.update(ctx, item)
		s.remoteFailed("replay "+string(item.Op)+" "+string(item.Entity), err)
		s.recordSync(err)

		s.logger.Warn("sync stopped",
			zap.String("id", item.ID),
			zap.Int("replayed", i),
			zap.Int("remaining", len(items)-i),
			zap.Int("retries", item.Retries))
		if item.Retries >= s.cfg.MaxRetries {
			return &QueueExhaustedError{Item: item, Err: err}
		}
		return fmt.Errorf("replay %s %s %s: %w", item.Op, item.Entity, item.ID, err)
	}

	s.recordSync(nil)
	if len(items) > 0 {
		s.logger.Info("sync complete",
			zap.Int("replayed", len(items)),
			zap.Duration("took", time.Since(start)))
	}
	return nil
}

func (s *Service) recordSync(err error) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	if err != nil {
		s.lastError = err.Error()
		return
	}
	t := now()
	s.lastSyncAt = &t
	s.lastError = ""
}

// replay decodes item's payload into its entity type and applies it to the remote.
func (s *Service) replay(ctx context.Context, item *models.SyncQueueItem) error {
	b := s.remote
	switch item.Entity {
	case models.EntityProfile:
		var p models.Profile
		if err := decodePayload(item, &p); err != nil {
			return err
		}
		return b.UpsertProfile(ctx, &p)
	case models.EntityFact:
		if item.Op == models.OpDelete {
			var ref models.FactRef
			if err := decodePayload(item, &ref); err != nil {
				return err
			}
			return b.DeleteFact(ctx, ref.UserID, ref.ID)
		}
		var f models.Fact
		if err := decodePayload(item, &f); err != nil {
			return err
		}
		return b.UpsertFact(ctx, &f)
	case models.EntityPreference:
		var p models.Preference
		if err := decodePayload(item, &p); err != nil {
			return err
		}
		return b.UpsertPreference(ctx, &p)
	case models.EntitySession:
		var sess models.Session
		if err := decodePayload(item, &sess); err != nil {
			return err
		}
		return b.CreateSession(ctx, &sess)
	case models.EntityMessage:
		var m models.Message
		if err := decodePayload(item, &m); err != nil {
			return err
		}
		return b.AddMessage(ctx, &m)
	case models.EntityConsent:
		var c models.Consent
		if err := decodePayload(item, &c); err != nil {
			return err
		}
		return b.UpsertConsent(ctx, &c)
	default:
		return fmt.Errorf("unknown sync entity %q", item.Entity)
	}
}

func decodePayload(item *models.SyncQueueItem, v any) error {
	if err := json.Unmarshal(item.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", item.Entity, err)
	}
	return nil
}
