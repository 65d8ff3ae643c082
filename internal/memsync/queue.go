package memsync

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/kioku/internal/models"
)

// queue is the FIFO of writes awaiting the remote. The in-memory slice is the source
// of truth for this process; store mirrors it so a restart can pick it up.
type queue struct {
	mu     sync.Mutex
	items  []*models.SyncQueueItem
	store  QueueStore
	logger *zap.Logger
}

func copyItem(it *models.SyncQueueItem) *models.SyncQueueItem {
	cp := *it
	cp.Payload = append([]byte(nil), it.Payload...)
	return &cp
}

func (q *queue) restore(ctx context.Context) error {
	if q.store == nil {
		return nil
	}
	items, err := q.store.ListSyncItems(ctx)
	if err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	known := make(map[string]bool, len(q.items))
	for _, it := range q.items {
		known[it.ID] = true
	}
	restored := make([]*models.SyncQueueItem, 0, len(items)+len(q.items))
	for _, it := range items {
		if !known[it.ID] {
			restored = append(restored, it)
		}
	}
	q.items = append(restored, q.items...)
	return nil
}

func (q *queue) push(ctx context.Context, item *models.SyncQueueItem) {
	q.mu.Lock()
	q.items = append(q.items, copyItem(item))
	q.mu.Unlock()

	if q.store == nil {
		return
	}
	if err := q.store.EnqueueSyncItem(ctx, item); err != nil {
		q.logger.Warn("sync item kept in memory only",
			zap.String("id", item.ID),
			zap.String("entity", string(item.Entity)),
			zap.Error(err))
	}
}

func (q *queue) snapshot() []*models.SyncQueueItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*models.SyncQueueItem, len(q.items))
	for i, it := range q.items {
		out[i] = copyItem(it)
	}
	return out
}

func (q *queue) remove(ctx context.Context, id string) {
	q.mu.Lock()
	for i, it := range q.items {
		if it.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			break
		}
	}
	q.mu.Unlock()

	if q.store == nil {
		return
	}
	if err := q.store.DeleteSyncItem(ctx, id); err != nil {
		q.logger.Warn("failed to delete persisted sync item", zap.String("id", id), zap.Error(err))
	}
}

func (q *queue) update(ctx context.Context, item *models.SyncQueueItem) {
	q.mu.Lock()
	for i, it := range q.items {
		if it.ID == item.ID {
			q.items[i] = copyItem(item)
			break
		}
	}
	q.mu.Unlock()

	if q.store == nil {
		return
	}
	if err := q.store.UpdateSyncItem(ctx, item); err != nil {
		q.logger.Warn("failed to update persisted sync item", zap.String("id", item.ID), zap.Error(err))
	}
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
