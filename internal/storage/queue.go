package storage

import (
	"context"
	"fmt"

	"github.com/hyperjump/kioku/internal/models"
)

// EnqueueSyncItem appends item to the persisted queue.
func (s *SQLiteStore) EnqueueSyncItem(ctx context.Context, item *models.SyncQueueItem) error {
	if item.EnqueuedAt.IsZero() {
		item.EnqueuedAt = now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sync_queue (id, op, entity, user_id, payload, enqueued_at, retries, last_error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, string(item.Op), string(item.Entity), item.UserID, string(item.Payload),
		item.EnqueuedAt, item.Retries, item.LastError,
	)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", item.ID, err)
	}
	return nil
}

// ListSyncItems returns the persisted queue in enqueue order.
func (s *SQLiteStore) ListSyncItems(ctx context.Context) ([]*models.SyncQueueItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, op, entity, user_id, payload, enqueued_at, retries, last_error
		 FROM sync_queue ORDER BY seq`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.SyncQueueItem
	for rows.Next() {
		var it models.SyncQueueItem
		var op, entity, payload string
		if err := rows.Scan(&it.ID, &op, &entity, &it.UserID, &payload, &it.EnqueuedAt, &it.Retries, &it.LastError); err != nil {
			return nil, err
		}
		it.Op = models.SyncOp(op)
		it.Entity = models.EntityType(entity)
		it.Payload = []byte(payload)
		items = append(items, &it)
	}
	return items, rows.Err()
}

// UpdateSyncItem stores the retry count and last error of item.
func (s *SQLiteStore) UpdateSyncItem(ctx context.Context, item *models.SyncQueueItem) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sync_queue SET retries = ?, last_error = ? WHERE id = ?`,
		item.Retries, item.LastError, item.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("sync item %s: %w", item.ID, ErrNotFound)
	}
	return nil
}

// DeleteSyncItem removes a delivered item.
func (s *SQLiteStore) DeleteSyncItem(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sync_queue WHERE id = ?`, id)
	return err
}

// CountSyncItems returns the persisted queue length.
func (s *SQLiteStore) CountSyncItems(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sync_queue`).Scan(&count)
	return count, err
}
