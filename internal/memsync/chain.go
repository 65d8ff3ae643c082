package memsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/kioku/internal/models"
	"github.com/hyperjump/kioku/internal/remote"
	"github.com/hyperjump/kioku/internal/storage"
)

var errNoLocalBackend = errors.New("no local backend")

// write is one entity write routed through the fallback chain.
type write struct {
	op      models.SyncOp
	entity  models.EntityType
	userID  string
	payload any
	apply   func(ctx context.Context, b Backend) error
}

// run walks the chain: remote, then local, then the queue.
//
// A non-empty queue sends the write straight to the local backend and the queue so
// replay keeps writes to the same entity in order.
func (s *Service) run(ctx context.Context, w write) (Outcome, error) {
	var remoteErr error
	if s.online() {
		if s.queue.len() == 0 {
			remoteErr = w.apply(ctx, s.remote)
			if remoteErr == nil {
				s.mirrorLocal(ctx, w)
				return OutcomeRemoteConfirmed, nil
			}
			s.remoteFailed(string(w.op)+" "+string(w.entity), remoteErr)
		} else {
			s.logger.Debug("queue not empty, deferring write",
				zap.String("entity", string(w.entity)),
				zap.Int("queued", s.queue.len()))
		}
	}

	localErr := errNoLocalBackend
	if s.local != nil {
		localErr = w.apply(ctx, s.local)
	}

	if s.remote == nil {
		if localErr != nil {
			return OutcomeFailed, &FallbackError{Op: w.op, Entity: w.entity, Local: localErr}
		}
		return OutcomeLocalApplied, nil
	}

	item, err := newQueueItem(w)
	if err != nil {
		return OutcomeFailed, err
	}
	s.queue.push(ctx, item)

	if localErr != nil {
		s.logger.Error("write failed on both backends, queued",
			zap.String("op", string(w.op)),
			zap.String("entity", string(w.entity)),
			zap.NamedError("remote_error", remoteErr),
			zap.NamedError("local_error", localErr))
		return OutcomeFailed, &FallbackError{Op: w.op, Entity: w.entity, Remote: remoteErr, Local: localErr}
	}
	return OutcomeQueued, nil
}

// mirrorLocal copies a remote-confirmed write to the local backend so offline reads
// see it. Failures only cost freshness.
func (s *Service) mirrorLocal(ctx context.Context, w write) {
	if s.local == nil {
		return
	}
	if err := w.apply(ctx, s.local); err != nil {
		s.logger.Debug("local mirror failed",
			zap.String("entity", string(w.entity)),
			zap.Error(err))
	}
}

func (s *Service) remoteFailed(op string, err error) {
	s.logger.Warn("remote call failed",
		zap.String("op", op),
		zap.Error(err))
	if errors.Is(err, remote.ErrNetwork) && s.conn != nil {
		s.conn.SetOnline(false)
	}
}

func newQueueItem(w write) (*models.SyncQueueItem, error) {
	payload, err := json.Marshal(w.payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", w.entity, err)
	}
	return &models.SyncQueueItem{
		ID:         uuid.NewString(),
		Op:         w.op,
		Entity:     w.entity,
		UserID:     w.userID,
		Payload:    payload,
		EnqueuedAt: time.Now().UTC(),
	}, nil
}

// read returns fn's result from the remote store when it can be trusted, else from
// the local backend. A remote not-found is an answer, not a failure.
func read[T any](ctx context.Context, s *Service, op string, fn func(ctx context.Context, b Backend) (T, error)) (T, error) {
	var zero T
	var remoteErr error
	if s.online() && s.queue.len() == 0 {
		v, err := fn(ctx, s.remote)
		if err == nil || errors.Is(err, storage.ErrNotFound) {
			return v, err
		}
		remoteErr = err
		s.remoteFailed(op, err)
	}

	if s.local == nil {
		if remoteErr != nil {
			return zero, fmt.Errorf("%s: %w", op, remoteErr)
		}
		return zero, fmt.Errorf("%s: %w", op, errNoLocalBackend)
	}
	v, err := fn(ctx, s.local)
	if err != nil {
		if remoteErr != nil && !errors.Is(err, storage.ErrNotFound) {
			return zero, fmt.Errorf("%s: remote: %v; local: %w", op, remoteErr, err)
		}
		return zero, err
	}
	return v, nil
}
