// Package memsync keeps the remote store and the local persistence backend consistent
// under intermittent connectivity.
//
// Every write goes through a fallback chain: the remote store when online, then the
// local backend, with unconfirmed writes queued for FIFO replay by ForceSync. Reads
// prefer the remote store and fall back to the local backend.
package memsync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/kioku/internal/models"
	"github.com/hyperjump/kioku/pkg/utils"
)

// userNamespace scopes the user ids derived from device identifiers.
var userNamespace = uuid.MustParse("5b0e6a8c-3f4d-4e1a-9c27-8d61f0b2a4e9")

// Config tunes the service.
type Config struct {
	// MaxRetries is how often a queued write may fail before ForceSync reports it
	// as exhausted.
	MaxRetries int
	// AutoSync flushes the queue when connectivity comes back.
	AutoSync bool
	// Interval is the period of background flushes in Start. Zero disables them.
	Interval time.Duration
}

// Deps are the collaborators of a Service. Remote, Queue, Index and Conn may be nil.
type Deps struct {
	Remote Backend
	Local  Backend
	Queue  QueueStore
	Index  Indexer
	Conn   Connectivity
	Logger *zap.Logger
}

// Service is the memory synchronization layer for one device user.
type Service struct {
	remote Backend
	local  Backend
	index  Indexer
	conn   Connectivity
	cfg    Config
	logger *zap.Logger
	queue  *queue

	mu      sync.RWMutex
	userID  string
	consent models.Consent

	syncing    atomic.Bool
	statusMu   sync.Mutex
	lastSyncAt *time.Time
	lastError  string

	trigger   chan struct{}
	stop      chan struct{}
	closeOnce sync.Once
}

// New creates a service. Initialize must be called before any other operation.
func New(deps Deps, cfg Config) *Service {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	logger := utils.OrNop(deps.Logger)
	return &Service{
		remote:  deps.Remote,
		local:   deps.Local,
		index:   deps.Index,
		conn:    deps.Conn,
		cfg:     cfg,
		logger:  logger,
		queue:   &queue{store: deps.Queue, logger: logger},
		trigger: make(chan struct{}, 1),
		stop:    make(chan struct{}),
	}
}

// UserIDForDevice derives the stable user id for a device identifier.
func UserIDForDevice(deviceID string) string {
	return uuid.NewSHA1(userNamespace, []byte(deviceID)).String()
}

// Initialize binds the service to the user derived from deviceID, restores the
// persisted sync queue and loads consent. Missing consent denies every scope.
func (s *Service) Initialize(ctx context.Context, deviceID string) (string, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return "", fmt.Errorf("initialize: %w: empty device id", ErrInvalidArgument)
	}
	userID := UserIDForDevice(deviceID)

	if err := s.queue.restore(ctx); err != nil {
		s.logger.Warn("failed to restore sync queue", zap.Error(err))
	}

	consent, err := s.readConsent(ctx, userID)
	if err != nil {
		s.logger.Warn("consent unavailable, denying all scopes", zap.Error(err))
		consent = &models.Consent{UserID: userID}
	}

	s.mu.Lock()
	s.userID = userID
	s.consent = *consent
	s.mu.Unlock()

	s.logger.Info("memory service initialized",
		zap.String("user_id", userID),
		zap.Int("queued", s.queue.len()))
	return userID, nil
}

// Identity returns the current user id.
func (s *Service) Identity() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.userID == "" {
		return "", ErrNotInitialized
	}
	return s.userID, nil
}

func (s *Service) online() bool {
	return s.remote != nil && s.conn != nil && s.conn.IsOnline()
}

// GetSyncStatus reports connectivity, queue length and the last flush result.
func (s *Service) GetSyncStatus() models.SyncStatus {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	st := models.SyncStatus{
		IsOnline:       s.online(),
		QueueLength:    s.queue.len(),
		SyncInProgress: s.syncing.Load(),
		LastError:      s.lastError,
	}
	if s.lastSyncAt != nil {
		t := *s.lastSyncAt
		st.LastSyncAt = &t
	}
	return st
}

// Start runs background flushes until ctx is done or Close is called: on every
// reconnect when AutoSync is set, and every Interval when it is positive.
func (s *Service) Start(ctx context.Context) {
	if s.cfg.AutoSync && s.conn != nil {
		unsubscribe := s.conn.Subscribe(func(online bool) {
			if !online {
				return
			}
			select {
			case s.trigger <- struct{}{}:
			default:
			}
		})
		defer unsubscribe()
	}

	var tick <-chan time.Time
	if s.cfg.Interval > 0 {
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-s.trigger:
			s.backgroundSync(ctx)
		case <-tick:
			if s.queue.len() > 0 {
				s.backgroundSync(ctx)
			}
		}
	}
}

func (s *Service) backgroundSync(ctx context.Context) {
	err := s.ForceSync(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrOffline), errors.Is(err, ErrSyncInProgress), errors.Is(err, ErrNotInitialized):
		s.logger.Debug("background sync skipped", zap.Error(err))
	default:
		s.logger.Warn("background sync failed", zap.Error(err))
	}
}

// Close stops Start. Queued writes stay persisted for the next run.
func (s *Service) Close() error {
	s.closeOnce.Do(func() { close(s.stop) })
	return nil
}
