package memsync

import (
	"context"

	"github.com/hyperjump/kioku/internal/connectivity"
	"github.com/hyperjump/kioku/internal/index"
	"github.com/hyperjump/kioku/internal/models"
	"github.com/hyperjump/kioku/internal/remote"
	"github.com/hyperjump/kioku/internal/storage"
)

// Backend is the entity CRUD surface shared by the remote store and the local
// persistence backend.
type Backend interface {
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	UpsertProfile(ctx context.Context, p *models.Profile) error
	ListFacts(ctx context.Context, userID string) ([]*models.Fact, error)
	UpsertFact(ctx context.Context, f *models.Fact) error
	DeleteFact(ctx context.Context, userID, id string) error
	ListPreferences(ctx context.Context, userID string) ([]*models.Preference, error)
	UpsertPreference(ctx context.Context, p *models.Preference) error
	CreateSession(ctx context.Context, s *models.Session) error
	AddMessage(ctx context.Context, m *models.Message) error
	RecentMessages(ctx context.Context, userID, sessionID string, limit int) ([]*models.Message, error)
	GetConsent(ctx context.Context, userID string) (*models.Consent, error)
	UpsertConsent(ctx context.Context, c *models.Consent) error
}

// QueueStore persists the sync queue across restarts.
type QueueStore interface {
	EnqueueSyncItem(ctx context.Context, item *models.SyncQueueItem) error
	ListSyncItems(ctx context.Context) ([]*models.SyncQueueItem, error)
	UpdateSyncItem(ctx context.Context, item *models.SyncQueueItem) error
	DeleteSyncItem(ctx context.Context, id string) error
}

// Indexer receives facts and messages so local search stays fresh.
type Indexer interface {
	IndexDocument(ctx context.Context, doc *models.Document, withEmbedding bool) error
	IndexBatch(ctx context.Context, docs []*models.Document, withEmbedding bool) error
	Remove(ctx context.Context, name models.Collection, id string) error
	Prune(ctx context.Context, name models.Collection, userID string, keep []string) (int, error)
}

// Connectivity is the online signal the service consults before remote calls.
type Connectivity interface {
	IsOnline() bool
	SetOnline(online bool)
	Subscribe(fn func(online bool)) (unsubscribe func())
}

var (
	_ Backend      = (remote.Store)(nil)
	_ Backend      = (*storage.SQLiteStore)(nil)
	_ QueueStore   = (*storage.SQLiteStore)(nil)
	_ Indexer      = (*index.Index)(nil)
	_ Connectivity = (*connectivity.Monitor)(nil)
)
