package remote

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/kioku/internal/config"
	"github.com/hyperjump/kioku/internal/models"
)

// Store is the surface shared by every remote store implementation.
type Store interface {
	Ping(ctx context.Context) error

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

	Search(ctx context.Context, collection models.Collection, userID, query string, limit int) ([]*models.SearchResult, error)
	Close() error
}

var (
	_ Store = (*PostgresStore)(nil)
	_ Store = (*MemoryStore)(nil)
)

// New builds the remote store named by cfg. It returns (nil, nil) when no remote is
// configured, in which case the caller runs local-only.
func New(cfg config.RemoteConfig, logger *zap.Logger) (Store, error) {
	provider := Provider(cfg.Provider)
	if provider == "" && cfg.DSN != "" {
		provider = ProviderPostgres
	}

	switch provider {
	case "":
		return nil, nil
	case ProviderMemory:
		return NewMemoryStore(), nil
	case ProviderPostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("remote provider postgres requires a dsn")
		}
		s, err := NewPostgresStore(cfg.DSN, cfg.Timeout, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown remote provider: %s", cfg.Provider)
	}
}
