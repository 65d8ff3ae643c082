package remote

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hyperjump/kioku/internal/keyword"
	"github.com/hyperjump/kioku/internal/models"
)

// MemoryStore is an in-process remote store for tests and offline development.
// SetReachable(false) makes every call fail with ErrNetwork.
type MemoryStore struct {
	mu          sync.RWMutex
	unreachable bool

	profiles    map[string]models.Profile
	facts       map[string]models.Fact
	preferences map[string]map[string]models.Preference
	sessions    map[string]models.Session
	messages    map[string]models.Message
	consents    map[string]models.Consent
}

// NewMemoryStore returns an empty, reachable store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles:    make(map[string]models.Profile),
		facts:       make(map[string]models.Fact),
		preferences: make(map[string]map[string]models.Preference),
		sessions:    make(map[string]models.Session),
		messages:    make(map[string]models.Message),
		consents:    make(map[string]models.Consent),
	}
}

// SetReachable toggles simulated network availability.
func (m *MemoryStore) SetReachable(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unreachable = !ok
}

func (m *MemoryStore) check(op string) error {
	if m.unreachable {
		return fmt.Errorf("%w: %s", ErrNetwork, op)
	}
	return nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.check("ping")
}

func (m *MemoryStore) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check("get profile"); err != nil {
		return nil, err
	}
	p, ok := m.profiles[userID]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", userID, ErrNotFound)
	}
	return &p, nil
}

func (m *MemoryStore) UpsertProfile(ctx context.Context, p *models.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("upsert profile"); err != nil {
		return err
	}
	if old, ok := m.profiles[p.UserID]; ok {
		cp := *p
		cp.CreatedAt = old.CreatedAt
		m.profiles[p.UserID] = cp
		return nil
	}
	m.profiles[p.UserID] = *p
	return nil
}

func (m *MemoryStore) ListFacts(ctx context.Context, userID string) ([]*models.Fact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check("list facts"); err != nil {
		return nil, err
	}
	var out []*models.Fact
	for _, f := range m.facts {
		if f.UserID == userID {
			f := f
			out = append(out, &f)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryStore) UpsertFact(ctx context.Context, f *models.Fact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("upsert fact"); err != nil {
		return err
	}
	if old, ok := m.facts[f.ID]; ok && old.UserID != f.UserID {
		return nil
	}
	m.facts[f.ID] = *f
	return nil
}

func (m *MemoryStore) DeleteFact(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("delete fact"); err != nil {
		return err
	}
	if f, ok := m.facts[id]; ok && f.UserID == userID {
		delete(m.facts, id)
	}
	return nil
}

func (m *MemoryStore) ListPreferences(ctx context.Context, userID string) ([]*models.Preference, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check("list preferences"); err != nil {
		return nil, err
	}
	var out []*models.Preference
	for _, p := range m.preferences[userID] {
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *MemoryStore) UpsertPreference(ctx context.Context, p *models.Preference) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("upsert preference"); err != nil {
		return err
	}
	if m.preferences[p.UserID] == nil {
		m.preferences[p.UserID] = make(map[string]models.Preference)
	}
	m.preferences[p.UserID][p.Key] = *p
	return nil
}

func (m *MemoryStore) CreateSession(ctx context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("create session"); err != nil {
		return err
	}
	if _, ok := m.sessions[s.ID]; !ok {
		m.sessions[s.ID] = *s
	}
	return nil
}

func (m *MemoryStore) AddMessage(ctx context.Context, msg *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("add message"); err != nil {
		return err
	}
	if _, ok := m.messages[msg.ID]; !ok {
		m.messages[msg.ID] = *msg
	}
	return nil
}

func (m *MemoryStore) RecentMessages(ctx context.Context, userID, sessionID string, limit int) ([]*models.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check("recent messages"); err != nil {
		return nil, err
	}
	var out []*models.Message
	for _, msg := range m.messages {
		if msg.UserID != userID || (sessionID != "" && msg.SessionID != sessionID) {
			continue
		}
		msg := msg
		out = append(out, &msg)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (m *MemoryStore) GetConsent(ctx context.Context, userID string) (*models.Consent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check("get consent"); err != nil {
		return nil, err
	}
	c, ok := m.consents[userID]
	if !ok {
		return nil, fmt.Errorf("consent %s: %w", userID, ErrNotFound)
	}
	return &c, nil
}

func (m *MemoryStore) UpsertConsent(ctx context.Context, c *models.Consent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("upsert consent"); err != nil {
		return err
	}
	m.consents[c.UserID] = *c
	return nil
}

// Search scores the user's rows the same way PostgresStore does.
func (m *MemoryStore) Search(ctx context.Context, collection models.Collection, userID, query string, limit int) ([]*models.SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check("search"); err != nil {
		return nil, err
	}
	tokens := keyword.Tokenize(query)
	if len(tokens) == 0 || userID == "" || limit <= 0 {
		return nil, nil
	}

	var results []*models.SearchResult
	switch collection {
	case models.CollectionMessages:
		for _, msg := range m.messages {
			if msg.UserID == userID {
				results = append(results, remoteResult(msg.ID, collection, msg.Content, scoreContent(tokens, msg.Content), msg.CreatedAt))
			}
		}
	case models.CollectionFacts:
		for _, f := range m.facts {
			if f.UserID == userID {
				content := factContent(&f)
				results = append(results, remoteResult(f.ID, collection, content, scoreContent(tokens, content), f.CreatedAt))
			}
		}
	default:
		return nil, fmt.Errorf("unknown collection %q", collection)
	}
	return rankRemote(results, limit), nil
}

// Len returns the number of stored facts and messages.
func (m *MemoryStore) Len() (facts, messages int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.facts), len(m.messages)
}

func (m *MemoryStore) Close() error {
	return nil
}
