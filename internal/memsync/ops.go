package memsync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/kioku/internal/models"
	"github.com/hyperjump/kioku/internal/storage"
)

const defaultRecentMessages = 20

func now() time.Time {
	return time.Now().UTC()
}

// GetProfile returns the user's profile.
func (s *Service) GetProfile(ctx context.Context) (*models.Profile, error) {
	userID, err := s.Identity()
	if err != nil {
		return nil, err
	}
	return read(ctx, s, "get profile", func(ctx context.Context, b Backend) (*models.Profile, error) {
		return b.GetProfile(ctx, userID)
	})
}

// UpdateProfile stores p for the current user.
func (s *Service) UpdateProfile(ctx context.Context, p *models.Profile) (Outcome, error) {
	userID, err := s.Identity()
	if err != nil {
		return OutcomeFailed, err
	}
	t := now()
	p.UserID = userID
	if p.CreatedAt.IsZero() {
		p.CreatedAt = t
	}
	p.UpdatedAt = t
	return s.run(ctx, write{
		op:      models.OpUpdate,
		entity:  models.EntityProfile,
		userID:  userID,
		payload: p,
		apply:   func(ctx context.Context, b Backend) error { return b.UpsertProfile(ctx, p) },
	})
}

// GetFacts returns the user's facts and refreshes them in the search index.
func (s *Service) GetFacts(ctx context.Context) ([]*models.Fact, error) {
	userID, err := s.Identity()
	if err != nil {
		return nil, err
	}
	facts, err := read(ctx, s, "list facts", func(ctx context.Context, b Backend) ([]*models.Fact, error) {
		return b.ListFacts(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	docs := make([]*models.Document, len(facts))
	keep := make([]string, len(facts))
	for i, f := range facts {
		docs[i] = models.FactDocument(f)
		keep[i] = f.ID
	}
	s.indexBatch(ctx, docs)
	if s.index != nil {
		// Facts deleted elsewhere must stop matching searches.
		if n, err := s.index.Prune(ctx, models.CollectionFacts, userID, keep); err != nil {
			s.logger.Warn("failed to prune stale facts", zap.Error(err))
		} else if n > 0 {
			s.logger.Debug("pruned stale facts from index", zap.Int("count", n))
		}
	}
	return facts, nil
}

// FactID is the id a fact gets when SetFact is called without one, so setting the
// same category and key again overwrites it.
func FactID(userID, category, key string) string {
	return uuid.NewSHA1(userNamespace, []byte(userID+"\x00"+category+"\x00"+key)).String()
}

// SetFact creates or replaces a fact. Missing id, confidence and timestamps are filled in.
func (s *Service) SetFact(ctx context.Context, f *models.Fact) (Outcome, error) {
	userID, err := s.Identity()
	if err != nil {
		return OutcomeFailed, err
	}
	f.Category = strings.TrimSpace(f.Category)
	f.Key = strings.TrimSpace(f.Key)
	if f.Category == "" || f.Key == "" {
		return OutcomeFailed, fmt.Errorf("set fact: %w: category and key are required", ErrInvalidArgument)
	}
	t := now()
	f.UserID = userID
	if f.ID == "" {
		f.ID = FactID(userID, f.Category, f.Key)
	}
	if f.Confidence == 0 {
		f.Confidence = 1
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = t
	}
	f.UpdatedAt = t

	outcome, err := s.run(ctx, write{
		op:      models.OpUpdate,
		entity:  models.EntityFact,
		userID:  userID,
		payload: f,
		apply:   func(ctx context.Context, b Backend) error { return b.UpsertFact(ctx, f) },
	})
	s.indexDocument(ctx, models.FactDocument(f))
	return outcome, err
}

// DeleteFact removes a fact by id.
func (s *Service) DeleteFact(ctx context.Context, id string) (Outcome, error) {
	userID, err := s.Identity()
	if err != nil {
		return OutcomeFailed, err
	}
	if id == "" {
		return OutcomeFailed, fmt.Errorf("delete fact: %w: empty id", ErrInvalidArgument)
	}
	outcome, err := s.run(ctx, write{
		op:      models.OpDelete,
		entity:  models.EntityFact,
		userID:  userID,
		payload: models.FactRef{UserID: userID, ID: id},
		apply:   func(ctx context.Context, b Backend) error { return b.DeleteFact(ctx, userID, id) },
	})
	if s.index != nil {
		if rmErr := s.index.Remove(ctx, models.CollectionFacts, id); rmErr != nil {
			s.logger.Warn("failed to remove fact from index", zap.String("id", id), zap.Error(rmErr))
		}
	}
	return outcome, err
}

// GetPreferences returns the user's preferences.
func (s *Service) GetPreferences(ctx context.Context) ([]*models.Preference, error) {
	userID, err := s.Identity()
	if err != nil {
		return nil, err
	}
	return read(ctx, s, "list preferences", func(ctx context.Context, b Backend) ([]*models.Preference, error) {
		return b.ListPreferences(ctx, userID)
	})
}

// SetPreference stores one preference.
func (s *Service) SetPreference(ctx context.Context, key, value string) (Outcome, error) {
	userID, err := s.Identity()
	if err != nil {
		return OutcomeFailed, err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return OutcomeFailed, fmt.Errorf("set preference: %w: empty key", ErrInvalidArgument)
	}
	p := &models.Preference{UserID: userID, Key: key, Value: value, UpdatedAt: now()}
	return s.run(ctx, write{
		op:      models.OpUpdate,
		entity:  models.EntityPreference,
		userID:  userID,
		payload: p,
		apply:   func(ctx context.Context, b Backend) error { return b.UpsertPreference(ctx, p) },
	})
}

// StartSession opens a new chat session.
func (s *Service) StartSession(ctx context.Context, title string) (*models.Session, Outcome, error) {
	userID, err := s.Identity()
	if err != nil {
		return nil, OutcomeFailed, err
	}
	sess := &models.Session{ID: uuid.NewString(), UserID: userID, Title: strings.TrimSpace(title), StartedAt: now()}
	outcome, err := s.run(ctx, write{
		op:      models.OpCreate,
		entity:  models.EntitySession,
		userID:  userID,
		payload: sess,
		apply:   func(ctx context.Context, b Backend) error { return b.CreateSession(ctx, sess) },
	})
	return sess, outcome, err
}

// AddMessage stores a chat message if the user consented to its content class.
// A screenshot without screenshot consent is dropped from the message.
func (s *Service) AddMessage(ctx context.Context, m *models.Message) (Outcome, error) {
	userID, err := s.Identity()
	if err != nil {
		return OutcomeFailed, err
	}
	if m.SessionID == "" {
		return OutcomeFailed, fmt.Errorf("add message: %w: empty session id", ErrInvalidArgument)
	}
	if !m.Role.Valid() {
		return OutcomeFailed, fmt.Errorf("add message: %w: unknown role %q", ErrInvalidArgument, m.Role)
	}

	consent := s.currentConsent()
	if scope, gated := models.ScopeForRole(m.Role); gated && !consent.Allows(scope) {
		return OutcomeFailed, fmt.Errorf("add %s message: %w: %s", m.Role, ErrConsentDenied, scope)
	}
	if m.Screenshot != "" && !consent.Allows(models.ScopeScreenshots) {
		s.logger.Debug("screenshot dropped without consent", zap.String("session_id", m.SessionID))
		m.Screenshot = ""
	}

	m.UserID = userID
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now()
	}

	outcome, err := s.run(ctx, write{
		op:      models.OpCreate,
		entity:  models.EntityMessage,
		userID:  userID,
		payload: m,
		apply:   func(ctx context.Context, b Backend) error { return b.AddMessage(ctx, m) },
	})
	s.indexDocument(ctx, models.MessageDocument(m))
	return outcome, err
}

// GetRecentMessages returns up to limit of the latest messages, oldest first. An
// empty sessionID spans every session.
func (s *Service) GetRecentMessages(ctx context.Context, sessionID string, limit int) ([]*models.Message, error) {
	userID, err := s.Identity()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultRecentMessages
	}
	msgs, err := read(ctx, s, "recent messages", func(ctx context.Context, b Backend) ([]*models.Message, error) {
		return b.RecentMessages(ctx, userID, sessionID, limit)
	})
	if err != nil {
		return nil, err
	}
	docs := make([]*models.Document, len(msgs))
	for i, m := range msgs {
		docs[i] = models.MessageDocument(m)
	}
	s.indexBatch(ctx, docs)
	return msgs, nil
}

func (s *Service) readConsent(ctx context.Context, userID string) (*models.Consent, error) {
	c, err := read(ctx, s, "get consent", func(ctx context.Context, b Backend) (*models.Consent, error) {
		return b.GetConsent(ctx, userID)
	})
	if errors.Is(err, storage.ErrNotFound) {
		return &models.Consent{UserID: userID}, nil
	}
	return c, err
}

// GetConsent returns the user's consent flags. A user who never set consent gets
// every scope denied.
func (s *Service) GetConsent(ctx context.Context) (*models.Consent, error) {
	userID, err := s.Identity()
	if err != nil {
		return nil, err
	}
	c, err := s.readConsent(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.consent = *c
	s.mu.Unlock()
	return c, nil
}

// UpdateConsent replaces the user's consent flags. The new flags gate writes
// immediately, whatever the outcome of the write.
func (s *Service) UpdateConsent(ctx context.Context, c models.Consent) (Outcome, error) {
	userID, err := s.Identity()
	if err != nil {
		return OutcomeFailed, err
	}
	c.UserID = userID
	c.UpdatedAt = now()

	s.mu.Lock()
	s.consent = c
	s.mu.Unlock()

	return s.run(ctx, write{
		op:      models.OpUpdate,
		entity:  models.EntityConsent,
		userID:  userID,
		payload: &c,
		apply:   func(ctx context.Context, b Backend) error { return b.UpsertConsent(ctx, &c) },
	})
}

func (s *Service) currentConsent() models.Consent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.consent
}

func (s *Service) indexDocument(ctx context.Context, doc *models.Document) {
	if s.index == nil {
		return
	}
	if err := s.index.IndexDocument(ctx, doc, true); err != nil {
		s.logger.Warn("failed to index document",
			zap.String("collection", string(doc.Collection)),
			zap.String("id", doc.ID),
			zap.Error(err))
	}
}

func (s *Service) indexBatch(ctx context.Context, docs []*models.Document) {
	if s.index == nil || len(docs) == 0 {
		return
	}
	if err := s.index.IndexBatch(ctx, docs, true); err != nil {
		s.logger.Warn("failed to index documents", zap.Int("count", len(docs)), zap.Error(err))
	}
}
