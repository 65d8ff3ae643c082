package remote

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/hyperjump/kioku/internal/keyword"
	"github.com/hyperjump/kioku/internal/models"
	"github.com/hyperjump/kioku/internal/remote/migrations"
	"github.com/hyperjump/kioku/pkg/utils"
)

// PostgresStore talks to the remote Postgres database through the pgx stdlib driver.
// The connection is lazy: construction never touches the network, and migrations run
// on the first successful round trip.
type PostgresStore struct {
	db      *sql.DB
	timeout time.Duration
	logger  *zap.Logger

	mu       sync.Mutex
	migrated bool
}

// NewPostgresStore opens a connection pool for dsn. timeout bounds every call.
func NewPostgresStore(dsn string, timeout time.Duration, logger *zap.Logger) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PostgresStore{db: db, timeout: timeout, logger: utils.OrNop(logger)}, nil
}

// classify wraps connection-level failures in ErrNetwork. Errors reported by the
// server itself are returned as they are.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrNetwork, op, err)
}

func (s *PostgresStore) ready(ctx context.Context) (context.Context, context.CancelFunc, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	if err := s.migrate(ctx); err != nil {
		cancel()
		return nil, nil, err
	}
	return ctx, cancel, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.migrated {
		return nil
	}

	files, err := fs.Glob(migrations.Postgres, "postgres/*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(files)
	for _, name := range files {
		data, err := migrations.Postgres.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return classify("exec migration "+name, err)
		}
	}
	s.migrated = true
	s.logger.Info("remote schema ready", zap.Int("migrations", len(files)))
	return nil
}

// Ping checks that the remote store is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return classify("ping", s.db.PingContext(ctx))
}

// GetProfile returns the profile of userID.
func (s *PostgresStore) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	ctx, cancel, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	var p models.Profile
	err = s.db.QueryRowContext(ctx, `
		SELECT user_id, display_name, email, locale, created_at, updated_at
		FROM profiles WHERE user_id = $1`, userID,
	).Scan(&p.UserID, &p.DisplayName, &p.Email, &p.Locale, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, classify("get profile", err)
	}
	return &p, nil
}

// UpsertProfile inserts or replaces a profile.
func (s *PostgresStore) UpsertProfile(ctx context.Context, p *models.Profile) error {
	ctx, cancel, err := s.ready(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, display_name, email, locale, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			email = EXCLUDED.email,
			locale = EXCLUDED.locale,
			updated_at = EXCLUDED.updated_at`,
		p.UserID, p.DisplayName, p.Email, p.Locale, p.CreatedAt, p.UpdatedAt,
	)
	return classify("upsert profile", err)
}

// ListFacts returns the facts of userID, most recently updated first.
func (s *PostgresStore) ListFacts(ctx context.Context, userID string) ([]*models.Fact, error) {
	ctx, cancel, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, category, key, value, confidence, created_at, updated_at
		FROM facts WHERE user_id = $1 ORDER BY updated_at DESC, id`, userID)
	if err != nil {
		return nil, classify("list facts", err)
	}
	defer rows.Close()

	var facts []*models.Fact
	for rows.Next() {
		var f models.Fact
		if err := rows.Scan(&f.ID, &f.UserID, &f.Category, &f.Key, &f.Value, &f.Confidence, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, classify("scan fact", err)
		}
		facts = append(facts, &f)
	}
	return facts, classify("list facts", rows.Err())
}

// UpsertFact inserts or replaces a fact owned by f.UserID.
func (s *PostgresStore) UpsertFact(ctx context.Context, f *models.Fact) error {
	ctx, cancel, err := s.ready(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO facts (id, user_id, category, key, value, confidence, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			category = EXCLUDED.category,
			key = EXCLUDED.key,
			value = EXCLUDED.value,
			confidence = EXCLUDED.confidence,
			updated_at = EXCLUDED.updated_at
		WHERE facts.user_id = EXCLUDED.user_id`,
		f.ID, f.UserID, f.Category, f.Key, f.Value, f.Confidence, f.CreatedAt, f.UpdatedAt,
	)
	return classify("upsert fact", err)
}

// DeleteFact removes a fact of userID.
func (s *PostgresStore) DeleteFact(ctx context.Context, userID, id string) error {
	ctx, cancel, err := s.ready(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	_, err = s.db.ExecContext(ctx, `DELETE FROM facts WHERE user_id = $1 AND id = $2`, userID, id)
	return classify("delete fact", err)
}

// ListPreferences returns the preferences of userID ordered by key.
func (s *PostgresStore) ListPreferences(ctx context.Context, userID string) ([]*models.Preference, error) {
	ctx, cancel, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, key, value, updated_at FROM preferences
		WHERE user_id = $1 ORDER BY key`, userID)
	if err != nil {
		return nil, classify("list preferences", err)
	}
	defer rows.Close()

	var prefs []*models.Preference
	for rows.Next() {
		var p models.Preference
		if err := rows.Scan(&p.UserID, &p.Key, &p.Value, &p.UpdatedAt); err != nil {
			return nil, classify("scan preference", err)
		}
		prefs = append(prefs, &p)
	}
	return prefs, classify("list preferences", rows.Err())
}

// UpsertPreference inserts or replaces a preference.
func (s *PostgresStore) UpsertPreference(ctx context.Context, p *models.Preference) error {
	ctx, cancel, err := s.ready(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO preferences (user_id, key, value, updated_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at`,
		p.UserID, p.Key, p.Value, p.UpdatedAt,
	)
	return classify("upsert preference", err)
}

// CreateSession inserts a session; replays of the same session are ignored.
func (s *PostgresStore) CreateSession(ctx context.Context, sess *models.Session) error {
	ctx, cancel, err := s.ready(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, title, started_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING`,
		sess.ID, sess.UserID, sess.Title, sess.StartedAt,
	)
	return classify("create session", err)
}

// AddMessage inserts a message; replays of the same message are ignored.
func (s *PostgresStore) AddMessage(ctx context.Context, m *models.Message) error {
	ctx, cancel, err := s.ready(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO messages (id, session_id, user_id, role, content, screenshot, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`,
		m.ID, m.SessionID, m.UserID, string(m.Role), m.Content, m.Screenshot, m.CreatedAt,
	)
	return classify("add message", err)
}

// RecentMessages returns up to limit of the newest messages of userID in chronological
// order. An empty sessionID spans all sessions.
func (s *PostgresStore) RecentMessages(ctx context.Context, userID, sessionID string, limit int) ([]*models.Message, error) {
	ctx, cancel, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, user_id, role, content, screenshot, created_at FROM (
			SELECT * FROM messages
			WHERE user_id = $1 AND ($2::text = '' OR session_id = $2::text)
			ORDER BY created_at DESC, id DESC LIMIT $3
		) recent ORDER BY created_at, id`,
		userID, sessionID, limit,
	)
	if err != nil {
		return nil, classify("recent messages", err)
	}
	defer rows.Close()

	var msgs []*models.Message
	for rows.Next() {
		var m models.Message
		var role string
		if err := rows.Scan(&m.ID, &m.SessionID, &m.UserID, &role, &m.Content, &m.Screenshot, &m.CreatedAt); err != nil {
			return nil, classify("scan message", err)
		}
		m.Role = models.Role(role)
		msgs = append(msgs, &m)
	}
	return msgs, classify("recent messages", rows.Err())
}

// GetConsent returns the consent flags of userID.
func (s *PostgresStore) GetConsent(ctx context.Context, userID string) (*models.Consent, error) {
	ctx, cancel, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	var c models.Consent
	err = s.db.QueryRowContext(ctx, `
		SELECT user_id, prompts, outputs, tools, screenshots, updated_at
		FROM consents WHERE user_id = $1`, userID,
	).Scan(&c.UserID, &c.Prompts, &c.Outputs, &c.Tools, &c.Screenshots, &c.UpdatedAt)
	if err != nil {
		return nil, classify("get consent", err)
	}
	return &c, nil
}

// UpsertConsent inserts or replaces the consent flags.
func (s *PostgresStore) UpsertConsent(ctx context.Context, c *models.Consent) error {
	ctx, cancel, err := s.ready(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO consents (user_id, prompts, outputs, tools, screenshots, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			prompts = EXCLUDED.prompts,
			outputs = EXCLUDED.outputs,
			tools = EXCLUDED.tools,
			screenshots = EXCLUDED.screenshots,
			updated_at = EXCLUDED.updated_at`,
		c.UserID, c.Prompts, c.Outputs, c.Tools, c.Screenshots, c.UpdatedAt,
	)
	return classify("upsert consent", err)
}

// Search fetches the user's rows containing any query token and scores them by the
// fraction of query tokens they contain.
func (s *PostgresStore) Search(ctx context.Context, collection models.Collection, userID, query string, limit int) ([]*models.SearchResult, error) {
	tokens := keyword.Tokenize(query)
	if len(tokens) == 0 || userID == "" || limit <= 0 {
		return nil, nil
	}

	ctx, cancel, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	var column, selectCols, table string
	switch collection {
	case models.CollectionMessages:
		table, column = "messages", "content"
		selectCols = "id, content, created_at"
	case models.CollectionFacts:
		table, column = "facts", "category || ' ' || key || ' ' || value"
		selectCols = "id, " + column + ", created_at"
	default:
		return nil, fmt.Errorf("unknown collection %q", collection)
	}

	// tokens are alphanumeric, so they need no LIKE escaping
	args := []interface{}{userID}
	clauses := make([]string, len(tokens))
	for i, t := range tokens {
		args = append(args, "%"+t+"%")
		clauses[i] = fmt.Sprintf("%s ILIKE $%d", column, i+2)
	}
	args = append(args, limit*5)
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE user_id = $1 AND (%s) ORDER BY created_at DESC LIMIT $%d`,
		selectCols, table, strings.Join(clauses, " OR "), len(args))

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, classify("search "+table, err)
	}
	defer rows.Close()

	var results []*models.SearchResult
	for rows.Next() {
		var id, content string
		var createdAt time.Time
		if err := rows.Scan(&id, &content, &createdAt); err != nil {
			return nil, classify("scan "+table, err)
		}
		results = append(results, remoteResult(id, collection, content, scoreContent(tokens, content), createdAt))
	}
	if err := rows.Err(); err != nil {
		return nil, classify("search "+table, err)
	}
	return rankRemote(results, limit), nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
