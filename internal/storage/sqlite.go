package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/kioku/internal/models"
)

// SQLiteStore is the device-local persistence backend. It offers the same entity
// surface as the remote store and also persists the sync queue.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist. ":memory:" opens a private
// in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS profiles (
		user_id TEXT PRIMARY KEY,
		display_name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		locale TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS facts (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		category TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		confidence REAL NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_facts_user ON facts(user_id);

	CREATE TABLE IF NOT EXISTS preferences (
		user_id TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (user_id, key)
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		started_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		screenshot TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_messages_user_created ON messages(user_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id);

	CREATE TABLE IF NOT EXISTS consents (
		user_id TEXT PRIMARY KEY,
		prompts INTEGER NOT NULL DEFAULT 0,
		outputs INTEGER NOT NULL DEFAULT 0,
		tools INTEGER NOT NULL DEFAULT 0,
		screenshots INTEGER NOT NULL DEFAULT 0,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sync_queue (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		op TEXT NOT NULL,
		entity TEXT NOT NULL,
		user_id TEXT NOT NULL,
		payload TEXT NOT NULL,
		enqueued_at TIMESTAMP NOT NULL,
		retries INTEGER NOT NULL DEFAULT 0,
		last_error TEXT NOT NULL DEFAULT ''
	);
	`
	_, err := db.Exec(schema)
	return err
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetProfile returns the profile of userID.
func (s *SQLiteStore) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	var p models.Profile
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, display_name, email, locale, created_at, updated_at
		 FROM profiles WHERE user_id = ?`, userID,
	).Scan(&p.UserID, &p.DisplayName, &p.Email, &p.Locale, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("profile %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpsertProfile inserts or replaces a profile.
func (s *SQLiteStore) UpsertProfile(ctx context.Context, p *models.Profile) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO profiles (user_id, display_name, email, locale, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   display_name = excluded.display_name, email = excluded.email,
		   locale = excluded.locale, updated_at = excluded.updated_at`,
		p.UserID, p.DisplayName, p.Email, p.Locale, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

// ListFacts returns the facts of userID, most recently updated first.
func (s *SQLiteStore) ListFacts(ctx context.Context, userID string) ([]*models.Fact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, category, key, value, confidence, created_at, updated_at
		 FROM facts WHERE user_id = ? ORDER BY updated_at DESC, id`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var facts []*models.Fact
	for rows.Next() {
		var f models.Fact
		if err := rows.Scan(&f.ID, &f.UserID, &f.Category, &f.Key, &f.Value, &f.Confidence, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		facts = append(facts, &f)
	}
	return facts, rows.Err()
}

// UpsertFact inserts or replaces a fact.
func (s *SQLiteStore) UpsertFact(ctx context.Context, f *models.Fact) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO facts (id, user_id, category, key, value, confidence, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   category = excluded.category, key = excluded.key, value = excluded.value,
		   confidence = excluded.confidence, updated_at = excluded.updated_at
		 WHERE facts.user_id = excluded.user_id`,
		f.ID, f.UserID, f.Category, f.Key, f.Value, f.Confidence, f.CreatedAt, f.UpdatedAt,
	)
	return err
}

// DeleteFact removes a fact of userID. Deleting a missing fact is not an error.
func (s *SQLiteStore) DeleteFact(ctx context.Context, userID, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM facts WHERE user_id = ? AND id = ?`, userID, id)
	return err
}

// ListPreferences returns the preferences of userID ordered by key.
func (s *SQLiteStore) ListPreferences(ctx context.Context, userID string) ([]*models.Preference, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, key, value, updated_at FROM preferences WHERE user_id = ? ORDER BY key`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var prefs []*models.Preference
	for rows.Next() {
		var p models.Preference
		if err := rows.Scan(&p.UserID, &p.Key, &p.Value, &p.UpdatedAt); err != nil {
			return nil, err
		}
		prefs = append(prefs, &p)
	}
	return prefs, rows.Err()
}

// UpsertPreference inserts or replaces a preference.
func (s *SQLiteStore) UpsertPreference(ctx context.Context, p *models.Preference) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO preferences (user_id, key, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		p.UserID, p.Key, p.Value, p.UpdatedAt,
	)
	return err
}

// CreateSession inserts a session. Re-creating an existing session is a no-op.
func (s *SQLiteStore) CreateSession(ctx context.Context, sess *models.Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, title, started_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		sess.ID, sess.UserID, sess.Title, sess.StartedAt,
	)
	return err
}

// AddMessage inserts a message. Re-adding an existing message is a no-op.
func (s *SQLiteStore) AddMessage(ctx context.Context, m *models.Message) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, session_id, user_id, role, content, screenshot, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		m.ID, m.SessionID, m.UserID, string(m.Role), m.Content, m.Screenshot, m.CreatedAt,
	)
	return err
}

// RecentMessages returns up to limit of the newest messages of userID in chronological
// order. An empty sessionID spans all sessions.
func (s *SQLiteStore) RecentMessages(ctx context.Context, userID, sessionID string, limit int) ([]*models.Message, error) {
	query := `SELECT id, session_id, user_id, role, content, screenshot, created_at
		 FROM messages WHERE user_id = ?`
	args := []interface{}{userID}
	if sessionID != "" {
		query += ` AND session_id = ?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []*models.Message
	for rows.Next() {
		var m models.Message
		var role string
		if err := rows.Scan(&m.ID, &m.SessionID, &m.UserID, &role, &m.Content, &m.Screenshot, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Role = models.Role(role)
		msgs = append(msgs, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// GetConsent returns the consent flags of userID.
func (s *SQLiteStore) GetConsent(ctx context.Context, userID string) (*models.Consent, error) {
	var c models.Consent
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, prompts, outputs, tools, screenshots, updated_at FROM consents WHERE user_id = ?`, userID,
	).Scan(&c.UserID, &c.Prompts, &c.Outputs, &c.Tools, &c.Screenshots, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("consent %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// UpsertConsent inserts or replaces the consent flags.
func (s *SQLiteStore) UpsertConsent(ctx context.Context, c *models.Consent) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO consents (user_id, prompts, outputs, tools, screenshots, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   prompts = excluded.prompts, outputs = excluded.outputs, tools = excluded.tools,
		   screenshots = excluded.screenshots, updated_at = excluded.updated_at`,
		c.UserID, c.Prompts, c.Outputs, c.Tools, c.Screenshots, c.UpdatedAt,
	)
	return err
}

// CountMessages returns the number of stored messages of userID.
func (s *SQLiteStore) CountMessages(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE user_id = ?`, userID).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func now() time.Time {
	return time.Now().UTC()
}
