package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vortelan/chatsync/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS credential (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	token TEXT NOT NULL,
	user_id TEXT NOT NULL DEFAULT '',
	username TEXT NOT NULL DEFAULT '',
	saved_at TIMESTAMP NOT NULL
);
`

// SQLiteStore implements store.CredentialStore for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a credential store at dbPath, creating the parent directory
// and schema as needed.
func New(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// NewWithSetup creates a store and runs a setup function against the raw
// connection first. Useful for tests seeding state without the public API.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	s, err := New(dbPath)
	if err != nil {
		return nil, err
	}
	if setup != nil {
		if err := setup(s.db); err != nil {
			s.db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Save stores the credential, replacing any previous one.
func (s *SQLiteStore) Save(ctx context.Context, cred *store.Credential) error {
	query := `
		INSERT INTO credential (id, token, user_id, username, saved_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			token = excluded.token,
			user_id = excluded.user_id,
			username = excluded.username,
			saved_at = excluded.saved_at
	`
	if _, err := s.db.ExecContext(ctx, query, cred.Token, cred.UserID, cred.Username, cred.SavedAt); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

// Load returns the stored credential, or nil when none is stored.
func (s *SQLiteStore) Load(ctx context.Context) (*store.Credential, error) {
	query := `SELECT token, user_id, username, saved_at FROM credential WHERE id = 1`

	cred := &store.Credential{}
	err := s.db.QueryRowContext(ctx, query).Scan(&cred.Token, &cred.UserID, &cred.Username, &cred.SavedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load credential: %w", err)
	}
	return cred, nil
}

// Clear removes any stored credential.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM credential WHERE id = 1`); err != nil {
		return fmt.Errorf("clear credential: %w", err)
	}
	return nil
}
