package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS session (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);`

const cookieKey = "cookie"

// SQLiteStore persists the cookie in a single-row key/value table.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening session db: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying session schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load returns the saved cookie, or "" when none has been saved yet.
func (s *SQLiteStore) Load(ctx context.Context) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM session WHERE key = ?`, cookieKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading saved cookie: %w", err)
	}
	return value, nil
}

// Save upserts the cookie value.
func (s *SQLiteStore) Save(ctx context.Context, cookie string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		cookieKey, cookie)
	if err != nil {
		return fmt.Errorf("saving cookie: %w", err)
	}
	return nil
}

// MemoryStore is an in-process Store for tests and cookie-less deployments.
type MemoryStore struct {
	cookie string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns the held cookie.
func (m *MemoryStore) Load(ctx context.Context) (string, error) {
	return m.cookie, nil
}

// Save replaces the held cookie.
func (m *MemoryStore) Save(ctx context.Context, cookie string) error {
	m.cookie = cookie
	return nil
}
