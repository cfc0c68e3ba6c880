package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updatedAt REAL NOT NULL
	);
`

// Store provides access to the clang-tui SQLite database.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// DefaultDBPath returns the default database path, in the clang-tui config
// dir next to config.yaml and the log.
func DefaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "clang-tui", "clang.sqlite")
}

// Open opens (creating if needed) the database with WAL and ensures the schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Verify connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return newStore(db)
}

func newStore(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the entry for key, or nil if it is absent.
func (s *Store) Get(key string) (*Entry, error) {
	row := s.db.QueryRow(`SELECT key, value, updatedAt FROM kv WHERE key = ?`, key)

	var e Entry
	var updatedAt float64
	if err := row.Scan(&e.Key, &e.Value, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan entry: %w", err)
	}
	e.UpdatedAt = timeFromUnix(updatedAt)
	return &e, nil
}

// Put overwrites the value stored under key.
func (s *Store) Put(key, value string) error {
	now := float64(time.Now().UnixNano()) / 1e9
	_, err := s.db.Exec(`
		INSERT INTO kv (key, value, updatedAt) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = excluded.updatedAt
	`, key, value, now)
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *Store) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Credentials returns the stored credential pair, or nil if none is stored.
func (s *Store) Credentials() (*Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.Get(CredentialsKey)
	if err != nil || e == nil {
		return nil, err
	}

	var c Credentials
	if err := json.Unmarshal([]byte(e.Value), &c); err != nil {
		return nil, fmt.Errorf("decode credentials: %w", err)
	}
	if c.AccessToken == "" {
		return nil, nil
	}
	return &c, nil
}

// SaveCredentials replaces the stored pair wholesale.
func (s *Store) SaveCredentials(access, refresh string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(Credentials{AccessToken: access, RefreshToken: refresh})
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	return s.Put(CredentialsKey, string(data))
}

// ClearCredentials removes the stored pair.
func (s *Store) ClearCredentials() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Delete(CredentialsKey)
}

func timeFromUnix(ts float64) time.Time {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}
