// Package sqlite provides durable implementations of outbound ports backed
// by a local SQLite database. It is the store that makes stay-logged-in
// survive gateway restarts.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultCleanupInterval for expired session rows.
const DefaultCleanupInterval = 5 * time.Minute

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id                TEXT PRIMARY KEY,
	user_id           TEXT NOT NULL,
	user_name         TEXT NOT NULL,
	user_email        TEXT NOT NULL,
	matricula         TEXT NOT NULL,
	role              TEXT NOT NULL,
	access_token      TEXT NOT NULL,
	refresh_token     TEXT NOT NULL,
	access_expires_at INTEGER NOT NULL,
	refresh_failed    INTEGER NOT NULL DEFAULT 0,
	persistent        INTEGER NOT NULL DEFAULT 0,
	created_at        INTEGER NOT NULL,
	expires_at        INTEGER NOT NULL,
	last_access       INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);
CREATE TABLE IF NOT EXISTS preferences (
	matricula      TEXT PRIMARY KEY,
	stay_logged_in INTEGER NOT NULL,
	updated_at     INTEGER NOT NULL
);
`

// Store owns the database handle shared by the session and preference
// stores.
type Store struct {
	db *sql.DB

	stopChan chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

// Open opens (creating if needed) the database at path and runs migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// modernc sqlite allows one writer; serialize through a single conn.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run sqlite migrations: %w", err)
	}

	return &Store{
		db:       db,
		stopChan: make(chan struct{}),
	}, nil
}

// Sessions returns the session store view.
func (s *Store) Sessions() *SessionStore {
	return &SessionStore{db: s.db}
}

// Preferences returns the preference store view.
func (s *Store) Preferences() *PrefStore {
	return &PrefStore{db: s.db}
}

// StartCleanup starts a background goroutine that deletes expired session
// rows periodically. Call Stop() to stop it gracefully.
func (s *Store) StartCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.cleanup(ctx)
			}
		}
	}()
}

func (s *Store) cleanup(ctx context.Context) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at < ?`, time.Now().UTC().UnixNano())
	if err != nil {
		slog.Error("failed to clean expired sessions", "error", err)
		return
	}
	if cleaned, err := res.RowsAffected(); err == nil && cleaned > 0 {
		slog.Debug("cleaned expired sessions", "count", cleaned)
	}
}

// Stop stops the cleanup goroutine and waits for it to exit.
// Safe to call multiple times.
func (s *Store) Stop() {
	s.once.Do(func() {
		close(s.stopChan)
	})
	s.wg.Wait()
}

// Close stops cleanup and closes the database.
func (s *Store) Close() error {
	s.Stop()
	return s.db.Close()
}
