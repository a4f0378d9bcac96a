package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/estoque-gate/estoquegate/internal/domain/auth"
	"github.com/estoque-gate/estoquegate/internal/domain/session"
)

// SessionStore implements session.SessionStore on the shared database.
type SessionStore struct {
	db *sql.DB
}

// Create stores a new session.
func (s *SessionStore) Create(ctx context.Context, sess *session.Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (
			id, user_id, user_name, user_email, matricula, role,
			access_token, refresh_token, access_expires_at, refresh_failed,
			persistent, created_at, expires_at, last_access
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID,
		sess.Token.User.ID,
		sess.Token.User.Name,
		sess.Token.User.Email,
		sess.Token.User.Matricula,
		string(sess.Token.User.Role),
		sess.Token.AccessToken,
		sess.Token.RefreshToken,
		sess.Token.AccessTokenExpiresAt.UnixNano(),
		boolToInt(sess.Token.RefreshFailed),
		boolToInt(sess.Persistent),
		sess.CreatedAt.UnixNano(),
		sess.ExpiresAt.UnixNano(),
		sess.LastAccess.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// Get retrieves a session by ID.
// Returns session.ErrSessionNotFound if it doesn't exist or is expired.
func (s *SessionStore) Get(ctx context.Context, id string) (*session.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, user_name, user_email, matricula, role,
			access_token, refresh_token, access_expires_at, refresh_failed,
			persistent, created_at, expires_at, last_access
		FROM sessions WHERE id = ?`, id)

	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, session.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if sess.IsExpired() {
		return nil, session.ErrSessionNotFound
	}
	return sess, nil
}

// Update saves changes to an existing session.
func (s *SessionStore) Update(ctx context.Context, sess *session.Session) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET
			access_token = ?, refresh_token = ?, access_expires_at = ?,
			refresh_failed = ?, persistent = ?, expires_at = ?, last_access = ?
		WHERE id = ?`,
		sess.Token.AccessToken,
		sess.Token.RefreshToken,
		sess.Token.AccessTokenExpiresAt.UnixNano(),
		boolToInt(sess.Token.RefreshFailed),
		boolToInt(sess.Persistent),
		sess.ExpiresAt.UnixNano(),
		sess.LastAccess.UnixNano(),
		sess.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if affected == 0 {
		return session.ErrSessionNotFound
	}
	return nil
}

// Delete removes a session.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// List returns all live sessions.
func (s *SessionStore) List(ctx context.Context) ([]*session.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, user_name, user_email, matricula, role,
			access_token, refresh_token, access_expires_at, refresh_failed,
			persistent, created_at, expires_at, last_access
		FROM sessions WHERE expires_at >= ?
		ORDER BY created_at`, time.Now().UTC().UnixNano())
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var result []*session.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		result = append(result, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return result, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*session.Session, error) {
	var sess session.Session
	var role string
	var accessExp, created, expires, lastAccess int64
	var refreshFailed, persistent int
	err := row.Scan(
		&sess.ID,
		&sess.Token.User.ID,
		&sess.Token.User.Name,
		&sess.Token.User.Email,
		&sess.Token.User.Matricula,
		&role,
		&sess.Token.AccessToken,
		&sess.Token.RefreshToken,
		&accessExp,
		&refreshFailed,
		&persistent,
		&created,
		&expires,
		&lastAccess,
	)
	if err != nil {
		return nil, err
	}
	sess.Token.User.Role = auth.Role(role)
	sess.Token.AccessTokenExpiresAt = time.Unix(0, accessExp).UTC()
	sess.Token.RefreshFailed = refreshFailed != 0
	sess.Persistent = persistent != 0
	sess.CreatedAt = time.Unix(0, created).UTC()
	sess.ExpiresAt = time.Unix(0, expires).UTC()
	sess.LastAccess = time.Unix(0, lastAccess).UTC()
	return &sess, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Compile-time interface verification.
var _ session.SessionStore = (*SessionStore)(nil)
