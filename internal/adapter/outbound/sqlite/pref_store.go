package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/estoque-gate/estoquegate/internal/domain/prefs"
)

// PrefStore implements prefs.Store on the shared database.
type PrefStore struct {
	db *sql.DB
}

// Set records the user's choice, overwriting any previous entry.
func (s *PrefStore) Set(ctx context.Context, matricula string, stayLoggedIn bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO preferences (matricula, stay_logged_in, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(matricula) DO UPDATE SET
			stay_logged_in = excluded.stay_logged_in,
			updated_at = excluded.updated_at`,
		matricula, boolToInt(stayLoggedIn), time.Now().UTC().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to set preference: %w", err)
	}
	return nil
}

// Get returns the recorded choice.
// Returns prefs.ErrNotFound when nothing is recorded.
func (s *PrefStore) Get(ctx context.Context, matricula string) (prefs.Preference, error) {
	var (
		pref         prefs.Preference
		stayLoggedIn int
		updatedAt    int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT matricula, stay_logged_in, updated_at
		FROM preferences WHERE matricula = ?`, matricula).
		Scan(&pref.Matricula, &stayLoggedIn, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return prefs.Preference{}, prefs.ErrNotFound
	}
	if err != nil {
		return prefs.Preference{}, fmt.Errorf("failed to load preference: %w", err)
	}
	pref.StayLoggedIn = stayLoggedIn != 0
	pref.UpdatedAt = time.Unix(0, updatedAt).UTC()
	return pref, nil
}

// Clear removes the entry. Clearing an absent entry is not an error.
func (s *PrefStore) Clear(ctx context.Context, matricula string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM preferences WHERE matricula = ?`, matricula); err != nil {
		return fmt.Errorf("failed to clear preference: %w", err)
	}
	return nil
}

// Compile-time interface verification.
var _ prefs.Store = (*PrefStore)(nil)
