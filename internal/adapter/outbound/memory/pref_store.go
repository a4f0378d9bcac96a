package memory

import (
	"context"
	"sync"
	"time"

	"github.com/estoque-gate/estoquegate/internal/domain/prefs"
)

// MemoryPrefStore implements prefs.Store with an in-memory map.
// Preferences do not survive a restart, which makes resume-on-boot
// meaningless; it exists for tests and dev mode.
type MemoryPrefStore struct {
	mu      sync.RWMutex
	entries map[string]prefs.Preference
}

// NewPrefStore creates a new in-memory preference store.
func NewPrefStore() *MemoryPrefStore {
	return &MemoryPrefStore{entries: make(map[string]prefs.Preference)}
}

// Set records the user's choice.
func (s *MemoryPrefStore) Set(ctx context.Context, matricula string, stayLoggedIn bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[matricula] = prefs.Preference{
		Matricula:    matricula,
		StayLoggedIn: stayLoggedIn,
		UpdatedAt:    time.Now().UTC(),
	}
	return nil
}

// Get returns the recorded choice.
func (s *MemoryPrefStore) Get(ctx context.Context, matricula string) (prefs.Preference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[matricula]
	if !ok {
		return prefs.Preference{}, prefs.ErrNotFound
	}
	return entry, nil
}

// Clear removes the entry. Clearing an absent entry is not an error.
func (s *MemoryPrefStore) Clear(ctx context.Context, matricula string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, matricula)
	return nil
}

// Compile-time interface verification.
var _ prefs.Store = (*MemoryPrefStore)(nil)
