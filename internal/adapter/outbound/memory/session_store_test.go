// Package memory provides in-memory implementations of outbound ports.
package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/estoque-gate/estoquegate/internal/domain/auth"
	"github.com/estoque-gate/estoquegate/internal/domain/session"
)

func liveSession(id string) *session.Session {
	now := time.Now().UTC()
	return &session.Session{
		ID: id,
		Token: session.TokenState{
			User: auth.User{
				ID:        "user-1",
				Matricula: "EST-0001",
				Role:      auth.RoleStockClerk,
			},
			AccessToken:          "at",
			RefreshToken:         "rt",
			AccessTokenExpiresAt: now.Add(time.Hour),
		},
		CreatedAt:  now,
		ExpiresAt:  now.Add(30 * time.Minute),
		LastAccess: now,
	}
}

func TestSessionStore_CreateAndGet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewSessionStore()

	if err := store.Create(ctx, liveSession("sess-1")); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	got, err := store.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}

	if got.ID != "sess-1" {
		t.Errorf("ID = %q, want %q", got.ID, "sess-1")
	}
	if got.Token.User.Matricula != "EST-0001" {
		t.Errorf("Matricula = %q, want %q", got.Token.User.Matricula, "EST-0001")
	}
	if got.Token.AccessToken != "at" {
		t.Errorf("AccessToken = %q, want %q", got.Token.AccessToken, "at")
	}
}

func TestSessionStore_GetNonExistent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewSessionStore()

	_, err := store.Get(ctx, "nonexistent")
	if !errors.Is(err, session.ErrSessionNotFound) {
		t.Errorf("Get() error = %v, want ErrSessionNotFound", err)
	}
}

func TestSessionStore_ExpiredSession(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewSessionStore()

	// Create already-expired session
	sess := liveSession("sess-expired")
	sess.CreatedAt = time.Now().UTC().Add(-time.Hour)
	sess.ExpiresAt = time.Now().UTC().Add(-time.Minute)

	if err := store.Create(ctx, sess); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	// Get should fail (lazy expiration check - but no deletion here)
	_, err := store.Get(ctx, "sess-expired")
	if !errors.Is(err, session.ErrSessionNotFound) {
		t.Errorf("Get() for expired session error = %v, want ErrSessionNotFound", err)
	}

	// Second get should also fail (session is still there but expired)
	_, err = store.Get(ctx, "sess-expired")
	if !errors.Is(err, session.ErrSessionNotFound) {
		t.Errorf("Get() after first check error = %v, want ErrSessionNotFound", err)
	}
}

func TestSessionStore_Update(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewSessionStore()

	sess := liveSession("sess-update")
	if err := store.Create(ctx, sess); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	// Update the token pair
	sess.Token.AccessToken = "at-rotated"
	sess.Token.RefreshToken = "rt-rotated"
	if err := store.Update(ctx, sess); err != nil {
		t.Fatalf("Update() error: %v", err)
	}

	// Verify the update persisted
	got, err := store.Get(ctx, "sess-update")
	if err != nil {
		t.Fatalf("Get() after update error: %v", err)
	}
	if got.Token.AccessToken != "at-rotated" {
		t.Errorf("AccessToken = %q, want %q", got.Token.AccessToken, "at-rotated")
	}
}

func TestSessionStore_UpdateNonExistent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewSessionStore()

	err := store.Update(ctx, liveSession("nonexistent"))
	if !errors.Is(err, session.ErrSessionNotFound) {
		t.Errorf("Update() error = %v, want ErrSessionNotFound", err)
	}
}

func TestSessionStore_Delete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewSessionStore()

	if err := store.Create(ctx, liveSession("sess-delete")); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	if err := store.Delete(ctx, "sess-delete"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}

	_, err := store.Get(ctx, "sess-delete")
	if !errors.Is(err, session.ErrSessionNotFound) {
		t.Errorf("Get() after Delete() should return ErrSessionNotFound, got %v", err)
	}
}

func TestSessionStore_DeleteNonExistent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewSessionStore()

	// Delete non-existent session should not error
	if err := store.Delete(ctx, "nonexistent"); err != nil {
		t.Errorf("Delete() on non-existent session should not error, got %v", err)
	}
}

func TestSessionStore_List(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewSessionStore()

	if err := store.Create(ctx, liveSession("sess-a")); err != nil {
		t.Fatal(err)
	}
	if err := store.Create(ctx, liveSession("sess-b")); err != nil {
		t.Fatal(err)
	}

	expired := liveSession("sess-expired")
	expired.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	if err := store.Create(ctx, expired); err != nil {
		t.Fatal(err)
	}

	got, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("List() returned %d sessions, want 2 (expired excluded)", len(got))
	}
}

func TestSessionStore_CopyOnReturn(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewSessionStore()

	if err := store.Create(ctx, liveSession("sess-copy-test")); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	// Get and modify
	got1, err := store.Get(ctx, "sess-copy-test")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	got1.Token.AccessToken = "modified"

	// Get again - should not be modified
	got2, err := store.Get(ctx, "sess-copy-test")
	if err != nil {
		t.Fatalf("Get() second call error: %v", err)
	}

	if got2.Token.AccessToken == "modified" {
		t.Error("Store returned reference instead of copy (AccessToken was modified)")
	}
}

func TestSessionStore_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewSessionStore()

	for i := 0; i < 10; i++ {
		if err := store.Create(ctx, liveSession("sess-concurrent-"+string(rune('0'+i)))); err != nil {
			t.Fatalf("Create() error: %v", err)
		}
	}

	var wg sync.WaitGroup
	errCh := make(chan error, 400)

	// 100 goroutines reading
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			sessID := "sess-concurrent-" + string(rune('0'+(idx%10)))
			_, err := store.Get(ctx, sessID)
			if err != nil && !errors.Is(err, session.ErrSessionNotFound) {
				errCh <- err
			}
		}(i)
	}

	// 100 goroutines writing (updates)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			sess := liveSession("sess-concurrent-" + string(rune('0'+(idx%10))))
			// Update might fail if session was deleted, which is ok for this test
			_ = store.Update(ctx, sess)
		}(i)
	}

	// 50 goroutines creating new sessions
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			if err := store.Create(ctx, liveSession("sess-new-"+string(rune('a'+idx)))); err != nil {
				errCh <- err
			}
		}(i)
	}

	// 50 goroutines deleting
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			sessID := "sess-concurrent-" + string(rune('0'+(idx%10)))
			if err := store.Delete(ctx, sessID); err != nil {
				errCh <- err
			}
		}(i)
	}

	wg.Wait()
	close(errCh)

	for err := range errCh {
		t.Errorf("Concurrent access error: %v", err)
	}
}

// TestSessionStoreCleanup verifies that expired sessions are removed by background cleanup.
func TestSessionStoreCleanup(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create store with short cleanup interval
	store := NewSessionStoreWithConfig(50 * time.Millisecond)
	store.StartCleanup(ctx)
	defer store.Stop()

	sess := liveSession("sess-cleanup-test")
	sess.ExpiresAt = time.Now().UTC().Add(100 * time.Millisecond)

	if err := store.Create(ctx, sess); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	if _, err := store.Get(ctx, "sess-cleanup-test"); err != nil {
		t.Fatalf("Get() should succeed initially: %v", err)
	}
	if store.Size() != 1 {
		t.Errorf("Size() = %d, want 1", store.Size())
	}

	// Wait for expiration + cleanup cycle
	time.Sleep(250 * time.Millisecond)

	_, err := store.Get(ctx, "sess-cleanup-test")
	if !errors.Is(err, session.ErrSessionNotFound) {
		t.Errorf("Get() after cleanup should return ErrSessionNotFound, got %v", err)
	}

	if store.Size() != 0 {
		t.Errorf("Size() after cleanup = %d, want 0", store.Size())
	}
}

// TestSessionStoreNoGoroutineLeak verifies that cleanup goroutine exits properly.
func TestSessionStoreNoGoroutineLeak(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())

	store := NewSessionStoreWithConfig(50 * time.Millisecond)
	store.StartCleanup(ctx)

	for i := 0; i < 5; i++ {
		sess := liveSession("sess-leak-test-" + string(rune('0'+i)))
		_ = store.Create(ctx, sess)
		_, _ = store.Get(ctx, sess.ID)
	}

	// Wait a bit for cleanup goroutine to run
	time.Sleep(100 * time.Millisecond)

	cancel()
	store.Stop()
}

// TestSessionStoreStopMultipleCalls verifies Stop() can be called multiple times safely.
func TestSessionStoreStopMultipleCalls(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewSessionStoreWithConfig(50 * time.Millisecond)
	store.StartCleanup(ctx)

	store.Stop()
	store.Stop()
	store.Stop()
}
