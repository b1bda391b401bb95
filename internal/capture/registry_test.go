package capture

import (
	"sync"
	"testing"
	"time"

	"sluice/internal/logging"
)

func TestAcquireMergesConcurrentRebindsToOneSession(t *testing.T) {
	staging := t.TempDir()
	registry := NewRegistry()

	const lanes = 8
	var wg sync.WaitGroup
	results := make([]*Session, lanes)
	for i := 0; i < lanes; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sess, err := registry.Acquire("alpha", func() (*Session, error) {
				return NewSession("alpha", staging, time.Now())
			})
			if err != nil {
				t.Errorf("Acquire: %v", err)
				return
			}
			results[i] = sess
		}(i)
	}
	wg.Wait()

	first := results[0]
	if first == nil {
		t.Fatal("expected a session")
	}
	for i, sess := range results {
		if sess != first {
			t.Fatalf("lane %d got a different session: %s vs %s", i, sess.ID, first.ID)
		}
	}
}

func TestRemoveIsScopedToSessionID(t *testing.T) {
	staging := t.TempDir()
	registry := NewRegistry()

	oldSess, err := registry.Acquire("alpha", func() (*Session, error) {
		return NewSession("alpha", staging, time.Now())
	})
	if err != nil {
		t.Fatal(err)
	}

	// Target rotates away and back: a fresh session replaces the old mapping.
	registry.Remove("alpha", oldSess.ID)
	newSess, err := registry.Acquire("alpha", func() (*Session, error) {
		return NewSession("alpha", staging, time.Now())
	})
	if err != nil {
		t.Fatal(err)
	}
	if newSess == oldSess {
		t.Fatal("expected a fresh session after removal")
	}

	// A stale removal keyed by the old id must not evict the new session.
	registry.Remove("alpha", oldSess.ID)
	if got, ok := registry.Lookup("alpha"); !ok || got != newSess {
		t.Fatal("stale remove evicted the live session")
	}
}

func TestOpenSnapshotsAllSessions(t *testing.T) {
	staging := t.TempDir()
	registry := NewRegistry()

	for _, target := range []string{"alpha", "beta"} {
		if _, err := registry.Acquire(target, func() (*Session, error) {
			return NewSession(target, staging, time.Now())
		}); err != nil {
			t.Fatal(err)
		}
	}

	open := registry.Open()
	if len(open) != 2 {
		t.Fatalf("expected 2 open sessions, got %d", len(open))
	}
}

func TestFinalizeRemovesRegistryMapping(t *testing.T) {
	staging := t.TempDir()
	registry := NewRegistry()
	lifecycle := NewLifecycle(registry, 2, time.Hour, logging.NewNop())

	sess, err := registry.Acquire("alpha", func() (*Session, error) {
		return NewSession("alpha", staging, time.Now())
	})
	if err != nil {
		t.Fatal(err)
	}

	lifecycle.Finalize(sess, ReasonShutdown)
	if _, ok := registry.Lookup("alpha"); ok {
		t.Fatal("finalized session should be removed from the registry")
	}
}
