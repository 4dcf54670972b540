package testsupport

import (
	"context"
	"path/filepath"
	"testing"

	"clipkeeper/internal/capture"
	"clipkeeper/internal/kvstore"
	"clipkeeper/internal/queue"
)

// MustOpenKV opens a kvstore.Store in a temp directory and registers cleanup.
func MustOpenKV(t testing.TB) *kvstore.Store {
	t.Helper()
	return MustOpenKVAt(t, filepath.Join(t.TempDir(), "clipkeeper.db"))
}

// MustOpenKVAt opens the database at path and registers cleanup.
func MustOpenKVAt(t testing.TB, path string) *kvstore.Store {
	t.Helper()

	store, err := kvstore.Open(path)
	if err != nil {
		t.Fatalf("kvstore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustLoadQueue builds a queue over kv and loads persisted state.
func MustLoadQueue(t testing.TB, kv queue.Persister, releaser capture.Releaser) *queue.Store {
	t.Helper()

	q := queue.NewStore(kv, releaser, nil)
	if err := q.Load(context.Background()); err != nil {
		t.Fatalf("queue.Load: %v", err)
	}
	return q
}
