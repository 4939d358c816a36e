package testsupport

import (
	"context"
	"testing"

	"filingsync/internal/config"
	"filingsync/internal/runstore"
)

// MustOpenStore opens a runstore.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *runstore.Store {
	t.Helper()

	store, err := runstore.Open(cfg)
	if err != nil {
		t.Fatalf("runstore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// BeginRun starts a run in store for tests.
func BeginRun(t testing.TB, store *runstore.Store, entities int) *runstore.Run {
	t.Helper()

	run, err := store.BeginRun(context.Background(), runstore.RunOptions{Workers: 2, Entities: entities})
	if err != nil {
		t.Fatalf("store.BeginRun: %v", err)
	}
	return run
}
