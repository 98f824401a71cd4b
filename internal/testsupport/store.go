package testsupport

import (
	"context"
	"testing"

	"mosaic/internal/config"
	"mosaic/internal/store"
)

// MustOpenStore opens a store against the test config and closes it when the
// test finishes.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

// MustCreateWorkspace creates a workspace or fails the test.
func MustCreateWorkspace(t testing.TB, st *store.Store, name string) *store.Workspace {
	t.Helper()

	ws, err := st.CreateWorkspace(context.Background(), name)
	if err != nil {
		t.Fatalf("create workspace: %v", err)
	}
	return ws
}
