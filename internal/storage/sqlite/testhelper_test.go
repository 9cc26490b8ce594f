package sqlite

import (
	"context"
	"testing"
)

// newTestStore opens a fresh in-memory database with migrations applied,
// torn down automatically at the end of the test.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), ":memory:", Options{})
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}
