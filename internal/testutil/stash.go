package testutil

import (
	"io"
	"testing"

	"squirrel-go/internal/stash"
)

// NewTestStore creates an in-memory snapshot store with predictable names.
func NewTestStore() *stash.MemoryStore {
	return stash.NewMemoryStore(NewStubIDGenerator())
}

// ReadSnapshot returns the content of a stored snapshot.
func ReadSnapshot(t *testing.T, s stash.Store, name string) string {
	t.Helper()

	rc, err := s.Open(name)
	if err != nil {
		t.Fatalf("opening snapshot %s: %v", name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("reading snapshot %s: %v", name, err)
	}
	return string(data)
}
