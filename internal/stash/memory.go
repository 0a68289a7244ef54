package stash

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"squirrel-go/internal/squirrel"
)

// MemoryStore is an in-memory snapshot store for tests and dry runs.
// Safe for concurrent use.
type MemoryStore struct {
	mu        sync.RWMutex
	idgen     squirrel.IDGenerator
	snapshots map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(idgen squirrel.IDGenerator) *MemoryStore {
	return &MemoryStore{
		idgen:     idgen,
		snapshots: make(map[string][]byte),
	}
}

// Save copies r into memory and returns the new snapshot's name.
func (s *MemoryStore) Save(sourceName string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read content: %w", err)
	}

	base := filepath.Base(sourceName)
	s.mu.Lock()
	defer s.mu.Unlock()
	for range maxNameAttempts {
		name := s.idgen.New() + "-" + base
		if _, exists := s.snapshots[name]; exists {
			continue
		}
		s.snapshots[name] = data
		return name, nil
	}
	return "", fmt.Errorf("no unique snapshot name for %s after %d attempts", base, maxNameAttempts)
}

// Open returns a reader over a stored snapshot.
func (s *MemoryStore) Open(name string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.snapshots[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Len returns the number of stored snapshots.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snapshots)
}

var _ squirrel.SnapshotStore = (*MemoryStore)(nil)
