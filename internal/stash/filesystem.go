package stash

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"squirrel-go/internal/squirrel"
)

// maxNameAttempts bounds how many fresh prefixes Save tries before giving up.
const maxNameAttempts = 8

// ErrNotFound is returned when a snapshot name is not present in the stash.
var ErrNotFound = errors.New("snapshot not found")

// FileSystemStore keeps snapshots as plain files in a single flat directory:
//
//	<dir>/
//	  <id>-<basename>   (one byte-for-byte copy per recorded event)
//
// Existing snapshots are never overwritten or modified.
type FileSystemStore struct {
	dir   string
	idgen squirrel.IDGenerator
}

// NewFileSystemStore creates a store in dir, creating the directory if needed.
func NewFileSystemStore(dir string, idgen squirrel.IDGenerator) (*FileSystemStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create stash directory: %w", err)
	}
	return &FileSystemStore{dir: dir, idgen: idgen}, nil
}

// Dir returns the stash directory.
func (s *FileSystemStore) Dir() string {
	return s.dir
}

// Save copies r into the stash and returns the new snapshot's name.
func (s *FileSystemStore) Save(sourceName string, r io.Reader) (string, error) {
	base := filepath.Base(sourceName)
	if base == "." || base == string(filepath.Separator) {
		return "", fmt.Errorf("invalid snapshot source name %q", sourceName)
	}

	tmpPath, err := s.writeTemp(r)
	if err != nil {
		return "", err
	}
	defer os.Remove(tmpPath)

	for range maxNameAttempts {
		name := s.idgen.New() + "-" + base
		// Link fails if name exists, so a snapshot is never replaced.
		err := os.Link(tmpPath, filepath.Join(s.dir, name))
		if err == nil {
			return name, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("failed to publish snapshot %s: %w", name, err)
		}
	}
	return "", fmt.Errorf("no unique snapshot name for %s after %d attempts", base, maxNameAttempts)
}

// Open opens a stored snapshot for reading.
func (s *FileSystemStore) Open(name string) (io.ReadCloser, error) {
	if name == "" || filepath.Base(name) != name {
		return nil, fmt.Errorf("invalid snapshot name %q", name)
	}
	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	return f, nil
}

// writeTemp copies r into a synced temp file inside the stash directory.
func (s *FileSystemStore) writeTemp(r io.Reader) (string, error) {
	tmpFile, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmpFile, r); err != nil {
		tmpFile.Close()
		return "", fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return "", fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}

	success = true
	return tmpPath, nil
}

// Compile-time check that FileSystemStore implements squirrel.SnapshotStore
var _ squirrel.SnapshotStore = (*FileSystemStore)(nil)
