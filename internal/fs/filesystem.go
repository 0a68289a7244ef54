package fs

import (
	"fmt"
	"io"
	"io/fs"
	"os"

	"squirrel-go/internal/squirrel"
)

// OSFilesystemManager is the real filesystem implementation of FilesystemManager.
type OSFilesystemManager struct{}

// NewOSFilesystemManager creates a new filesystem manager that operates on the real filesystem.
func NewOSFilesystemManager() *OSFilesystemManager {
	return &OSFilesystemManager{}
}

// Stat returns fresh file info for a path, following symlinks.
func (m *OSFilesystemManager) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// Open opens a regular file for reading. Special files (devices, pipes,
// sockets) are refused so a snapshot never blocks on them.
func (m *OSFilesystemManager) Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, fmt.Errorf("not a regular file: %s", path)
	}
	return f, nil
}

// Compile-time check that OSFilesystemManager implements squirrel.FilesystemManager interface
var _ squirrel.FilesystemManager = (*OSFilesystemManager)(nil)
