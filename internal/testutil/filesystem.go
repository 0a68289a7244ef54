package testutil

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"squirrel-go/internal/squirrel"
)

// MockFile represents a file in the mock filesystem.
type MockFile struct {
	Content []byte
	Mode    fs.FileMode
	ModTime time.Time
}

// MockFilesystemManager is an in-memory filesystem for testing.
// Paths are used exactly as given. Safe for concurrent use.
type MockFilesystemManager struct {
	mu       sync.Mutex
	files    map[string]*MockFile
	openErrs map[string]error
}

// NewMockFilesystemManager creates a new mock filesystem.
func NewMockFilesystemManager() *MockFilesystemManager {
	return &MockFilesystemManager{
		files:    make(map[string]*MockFile),
		openErrs: make(map[string]error),
	}
}

// AddFile adds a regular file to the mock filesystem.
func (m *MockFilesystemManager) AddFile(path string, content []byte) {
	m.add(path, &MockFile{Content: content, Mode: 0644})
}

// AddDirectory adds a directory to the mock filesystem.
func (m *MockFilesystemManager) AddDirectory(path string) {
	m.add(path, &MockFile{Mode: fs.ModeDir | 0755})
}

// AddSpecial adds a non-regular file such as a named pipe or socket.
func (m *MockFilesystemManager) AddSpecial(path string, mode fs.FileMode) {
	m.add(path, &MockFile{Mode: mode | 0644})
}

// UpdateFile replaces a file's content.
func (m *MockFilesystemManager) UpdateFile(path string, content []byte) {
	m.AddFile(path, content)
}

// RemoveFile deletes a path from the mock filesystem.
func (m *MockFilesystemManager) RemoveFile(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, path)
}

// FailOpen makes every Open of path fail with err.
func (m *MockFilesystemManager) FailOpen(path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openErrs[path] = err
}

func (m *MockFilesystemManager) add(path string, f *MockFile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f.ModTime = time.Now()
	m.files[path] = f
}

func (m *MockFilesystemManager) Stat(path string) (fs.FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	file, ok := m.files[path]
	if !ok {
		return nil, &fs.PathError{Op: "stat", Path: path, Err: fs.ErrNotExist}
	}
	return &mockFileInfo{name: filepath.Base(path), file: file}, nil
}

func (m *MockFilesystemManager) Open(path string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.openErrs[path]; err != nil {
		return nil, err
	}
	file, ok := m.files[path]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	if !file.Mode.IsRegular() {
		return nil, fmt.Errorf("cannot open non-regular file: %s", path)
	}
	return io.NopCloser(bytes.NewReader(bytes.Clone(file.Content))), nil
}

// mockFileInfo implements fs.FileInfo
type mockFileInfo struct {
	name string
	file *MockFile
}

func (i *mockFileInfo) Name() string       { return i.name }
func (i *mockFileInfo) Size() int64        { return int64(len(i.file.Content)) }
func (i *mockFileInfo) Mode() fs.FileMode  { return i.file.Mode }
func (i *mockFileInfo) ModTime() time.Time { return i.file.ModTime }
func (i *mockFileInfo) IsDir() bool        { return i.file.Mode.IsDir() }
func (i *mockFileInfo) Sys() any           { return i.file }

// Compile-time check
var _ squirrel.FilesystemManager = (*MockFilesystemManager)(nil)
