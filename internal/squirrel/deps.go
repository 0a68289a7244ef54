package squirrel

import (
	"io"
	"io/fs"
	"time"

	"github.com/google/uuid"
)

// Logger receives pipeline diagnostics: denial traces, skipped snapshots and
// journaled events. args are slog-style key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NopLogger drops every message.
type NopLogger struct{}

func NewNopLogger() *NopLogger { return &NopLogger{} }

func (*NopLogger) Debug(string, ...any) {}
func (*NopLogger) Info(string, ...any)  {}
func (*NopLogger) Warn(string, ...any)  {}
func (*NopLogger) Error(string, ...any) {}

// Clock supplies event timestamps.
type Clock interface {
	Now() time.Time
}

// RealClock reads the wall clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// IDGenerator supplies the unique prefix of snapshot names.
type IDGenerator interface {
	New() string
}

// UUIDGenerator returns version 4 UUIDs, 122 random bits each, which keeps
// snapshot name collisions negligible at any realistic event rate.
type UUIDGenerator struct{}

func (UUIDGenerator) New() string { return uuid.New().String() }

// FilesystemManager provides the filesystem access the dispatcher needs.
// It abstracts file access to enable testing without touching the real filesystem.
type FilesystemManager interface {
	// Stat returns fresh file info for an absolute path.
	Stat(path string) (fs.FileInfo, error)

	// Open opens a file for reading.
	Open(path string) (io.ReadCloser, error)
}

// SnapshotStore keeps immutable copies of file content.
type SnapshotStore interface {
	// Save copies everything read from r into the stash under a fresh unique
	// name derived from sourceName's base name, and returns that stash-relative
	// name.
	Save(sourceName string, r io.Reader) (string, error)
}

// PathFilter decides whether a path is in scope and not ignored.
type PathFilter interface {
	// Allow reports whether events about path should be recorded.
	// Relative paths are interpreted relative to the watched root.
	Allow(path string) bool
}

// Matcher matches a recorded relative path against a query pattern.
type Matcher interface {
	Match(relativePath string) bool
}
