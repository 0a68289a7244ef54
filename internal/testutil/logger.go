package testutil

import (
	"fmt"
	"strings"
	"sync"
)

// LogEntry is one captured log call.
type LogEntry struct {
	Level string
	Msg   string
	Args  []any
}

// CapturingLogger records every log call for later inspection.
// Safe for concurrent use.
type CapturingLogger struct {
	mu      sync.Mutex
	entries []LogEntry
}

func NewCapturingLogger() *CapturingLogger {
	return &CapturingLogger{}
}

func (l *CapturingLogger) Debug(msg string, args ...any) { l.log("DEBUG", msg, args) }
func (l *CapturingLogger) Info(msg string, args ...any)  { l.log("INFO", msg, args) }
func (l *CapturingLogger) Warn(msg string, args ...any)  { l.log("WARN", msg, args) }
func (l *CapturingLogger) Error(msg string, args ...any) { l.log("ERROR", msg, args) }

func (l *CapturingLogger) log(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, LogEntry{Level: level, Msg: msg, Args: args})
}

// Entries returns a copy of everything logged so far.
func (l *CapturingLogger) Entries() []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]LogEntry(nil), l.entries...)
}

// Has reports whether a message containing substr was logged at level.
func (l *CapturingLogger) Has(level, substr string) bool {
	for _, e := range l.Entries() {
		if e.Level == level && strings.Contains(e.Msg, substr) {
			return true
		}
	}
	return false
}

// String renders the captured log, one entry per line.
func (l *CapturingLogger) String() string {
	var b strings.Builder
	for _, e := range l.Entries() {
		fmt.Fprintf(&b, "%s %s %v\n", e.Level, e.Msg, e.Args)
	}
	return b.String()
}
