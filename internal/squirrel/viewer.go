package squirrel

import (
	"fmt"
	"io"
	"path/filepath"

	"squirrel-go/internal/model"
)

// rowFormat is the fixed column layout of the history table.
const rowFormat = "%-5v%-30s%-30s%-13s%s\n"

// Viewer renders journal history for paths matching a pattern.
type Viewer struct {
	journal   JournalReader
	stashName string
	pageSize  int
	header    bool
}

// NewViewer creates a viewer over journal. stashName prefixes rendered
// snapshot names so they read as paths relative to the watched root.
func NewViewer(journal JournalReader, stashName string, pageSize int, header bool) *Viewer {
	return &Viewer{
		journal:   journal,
		stashName: stashName,
		pageSize:  pageSize,
		header:    header,
	}
}

// Show writes every matching record, newest first, and returns how many rows
// were written. Nothing is mutated.
func (v *Viewer) Show(w io.Writer, m Matcher) (int, error) {
	if v.header {
		if _, err := fmt.Fprintf(w, rowFormat, "Id", "File Name", "Timestamp", "Update Type", "Snapshot"); err != nil {
			return 0, err
		}
	}

	count := 0
	for rec, err := range Backwards(v.journal, v.pageSize) {
		if err != nil {
			return count, err
		}
		name, ok := MatchName(m, rec)
		if !ok {
			continue
		}

		snapshot := ""
		if rec.Snapshot != "" {
			snapshot = filepath.Join(v.stashName, rec.Snapshot)
		}
		if _, err := fmt.Fprintf(w, rowFormat,
			rec.ID,
			name,
			model.DisplayTimestamp(rec.Timestamp),
			rec.EventType.String(),
			snapshot,
		); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// MatchName returns the base name of the recorded path that matches m,
// preferring the rename destination over the original path.
func MatchName(m Matcher, rec *model.Record) (string, bool) {
	var matched string
	switch {
	case rec.AfterPath != "" && m.Match(rec.AfterPath):
		matched = rec.AfterPath
	case rec.BeforePath != "" && m.Match(rec.BeforePath):
		matched = rec.BeforePath
	default:
		return "", false
	}

	base := filepath.Base(matched)
	if base == "." || base == string(filepath.Separator) {
		return "<unknown>", true
	}
	return base, true
}
