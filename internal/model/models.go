package model

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnknownEventType is returned when a stored or supplied event type token
	// is not one of the known tokens.
	ErrUnknownEventType = errors.New("unknown event type")

	// ErrInvalidRecord is returned when a record violates the shape its event
	// type requires (e.g. a Remove carrying a snapshot).
	ErrInvalidRecord = errors.New("invalid journal record")
)

// EventType is the semantic kind of a journaled file event.
type EventType int

const (
	EventCreate EventType = iota + 1
	EventUpdate
	EventRemove
	EventRename
)

// String returns the stable token stored in the journal.
func (t EventType) String() string {
	switch t {
	case EventCreate:
		return "Create"
	case EventUpdate:
		return "Update"
	case EventRemove:
		return "Remove"
	case EventRename:
		return "Rename"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// ParseEventType parses a token produced by EventType.String.
func ParseEventType(token string) (EventType, error) {
	switch token {
	case "Create":
		return EventCreate, nil
	case "Update":
		return EventUpdate, nil
	case "Remove":
		return EventRemove, nil
	case "Rename":
		return EventRename, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownEventType, token)
	}
}

// timestampLayout is RFC3339 with a fixed-width fraction. Fixed width keeps the
// text form sorting in the same order as the instants.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// displayLayout is used when rendering timestamps for people.
const displayLayout = time.RFC3339

// NormalizeTime converts t to UTC and drops any monotonic clock reading.
func NormalizeTime(t time.Time) time.Time {
	return t.UTC().Round(0)
}

// FormatTimestamp renders t in the storage format.
func FormatTimestamp(t time.Time) string {
	return NormalizeTime(t).Format(timestampLayout)
}

// ParseTimestamp parses a timestamp in the storage format (or any RFC3339 value).
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return NormalizeTime(t), nil
}

// DisplayTimestamp renders t for the history table.
func DisplayTimestamp(t time.Time) string {
	return NormalizeTime(t).Format(displayLayout)
}

// Record is one journaled file event.
// Optional fields use the empty string for "absent".
type Record struct {
	ID         int64 // assigned by the journal on append; 0 until persisted
	EventType  EventType
	Timestamp  time.Time
	Snapshot   string // stash-relative name of the snapshot
	BeforePath string // the event's path, or the rename source
	AfterPath  string // rename destination only
}

// Persisted returns true if the journal has assigned this record an ID.
func (r *Record) Persisted() bool {
	return r.ID != 0
}

// Validate checks the per-type shape of the record.
func (r *Record) Validate() error {
	if r.Timestamp.IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrInvalidRecord)
	}

	switch r.EventType {
	case EventCreate, EventUpdate:
		if r.Snapshot == "" {
			return fmt.Errorf("%w: %s requires a snapshot", ErrInvalidRecord, r.EventType)
		}
		if r.BeforePath == "" {
			return fmt.Errorf("%w: %s requires a path", ErrInvalidRecord, r.EventType)
		}
		if r.AfterPath != "" {
			return fmt.Errorf("%w: %s cannot have an after path", ErrInvalidRecord, r.EventType)
		}
	case EventRemove:
		if r.Snapshot != "" {
			return fmt.Errorf("%w: Remove cannot have a snapshot", ErrInvalidRecord)
		}
		if r.BeforePath == "" {
			return fmt.Errorf("%w: Remove requires a path", ErrInvalidRecord)
		}
		if r.AfterPath != "" {
			return fmt.Errorf("%w: Remove cannot have an after path", ErrInvalidRecord)
		}
	case EventRename:
		if r.Snapshot == "" || r.BeforePath == "" || r.AfterPath == "" {
			return fmt.Errorf("%w: Rename requires a snapshot, source and destination", ErrInvalidRecord)
		}
	default:
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrUnknownEventType)
	}
	return nil
}
