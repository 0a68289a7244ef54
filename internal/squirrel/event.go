package squirrel

import (
	"fmt"
	"path/filepath"
	"strings"
)

// NotificationKind is the low-level change reported by the watch source.
type NotificationKind int

const (
	NotifyOther NotificationKind = iota
	NotifyWritten
	NotifyCreated
	NotifyRenamed
	NotifyRemoved
)

func (k NotificationKind) String() string {
	switch k {
	case NotifyWritten:
		return "written"
	case NotifyCreated:
		return "created"
	case NotifyRenamed:
		return "renamed"
	case NotifyRemoved:
		return "removed"
	default:
		return "other"
	}
}

// Notification is a coalesced change delivered by the watch source.
// For NotifyRenamed, From is the source and Path the destination.
type Notification struct {
	Kind NotificationKind
	Path string
	From string
}

// FileEventKind is the semantic event the dispatcher acts on.
type FileEventKind int

const (
	FileUnknown FileEventKind = iota
	FileWrite
	FileCreate
	FileRename
	FileRemove
)

func (k FileEventKind) String() string {
	switch k {
	case FileWrite:
		return "Write"
	case FileCreate:
		return "Create"
	case FileRename:
		return "Rename"
	case FileRemove:
		return "Remove"
	default:
		return "Unknown"
	}
}

// FileEvent is a classified notification with paths relative to the watched root.
// Source is only set for FileRename.
type FileEvent struct {
	Kind   FileEventKind
	Path   string
	Source string
}

// Target returns the path the event is about: the single path for
// writes, creates and removes, and the destination for renames.
// Unknown events have no target.
func (e FileEvent) Target() (string, bool) {
	if e.Kind == FileUnknown || e.Path == "" {
		return "", false
	}
	return e.Path, true
}

func (e FileEvent) String() string {
	switch e.Kind {
	case FileRename:
		return fmt.Sprintf("%s(%s -> %s)", e.Kind, e.Source, e.Path)
	case FileUnknown:
		return e.Kind.String()
	default:
		return fmt.Sprintf("%s(%s)", e.Kind, e.Path)
	}
}

// Classify maps a notification to a FileEvent, relativizing its paths to root.
// An empty root leaves paths untouched. Paths outside the root stay absolute so
// the path filter can reject them.
func Classify(n Notification, root string) (FileEvent, error) {
	switch n.Kind {
	case NotifyWritten, NotifyCreated, NotifyRemoved:
		p, err := relativize(n.Path, root)
		if err != nil {
			return FileEvent{}, err
		}
		kind := FileWrite
		if n.Kind == NotifyCreated {
			kind = FileCreate
		} else if n.Kind == NotifyRemoved {
			kind = FileRemove
		}
		return FileEvent{Kind: kind, Path: p}, nil
	case NotifyRenamed:
		from, err := relativize(n.From, root)
		if err != nil {
			return FileEvent{}, err
		}
		to, err := relativize(n.Path, root)
		if err != nil {
			return FileEvent{}, err
		}
		return FileEvent{Kind: FileRename, Path: to, Source: from}, nil
	default:
		return FileEvent{Kind: FileUnknown}, nil
	}
}

func relativize(path, root string) (string, error) {
	if root == "" || !filepath.IsAbs(path) {
		return path, nil
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", fmt.Errorf("relativizing %s to %s: %w", path, root, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path, nil
	}
	return rel, nil
}
