package squirrel

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"squirrel-go/internal/model"
)

// Squirrel is the dispatcher: for every admitted event it decides what to
// snapshot and how to describe it, then writes exactly one journal record.
// It owns the journal writer and the snapshot store for its lifetime and is
// not safe for concurrent use.
type Squirrel struct {
	root    string
	journal JournalWriter
	store   SnapshotStore
	fsmgr   FilesystemManager
	logger  Logger
	clock   Clock
}

// NewSquirrel creates a dispatcher for the tree rooted at root.
func NewSquirrel(root string, journal JournalWriter, store SnapshotStore, fsmgr FilesystemManager, logger Logger, clock Clock) *Squirrel {
	return &Squirrel{
		root:    root,
		journal: journal,
		store:   store,
		fsmgr:   fsmgr,
		logger:  logger,
		clock:   clock,
	}
}

// Dispatch processes one event to completion.
// Snapshot and journal failures are returned; there is no retry.
func (s *Squirrel) Dispatch(event FileEvent) error {
	switch event.Kind {
	case FileWrite:
		return s.recordWriteOrCreate(event.Path, model.EventUpdate)
	case FileCreate:
		return s.recordWriteOrCreate(event.Path, model.EventCreate)
	case FileRemove:
		return s.recordRemove(event.Path)
	case FileRename:
		return s.recordRename(event.Source, event.Path)
	default:
		return nil
	}
}

func (s *Squirrel) recordWriteOrCreate(path string, eventType model.EventType) error {
	snapshot, ok, err := s.snapshot(path)
	if err != nil || !ok {
		return err
	}

	return s.append(&model.Record{
		EventType:  eventType,
		Timestamp:  s.clock.Now(),
		Snapshot:   snapshot,
		BeforePath: path,
	})
}

func (s *Squirrel) recordRemove(path string) error {
	return s.append(&model.Record{
		EventType:  model.EventRemove,
		Timestamp:  s.clock.Now(),
		BeforePath: path,
	})
}

func (s *Squirrel) recordRename(source, destination string) error {
	snapshot, ok, err := s.snapshot(destination)
	if err != nil || !ok {
		return err
	}

	return s.append(&model.Record{
		EventType:  model.EventRename,
		Timestamp:  s.clock.Now(),
		Snapshot:   snapshot,
		BeforePath: source,
		AfterPath:  destination,
	})
}

// snapshot copies the current content of path into the store.
// ok is false when there is nothing to copy: the path is a directory or
// special file, or it vanished before it could be read.
func (s *Squirrel) snapshot(path string) (name string, ok bool, err error) {
	abs := s.abs(path)

	info, err := s.fsmgr.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("file vanished before snapshot", "path", path)
			return "", false, nil
		}
		return "", false, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		s.logger.Debug("skipping directory", "path", path)
		return "", false, nil
	}
	if !info.Mode().IsRegular() {
		s.logger.Debug("skipping special file", "path", path, "mode", info.Mode().String())
		return "", false, nil
	}

	f, err := s.fsmgr.Open(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("file vanished before snapshot", "path", path)
			return "", false, nil
		}
		return "", false, fmt.Errorf("opening %s for snapshot: %w", path, err)
	}
	defer f.Close()

	name, err = s.store.Save(path, f)
	if err != nil {
		return "", false, fmt.Errorf("saving snapshot of %s: %w", path, err)
	}

	s.logger.Debug("snapshot saved", "path", path, "snapshot", name)
	return name, true, nil
}

func (s *Squirrel) append(record *model.Record) error {
	record.Timestamp = model.NormalizeTime(record.Timestamp)
	if err := s.journal.Append(record); err != nil {
		return fmt.Errorf("journaling %s of %s: %w", record.EventType, record.BeforePath, err)
	}

	s.logger.Info("event journaled",
		"id", record.ID,
		"type", record.EventType.String(),
		"path", record.BeforePath,
	)
	return nil
}

func (s *Squirrel) abs(path string) string {
	if filepath.IsAbs(path) || s.root == "" {
		return path
	}
	return filepath.Join(s.root, path)
}
