// Package watch turns fsnotify's raw, per-directory operations into the
// coalesced, recursive notifications the event loop consumes.
package watch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"squirrel-go/internal/squirrel"
)

// minTick bounds how often pending notifications are checked.
const minTick = 10 * time.Millisecond

// Watcher watches a directory tree recursively and emits one notification per
// path once the path has been quiet for the debounce window. Directories the
// filter rejects are not watched.
type Watcher struct {
	root      string
	debounce  time.Duration
	filter    squirrel.PathFilter
	logger    squirrel.Logger
	clock     squirrel.Clock
	fsw       *fsnotify.Watcher
	coalescer *Coalescer
	events    chan squirrel.Notification
	errors    chan error
	done      chan struct{}
	wg        sync.WaitGroup
	mu        sync.Mutex
	running   bool
	dirs      map[string]bool // watched directories; owned by the event goroutine after Start
	files     map[string]bool // files seen in watched directories; same ownership as dirs
}

// NewWatcher creates a watcher for the tree at root. filter may be nil to
// watch every directory.
// The watcher must be started with Start() before it will emit events.
func NewWatcher(root string, debounce time.Duration, filter squirrel.PathFilter, logger squirrel.Logger, clock squirrel.Clock) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		root:      root,
		debounce:  debounce,
		filter:    filter,
		logger:    logger,
		clock:     clock,
		fsw:       fsw,
		coalescer: NewCoalescer(debounce),
		events:    make(chan squirrel.Notification, 100),
		errors:    make(chan error, 10),
		done:      make(chan struct{}),
		dirs:      make(map[string]bool),
		files:     make(map[string]bool),
	}, nil
}

// Start adds watches for the whole tree and begins delivering notifications.
// Returns an error if the root itself cannot be watched.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("watcher already running")
	}

	info, err := os.Stat(w.root)
	if err != nil {
		return fmt.Errorf("cannot watch %s: %w", w.root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("cannot watch %s: not a directory", w.root)
	}
	if err := w.addTree(w.root, nil); err != nil {
		return err
	}

	w.running = true
	w.wg.Add(1)
	go w.processEvents()

	w.logger.Debug("watch started", "root", w.root, "directories", len(w.dirs))
	return nil
}

// Stop stops watching and closes the Events and Errors channels. It also
// releases a watcher that was never started.
// Notifications still inside the debounce window are dropped.
// It blocks until the event processing goroutine has exited.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		// Never started, or already stopped; fsnotify tolerates a second Close.
		return w.fsw.Close()
	}
	w.running = false
	w.mu.Unlock()

	close(w.done)
	err := w.fsw.Close()
	w.wg.Wait()

	close(w.events)
	close(w.errors)

	if err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

// Events returns the channel of coalesced notifications.
// This channel is closed when the watcher is stopped.
func (w *Watcher) Events() <-chan squirrel.Notification {
	return w.events
}

// Errors returns the channel of watch-source errors.
// This channel is closed when the watcher is stopped.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()

	tick := w.debounce / 4
	if tick < minTick {
		tick = minTick
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			if n := w.coalescer.Pending(); n > 0 {
				w.logger.Debug("dropping pending notifications", "count", n)
			}
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			if !w.sendError(err) {
				return
			}

		case <-ticker.C:
			for _, n := range w.coalescer.Flush(w.clock.Now(), false) {
				select {
				case w.events <- n:
				case <-w.done:
					return
				}
			}
		}
	}
}

// handle feeds one raw event to the coalescer, keeping the watched
// directories and known files in step with the tree.
func (w *Watcher) handle(event fsnotify.Event) {
	now := w.clock.Now()

	// A renamed directory is reported again by its own watch after the
	// parent has reported it. By then it is no longer tracked.
	if event.Op == fsnotify.Rename && !w.dirs[event.Name] && !w.files[event.Name] {
		w.logger.Debug("ignoring rename of untracked path", "path", event.Name)
		return
	}

	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		// A directory that leaves the tree reports nothing for its contents.
		for _, path := range w.forgetTree(event.Name) {
			w.coalescer.Add(fsnotify.Remove, path, now)
		}
	}

	w.coalescer.Add(event.Op, event.Name, now)

	if event.Has(fsnotify.Create) {
		info, err := os.Lstat(event.Name)
		if err == nil && !info.IsDir() {
			w.files[event.Name] = true
		}
		if err == nil && info.IsDir() {
			// Files created before the watch was added produce no events of their own.
			if err := w.addTree(event.Name, func(path string) {
				w.coalescer.Add(fsnotify.Create, path, now)
			}); err != nil && !w.sendError(err) {
				return
			}
		}
	}
}

// addTree watches dir and every admitted directory beneath it. found, if
// non-nil, is called for each non-directory entry discovered.
func (w *Watcher) addTree(dir string, found func(path string)) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return fmt.Errorf("walking %s: %w", dir, err)
			}
			// Entries can vanish mid-walk.
			w.logger.Debug("skipping unreadable entry", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() {
			w.files[path] = true
			if found != nil {
				found(path)
			}
			return nil
		}
		if path != w.root && w.filter != nil && !w.filter.Allow(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			if path == w.root {
				return fmt.Errorf("failed to watch %s: %w", path, err)
			}
			w.logger.Warn("failed to watch directory", "path", path, "error", err)
			return filepath.SkipDir
		}
		w.dirs[path] = true
		return nil
	})
}

// forgetTree drops watches on path and everything beneath it. It returns the
// known files that were beneath path, sorted.
func (w *Watcher) forgetTree(path string) []string {
	delete(w.files, path)
	if !w.dirs[path] {
		return nil
	}

	prefix := path + string(filepath.Separator)
	var gone []string
	for file := range w.files {
		if strings.HasPrefix(file, prefix) {
			delete(w.files, file)
			gone = append(gone, file)
		}
	}
	slices.Sort(gone)

	for dir := range w.dirs {
		if dir != path && !strings.HasPrefix(dir, prefix) {
			continue
		}
		delete(w.dirs, dir)
		if err := w.fsw.Remove(dir); err != nil && !errors.Is(err, fsnotify.ErrNonExistentWatch) {
			w.logger.Debug("failed to remove watch", "path", dir, "error", err)
		}
	}
	return gone
}

func (w *Watcher) sendError(err error) bool {
	select {
	case w.errors <- err:
		return true
	case <-w.done:
		return false
	}
}
