package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"squirrel-go/internal/config"
	"squirrel-go/internal/database"
	"squirrel-go/internal/fs"
	"squirrel-go/internal/squirrel"
	"squirrel-go/internal/stash"
	"squirrel-go/internal/watch"
)

// App is the application layer between the CLI and the squirrel pipeline.
// It constructs all dependencies from config for one watched root, exposes
// the high-level operations, and manages the journal lifecycle on Close.
type App struct {
	cfg      *config.Config
	root     string
	stashDir string
	journal  squirrel.Journal
	store    stash.Store    // nil unless the operation is mutating
	filter   *fs.PathFilter // nil unless the operation is mutating
	fsmgr    squirrel.FilesystemManager
	logger   squirrel.Logger
	logFile  io.Closer
	clock    squirrel.Clock
	op       *Operation
	ready    chan struct{}
}

// NewApp creates a fully wired App for the tree at rawRoot.
// operation is OpWatch or OpShow; only OpWatch creates the stash and opens
// the journal for writing. Log lines are mirrored to stderr when non-nil.
// The caller must call Close when done.
func NewApp(cfg *config.Config, rawRoot, operation string, stderr io.Writer) (*App, error) {
	clock := squirrel.RealClock{}
	op := NewOperation(operation, rawRoot, clock)
	if op.Name != OpWatch && op.Name != OpShow {
		return nil, fmt.Errorf("unknown operation: %s", operation)
	}

	root, err := resolveRoot(rawRoot)
	if err != nil {
		return nil, err
	}

	slogger, logFile, err := newLogger(cfg, op.ID, stderr)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger.With(slog.String("op", op.Name))}

	a := &App{
		cfg:      cfg,
		root:     root,
		stashDir: cfg.StashPath(root),
		fsmgr:    fs.NewOSFilesystemManager(),
		logger:   logger,
		logFile:  logFile,
		clock:    clock,
		op:       op,
		ready:    make(chan struct{}),
	}

	if op.Mutating() {
		err = a.openForWatch()
	} else {
		err = a.openForShow()
	}
	if err != nil {
		logFile.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) openForWatch() error {
	if err := os.MkdirAll(a.stashDir, 0755); err != nil {
		return fmt.Errorf("creating stash directory: %w", err)
	}

	store, err := stash.NewStoreFromConfig(a.cfg.Stash, a.stashDir, squirrel.UUIDGenerator{})
	if err != nil {
		return fmt.Errorf("creating stash: %w", err)
	}

	filter, err := fs.NewPathFilter(a.root, a.stashDir, a.cfg.Filesystem.Ignore, a.logger)
	if err != nil {
		return fmt.Errorf("creating path filter: %w", err)
	}

	journal, err := database.NewJournalFromConfig(a.cfg.Journal, a.stashDir, true)
	if err != nil {
		return fmt.Errorf("opening journal: %w", err)
	}

	a.store, a.filter, a.journal = store, filter, journal
	return nil
}

func (a *App) openForShow() error {
	journal, err := database.NewJournalFromConfig(a.cfg.Journal, a.stashDir, false)
	if err != nil {
		if database.IsNotFound(err) {
			return fmt.Errorf("no history recorded under %s: %w", a.root, err)
		}
		return fmt.Errorf("opening journal: %w", err)
	}
	a.journal = journal
	return nil
}

// resolveRoot makes rawRoot absolute and canonical and checks it is a directory.
func resolveRoot(rawRoot string) (string, error) {
	abs, err := filepath.Abs(rawRoot)
	if err != nil {
		return "", fmt.Errorf("resolving root: %w", err)
	}
	root, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("resolving root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return "", fmt.Errorf("resolving root: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("root is not a directory: %s", root)
	}
	return root, nil
}

// Root returns the canonical watched root.
func (a *App) Root() string {
	return a.root
}

// Ready is closed once Run has its watches in place.
func (a *App) Ready() <-chan struct{} {
	return a.ready
}

// Run watches the tree and journals every admitted change until ctx is
// cancelled. A snapshot or journal failure stops the run and is returned.
func (a *App) Run(ctx context.Context) (err error) {
	defer func() { a.op.Finish(err, a.clock) }()

	if !a.op.Mutating() {
		return fmt.Errorf("operation %s cannot watch", a.op.Name)
	}

	w, err := watch.NewWatcher(a.root, a.cfg.Watch.Debounce, a.filter, a.logger, a.clock)
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		w.Stop()
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer func() {
		if stopErr := w.Stop(); stopErr != nil {
			err = errors.Join(err, stopErr)
		}
	}()
	close(a.ready)

	sq := squirrel.NewSquirrel(a.root, a.journal, a.store, a.fsmgr, a.logger, a.clock)
	srv := squirrel.NewServer(a.root, a.filter, sq, a.logger)
	return srv.Serve(ctx, w.Events(), w.Errors())
}

// ShowHistory writes the journaled history of every path matching glob to w,
// newest first, and returns the number of rows written.
func (a *App) ShowHistory(w io.Writer, glob string, header bool) (n int, err error) {
	defer func() { a.op.Finish(err, a.clock) }()

	pattern, err := fs.NewPattern(glob)
	if err != nil {
		return 0, fmt.Errorf("invalid pattern %q: %w", glob, err)
	}

	viewer := squirrel.NewViewer(a.journal, a.cfg.StashDir, a.cfg.Journal.PageSize, header)
	return viewer.Show(w, pattern)
}

// Close logs the operation outcome and closes all resources.
func (a *App) Close() error {
	if a.op.Done() {
		a.logger.Info("operation finished", "status", a.op.Status, "duration", a.op.Duration().String())
	}

	var firstErr error
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			firstErr = fmt.Errorf("closing journal: %w", err)
		}
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
