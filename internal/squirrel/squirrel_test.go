package squirrel_test

import (
	"errors"
	"io/fs"
	"testing"
	"time"

	"squirrel-go/internal/model"
	"squirrel-go/internal/squirrel"
	"squirrel-go/internal/stash"
	"squirrel-go/internal/testutil"
)

const root = "/srv/tree"

type fixture struct {
	journal squirrel.Journal
	store   *stash.MemoryStore
	fsmgr   *testutil.MockFilesystemManager
	logger  *testutil.CapturingLogger
	sq      *squirrel.Squirrel
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		journal: testutil.NewTestJournal(t),
		store:   testutil.NewTestStore(),
		fsmgr:   testutil.NewMockFilesystemManager(),
		logger:  testutil.NewCapturingLogger(),
	}
	clock := testutil.NewTickingClock(time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), time.Second)
	f.sq = squirrel.NewSquirrel(root, f.journal, f.store, f.fsmgr, f.logger, clock)
	return f
}

func TestSquirrel_Dispatch(t *testing.T) {
	t.Run("create snapshots and journals", func(t *testing.T) {
		f := newFixture(t)
		f.fsmgr.AddFile(root+"/foo.txt", []byte("x"))

		if err := f.sq.Dispatch(squirrel.FileEvent{Kind: squirrel.FileCreate, Path: "foo.txt"}); err != nil {
			t.Fatalf("Dispatch() error = %v", err)
		}

		records := testutil.AllRecords(t, f.journal)
		if len(records) != 1 {
			t.Fatalf("journal has %d records, want 1", len(records))
		}
		rec := records[0]
		if rec.EventType != model.EventCreate || rec.BeforePath != "foo.txt" || rec.AfterPath != "" {
			t.Errorf("record = %+v, want Create of foo.txt", rec)
		}
		if rec.Snapshot == "" {
			t.Fatal("record has no snapshot")
		}
		if got := testutil.ReadSnapshot(t, f.store, rec.Snapshot); got != "x" {
			t.Errorf("snapshot content = %q, want %q", got, "x")
		}
	})

	t.Run("write journals an update", func(t *testing.T) {
		f := newFixture(t)
		f.fsmgr.AddFile(root+"/docs/a.md", []byte("v2"))

		if err := f.sq.Dispatch(squirrel.FileEvent{Kind: squirrel.FileWrite, Path: "docs/a.md"}); err != nil {
			t.Fatalf("Dispatch() error = %v", err)
		}

		records := testutil.AllRecords(t, f.journal)
		if len(records) != 1 || records[0].EventType != model.EventUpdate {
			t.Fatalf("records = %+v, want one Update", records)
		}
		if got := testutil.ReadSnapshot(t, f.store, records[0].Snapshot); got != "v2" {
			t.Errorf("snapshot content = %q, want %q", got, "v2")
		}
	})

	t.Run("remove journals without snapshot", func(t *testing.T) {
		f := newFixture(t)

		if err := f.sq.Dispatch(squirrel.FileEvent{Kind: squirrel.FileRemove, Path: "bar.txt"}); err != nil {
			t.Fatalf("Dispatch() error = %v", err)
		}

		records := testutil.AllRecords(t, f.journal)
		if len(records) != 1 {
			t.Fatalf("journal has %d records, want 1", len(records))
		}
		if rec := records[0]; rec.EventType != model.EventRemove || rec.Snapshot != "" || rec.BeforePath != "bar.txt" {
			t.Errorf("record = %+v, want Remove of bar.txt without snapshot", rec)
		}
		if f.store.Len() != 0 {
			t.Errorf("store has %d snapshots, want 0", f.store.Len())
		}
	})

	t.Run("rename snapshots the destination", func(t *testing.T) {
		f := newFixture(t)
		f.fsmgr.AddFile(root+"/bar.txt", []byte("moved"))

		event := squirrel.FileEvent{Kind: squirrel.FileRename, Source: "foo.txt", Path: "bar.txt"}
		if err := f.sq.Dispatch(event); err != nil {
			t.Fatalf("Dispatch() error = %v", err)
		}

		records := testutil.AllRecords(t, f.journal)
		if len(records) != 1 {
			t.Fatalf("journal has %d records, want 1", len(records))
		}
		rec := records[0]
		if rec.EventType != model.EventRename || rec.BeforePath != "foo.txt" || rec.AfterPath != "bar.txt" {
			t.Errorf("record = %+v, want Rename foo.txt -> bar.txt", rec)
		}
		if got := testutil.ReadSnapshot(t, f.store, rec.Snapshot); got != "moved" {
			t.Errorf("snapshot content = %q, want %q", got, "moved")
		}
	})

	t.Run("vanished file is skipped with a warning", func(t *testing.T) {
		f := newFixture(t)

		if err := f.sq.Dispatch(squirrel.FileEvent{Kind: squirrel.FileWrite, Path: "gone.txt"}); err != nil {
			t.Fatalf("Dispatch() error = %v", err)
		}
		if n := len(testutil.AllRecords(t, f.journal)); n != 0 {
			t.Errorf("journal has %d records, want 0", n)
		}
		if !f.logger.Has("WARN", "vanished") {
			t.Errorf("expected vanished warning, log:\n%s", f.logger)
		}
	})

	t.Run("file removed between stat and open is skipped", func(t *testing.T) {
		f := newFixture(t)
		f.fsmgr.AddFile(root+"/tmp.swp", []byte("swap"))
		f.fsmgr.FailOpen(root+"/tmp.swp", &fs.PathError{Op: "open", Path: root + "/tmp.swp", Err: fs.ErrNotExist})

		if err := f.sq.Dispatch(squirrel.FileEvent{Kind: squirrel.FileCreate, Path: "tmp.swp"}); err != nil {
			t.Fatalf("Dispatch() error = %v", err)
		}
		if n := len(testutil.AllRecords(t, f.journal)); n != 0 {
			t.Errorf("journal has %d records, want 0", n)
		}
		if f.store.Len() != 0 {
			t.Errorf("store has %d snapshots, want 0", f.store.Len())
		}
		if !f.logger.Has("WARN", "vanished") {
			t.Errorf("expected vanished warning, log:\n%s", f.logger)
		}
	})

	t.Run("directories and special files are skipped", func(t *testing.T) {
		f := newFixture(t)
		f.fsmgr.AddDirectory(root + "/sub")
		f.fsmgr.AddSpecial(root+"/fifo", fs.ModeNamedPipe)

		for _, path := range []string{"sub", "fifo"} {
			if err := f.sq.Dispatch(squirrel.FileEvent{Kind: squirrel.FileCreate, Path: path}); err != nil {
				t.Fatalf("Dispatch(%s) error = %v", path, err)
			}
		}
		if n := len(testutil.AllRecords(t, f.journal)); n != 0 {
			t.Errorf("journal has %d records, want 0", n)
		}
	})

	t.Run("open failure is returned and nothing is journaled", func(t *testing.T) {
		f := newFixture(t)
		f.fsmgr.AddFile(root+"/locked", []byte("secret"))
		f.fsmgr.FailOpen(root+"/locked", fs.ErrPermission)

		err := f.sq.Dispatch(squirrel.FileEvent{Kind: squirrel.FileWrite, Path: "locked"})
		if !errors.Is(err, fs.ErrPermission) {
			t.Fatalf("Dispatch() error = %v, want permission error", err)
		}
		if n := len(testutil.AllRecords(t, f.journal)); n != 0 {
			t.Errorf("journal has %d records, want 0", n)
		}
	})

	t.Run("unknown events are ignored", func(t *testing.T) {
		f := newFixture(t)

		if err := f.sq.Dispatch(squirrel.FileEvent{Kind: squirrel.FileUnknown}); err != nil {
			t.Fatalf("Dispatch() error = %v", err)
		}
		if n := len(testutil.AllRecords(t, f.journal)); n != 0 {
			t.Errorf("journal has %d records, want 0", n)
		}
	})

	t.Run("each event gets a distinct snapshot and id", func(t *testing.T) {
		f := newFixture(t)
		f.fsmgr.AddFile(root+"/a.txt", []byte("1"))
		if err := f.sq.Dispatch(squirrel.FileEvent{Kind: squirrel.FileCreate, Path: "a.txt"}); err != nil {
			t.Fatalf("Dispatch() error = %v", err)
		}
		f.fsmgr.UpdateFile(root+"/a.txt", []byte("2"))
		if err := f.sq.Dispatch(squirrel.FileEvent{Kind: squirrel.FileWrite, Path: "a.txt"}); err != nil {
			t.Fatalf("Dispatch() error = %v", err)
		}

		records := testutil.AllRecords(t, f.journal)
		if len(records) != 2 {
			t.Fatalf("journal has %d records, want 2", len(records))
		}
		newest, oldest := records[0], records[1]
		if newest.ID == oldest.ID || newest.Snapshot == oldest.Snapshot {
			t.Errorf("records share identity: %+v, %+v", newest, oldest)
		}
		if got := testutil.ReadSnapshot(t, f.store, oldest.Snapshot); got != "1" {
			t.Errorf("old snapshot = %q, want %q (snapshots must not change)", got, "1")
		}
		if got := testutil.ReadSnapshot(t, f.store, newest.Snapshot); got != "2" {
			t.Errorf("new snapshot = %q, want %q", got, "2")
		}
	})
}

// failingJournal rejects every append.
type failingJournal struct{ err error }

func (j failingJournal) Append(*model.Record) error { return j.err }

func TestSquirrel_JournalFailure(t *testing.T) {
	fsmgr := testutil.NewMockFilesystemManager()
	fsmgr.AddFile(root+"/a.txt", []byte("x"))
	boom := errors.New("disk full")

	sq := squirrel.NewSquirrel(root, failingJournal{err: boom}, testutil.NewTestStore(), fsmgr, squirrel.NewNopLogger(), testutil.FixedClock())

	err := sq.Dispatch(squirrel.FileEvent{Kind: squirrel.FileCreate, Path: "a.txt"})
	if !errors.Is(err, boom) {
		t.Errorf("Dispatch() error = %v, want %v", err, boom)
	}
}
