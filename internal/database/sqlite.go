package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"

	"squirrel-go/internal/database/migrations"
	"squirrel-go/internal/model"
	"squirrel-go/internal/squirrel"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// MemoryPath opens a private in-memory journal.
const MemoryPath = ":memory:"

// fileParams make every committed append durable and let a reader wait out
// the writer's locks instead of failing with SQLITE_BUSY.
const fileParams = "?_journal_mode=WAL&_synchronous=FULL&_busy_timeout=5000"

const insertEvent = `
INSERT INTO events (event_type, timestamp, snapshot, before_path, after_path)
VALUES (?, ?, ?, ?, ?)`

const selectColumns = `
SELECT event_id, event_type, timestamp, snapshot, before_path, after_path
FROM events`

const orderNewestFirst = `
ORDER BY timestamp DESC, event_id DESC
LIMIT ?`

// SQLiteJournal implements the squirrel.Journal interface using SQLite.
// Records live in a single events table; ordering is (timestamp, event_id).
type SQLiteJournal struct {
	db   *sql.DB
	path string
}

// NewSQLiteJournal opens (creating if needed) the journal at path and brings
// its schema up to date. path can be a file path or ":memory:".
func NewSQLiteJournal(path string) (*SQLiteJournal, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating journal %s: %w", path, err)
	}
	return &SQLiteJournal{db: db, path: path}, nil
}

// OpenSQLiteJournal opens an existing journal for querying. It neither creates
// the file nor migrates it.
func OpenSQLiteJournal(path string) (*SQLiteJournal, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("journal not found: %w", err)
	}
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.CheckDBMigrationStatus(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal %s: %w", path, err)
	}
	return &SQLiteJournal{db: db, path: path}, nil
}

// NewSQLiteJournalFromDB wraps an existing database connection.
// The caller is responsible for ensuring the schema is in place.
func NewSQLiteJournalFromDB(db *sql.DB) *SQLiteJournal {
	return &SQLiteJournal{db: db}
}

// OpenConnection opens and configures a SQLite connection.
// This is exported for use in tests that need a properly configured SQLite connection.
func OpenConnection(path string) (*sql.DB, error) {
	dsn := path
	if path != MemoryPath {
		dsn = path + fileParams
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	if path == MemoryPath {
		// Each pooled connection to :memory: would be its own empty database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	return db, nil
}

// Path returns the journal's location, empty when wrapping a foreign connection.
func (j *SQLiteJournal) Path() string {
	return j.path
}

// Append persists the record in its own transaction and sets record.ID.
func (j *SQLiteJournal) Append(record *model.Record) error {
	if record == nil {
		return &squirrel.JournalError{Detail: "nil record"}
	}
	if record.Persisted() {
		return &squirrel.JournalError{Detail: fmt.Sprintf("record already has id %d", record.ID)}
	}
	if err := record.Validate(); err != nil {
		return &squirrel.JournalError{Detail: record.EventType.String(), Err: err}
	}

	res, err := j.db.Exec(insertEvent,
		record.EventType.String(),
		model.FormatTimestamp(record.Timestamp),
		nullable(record.Snapshot),
		record.BeforePath,
		nullable(record.AfterPath),
	)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading event id: %w", err)
	}
	record.ID = id
	return nil
}

// Page returns up to limit records, newest first, strictly older than before.
func (j *SQLiteJournal) Page(before *model.Record, limit int) ([]*model.Record, error) {
	if limit <= 0 {
		return nil, nil
	}

	var (
		rows *sql.Rows
		err  error
	)
	if before == nil {
		rows, err = j.db.Query(selectColumns+orderNewestFirst, limit)
	} else {
		ts := model.FormatTimestamp(before.Timestamp)
		rows, err = j.db.Query(selectColumns+`
WHERE timestamp < ? OR (timestamp = ? AND event_id < ?)`+orderNewestFirst,
			ts, ts, before.ID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var records []*model.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating events: %w", err)
	}
	return records, nil
}

// Close closes the database connection.
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

func scanRecord(rows *sql.Rows) (*model.Record, error) {
	var (
		id         int64
		token      string
		timestamp  string
		snapshot   sql.NullString
		beforePath string
		afterPath  sql.NullString
	)
	if err := rows.Scan(&id, &token, &timestamp, &snapshot, &beforePath, &afterPath); err != nil {
		return nil, fmt.Errorf("scanning event: %w", err)
	}

	eventType, err := model.ParseEventType(token)
	if err != nil {
		return nil, fmt.Errorf("event %d: %w", id, err)
	}
	ts, err := model.ParseTimestamp(timestamp)
	if err != nil {
		return nil, fmt.Errorf("event %d: %w", id, err)
	}

	return &model.Record{
		ID:         id,
		EventType:  eventType,
		Timestamp:  ts,
		Snapshot:   snapshot.String,
		BeforePath: beforePath,
		AfterPath:  afterPath.String,
	}, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// IsNotFound reports whether err came from opening a journal that does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}

// Compile-time check that SQLiteJournal implements squirrel.Journal
var _ squirrel.Journal = (*SQLiteJournal)(nil)
