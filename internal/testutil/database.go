package testutil

import (
	"testing"

	"squirrel-go/internal/database"
	"squirrel-go/internal/model"
	"squirrel-go/internal/squirrel"
)

// NewTestJournal creates a new in-memory SQLite journal with schema applied.
// The journal is automatically closed when the test completes.
func NewTestJournal(t *testing.T) squirrel.Journal {
	t.Helper()

	j, err := database.NewSQLiteJournal(database.MemoryPath)
	if err != nil {
		t.Fatalf("failed to open journal: %v", err)
	}

	t.Cleanup(func() {
		j.Close()
	})

	return j
}

// AllRecords reads the whole journal, newest first.
func AllRecords(t *testing.T, r squirrel.JournalReader) []*model.Record {
	t.Helper()

	var records []*model.Record
	for rec, err := range squirrel.Backwards(r, 0) {
		if err != nil {
			t.Fatalf("reading journal: %v", err)
		}
		records = append(records, rec)
	}
	return records
}
