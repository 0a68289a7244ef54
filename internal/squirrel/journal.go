package squirrel

import (
	"fmt"
	"iter"

	"squirrel-go/internal/model"
)

// JournalWriter is the append side of the journal.
type JournalWriter interface {
	// Append durably persists the record and sets its ID.
	// A malformed record fails with a *JournalError; storage failures are
	// returned as ordinary wrapped errors.
	Append(record *model.Record) error
}

// JournalReader is the query side of the journal.
type JournalReader interface {
	// Page returns up to limit records ordered newest first (timestamp, then ID,
	// both descending). When before is non-nil only records strictly older than
	// before in that order are returned.
	Page(before *model.Record, limit int) ([]*model.Record, error)
}

// Journal is a store supporting append and ordered reverse reads.
type Journal interface {
	JournalWriter
	JournalReader

	// Close releases the underlying storage handle.
	Close() error
}

// DefaultPageSize is used by Backwards when pageSize is not positive.
const DefaultPageSize = 256

// Backwards returns a lazy, newest-first traversal of every record in the
// journal. Each record is yielded exactly once per traversal. An error ends the
// traversal after being yielded; an unrecognized event type in storage is such
// an error.
func Backwards(r JournalReader, pageSize int) iter.Seq2[*model.Record, error] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return func(yield func(*model.Record, error) bool) {
		var cursor *model.Record
		for {
			page, err := r.Page(cursor, pageSize)
			if err != nil {
				yield(nil, fmt.Errorf("reading journal page: %w", err))
				return
			}
			for _, rec := range page {
				if !yield(rec, nil) {
					return
				}
			}
			if len(page) < pageSize {
				return
			}
			cursor = page[len(page)-1]
		}
	}
}
