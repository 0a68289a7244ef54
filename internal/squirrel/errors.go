package squirrel

import (
	"errors"
	"fmt"
)

// JournalError reports that an event could not be journaled because the record
// itself is unacceptable. Storage failures are not JournalErrors, so callers
// can tell "this event is bad" apart from "the journal is broken".
type JournalError struct {
	Detail string
	Err    error
}

func (e *JournalError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("problem recording an event in the journal: %s", e.Detail)
	}
	return fmt.Sprintf("problem recording an event in the journal: %s: %v", e.Detail, e.Err)
}

func (e *JournalError) Unwrap() error { return e.Err }

// IsJournalError reports whether err (or anything it wraps) is a *JournalError.
func IsJournalError(err error) bool {
	var je *JournalError
	return errors.As(err, &je)
}
