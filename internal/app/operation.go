package app

import (
	"time"

	"squirrel-go/internal/squirrel"
)

// Operation names, one per CLI command that opens the stash.
const (
	OpWatch = "Watch"
	OpShow  = "Show"
)

// Operation tracks one CLI invocation. Its ID tags every log line the
// invocation writes so interleaved runs can be told apart.
type Operation struct {
	ID         string
	Name       string
	Parameters string
	Started    time.Time
	Finished   time.Time
	Status     string // "running", "success" or "error"
}

// NewOperation creates a running operation started now.
func NewOperation(name, parameters string, clock squirrel.Clock) *Operation {
	now := clock.Now().UTC()
	return &Operation{
		ID:         now.Format("20060102T150405Z"),
		Name:       name,
		Parameters: parameters,
		Started:    now,
		Status:     "running",
	}
}

// Mutating reports whether the operation writes to the stash and journal.
func (op *Operation) Mutating() bool {
	return op.Name == OpWatch
}

// Finish records the outcome of the operation.
func (op *Operation) Finish(err error, clock squirrel.Clock) {
	op.Finished = clock.Now().UTC()
	if err != nil {
		op.Status = "error"
		return
	}
	op.Status = "success"
}

// Done returns true once Finish has been called.
func (op *Operation) Done() bool {
	return !op.Finished.IsZero()
}

// Duration returns how long the operation ran, or zero if it is still running.
func (op *Operation) Duration() time.Duration {
	if !op.Done() {
		return 0
	}
	return op.Finished.Sub(op.Started)
}
