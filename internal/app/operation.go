package app

import "time"

// Operation statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Operation tracks one CLI invocation. Its ID prefixes every log line the
// invocation writes, so lines from concurrent runs can be told apart.
type Operation struct {
	ID        string
	Name      string
	StartedAt time.Time
	Status    string // StatusSuccess or StatusError
}

// NewOperation creates an operation started at now.
func NewOperation(name string, now time.Time) *Operation {
	return &Operation{
		ID:        now.UTC().Format("20060102T150405Z"),
		Name:      name,
		StartedAt: now,
		Status:    StatusSuccess,
	}
}

// Elapsed returns the time since the operation started, truncated to
// milliseconds.
func (op *Operation) Elapsed(now time.Time) time.Duration {
	return now.Sub(op.StartedAt).Truncate(time.Millisecond)
}
