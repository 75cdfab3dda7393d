// Package tasks persists and runs search tasks.
//
// Valid status graph:
//
//	pending ──► running ──► completed
//	   │           │
//	   └───────────┴──────► failed
//
// completed and failed are terminal states.
package tasks

import "fmt"

// Status values mirror the CHECK constraint on search_tasks.status.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// validTransitions lists every allowed (from → to) pair.
var validTransitions = map[Status][]Status{
	StatusPending: {StatusRunning, StatusFailed},
	StatusRunning: {StatusCompleted, StatusFailed},
	// completed and failed are terminal
}

// ParseStatus converts a raw string to a Status, returning an error for
// unknown values.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	switch st {
	case StatusPending, StatusRunning, StatusCompleted, StatusFailed:
		return st, nil
	}
	return "", fmt.Errorf("unknown task status %q", s)
}

// IsTransitionAllowed returns true when moving from → to is permitted by the
// state machine.
func IsTransitionAllowed(from, to Status) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal returns true for completed and failed.
func IsTerminal(s Status) bool { return s == StatusCompleted || s == StatusFailed }
