package tasks

import (
	"encoding/json"
	"errors"
	"time"

	"jobmate/jobsearch-service/internal/model"
)

// ParseStatus values of crawled_jobs.parse_status.
const (
	ParsePending = "pending"
	ParseDone    = "parsed"
	ParseFailed  = "failed"
)

// Task is the persisted record of one search invocation.
type Task struct {
	ID           string     `json:"id"`
	Keyword      string     `json:"keyword"`
	Location     string     `json:"location"`
	Status       Status     `json:"status"`
	TotalFound   int        `json:"total_found"`
	TotalSaved   int        `json:"total_saved"`
	ErrorMessage *string    `json:"error_message"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	CompletedAt  *time.Time `json:"completed_at"`
}

// CrawledJob is a listing saved by a task.
type CrawledJob struct {
	ID     string `json:"id"`
	TaskID string `json:"task_id"`
	model.Listing
	JobHash     string          `json:"job_hash"`
	ParsedData  json.RawMessage `json:"parsed_data,omitempty"`
	ParseStatus string          `json:"parse_status"`
	CreatedAt   time.Time       `json:"created_at"`
}

// JobFilter narrows ListCrawledJobs.
type JobFilter struct {
	Keyword  string
	Location string
	Limit    int
}

// Outcome carries the result of a finished task run.
type Outcome struct {
	TotalFound   int
	TotalSaved   int
	ErrorMessage string
}

// ErrNotFound is returned when a task, job or watch does not exist.
var ErrNotFound = errors.New("not found")

// ErrForbiddenTransition is returned when the state machine rejects a
// status change, or the task moved concurrently.
var ErrForbiddenTransition = errors.New("forbidden status transition")

// ValidationError wraps a user-facing validation message.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }
