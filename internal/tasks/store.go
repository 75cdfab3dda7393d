package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"jobmate/jobsearch-service/internal/model"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// Store is the Postgres persistence layer for tasks, crawled jobs and
// watches.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore returns a Store backed by pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const taskColumns = `id, keyword, location, status, total_found, total_saved,
	error_message, created_at, updated_at, completed_at`

func scanTask(row pgx.Row) (*Task, error) {
	var t Task
	err := row.Scan(&t.ID, &t.Keyword, &t.Location, &t.Status, &t.TotalFound, &t.TotalSaved,
		&t.ErrorMessage, &t.CreatedAt, &t.UpdatedAt, &t.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTask inserts a pending task.
func (s *Store) CreateTask(ctx context.Context, keyword, location string) (*Task, error) {
	t, err := scanTask(s.pool.QueryRow(ctx,
		`INSERT INTO search_tasks (id, keyword, location, status)
		 VALUES ($1, $2, $3, 'pending')
		 RETURNING `+taskColumns,
		uuid.NewString(), keyword, location,
	))
	if err != nil {
		return nil, fmt.Errorf("createTask: %w", err)
	}
	return t, nil
}

// GetTask returns a task by ID.
func (s *Store) GetTask(ctx context.Context, id string) (*Task, error) {
	t, err := scanTask(s.pool.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM search_tasks WHERE id = $1`, id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("getTask: %w", err)
	}
	return t, err
}

// ListTasks returns the most recent tasks, newest first.
func (s *Store) ListTasks(ctx context.Context, limit int) ([]Task, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+taskColumns+` FROM search_tasks ORDER BY created_at DESC LIMIT $1`,
		clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("listTasks query: %w", err)
	}
	defer rows.Close()

	out := make([]Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("listTasks scan: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// Transition moves a task from → to. The update is guarded by the current
// status so a phase is written exactly once; a task that moved concurrently
// yields ErrForbiddenTransition.
func (s *Store) Transition(ctx context.Context, id string, from, to Status, out Outcome) (*Task, error) {
	if !IsTransitionAllowed(from, to) {
		return nil, fmt.Errorf("%w: %s → %s", ErrForbiddenTransition, from, to)
	}

	var errMsg *string
	if out.ErrorMessage != "" {
		errMsg = &out.ErrorMessage
	}
	t, err := scanTask(s.pool.QueryRow(ctx,
		`UPDATE search_tasks
		 SET status        = $3,
		     total_found   = CASE WHEN $3 IN ('completed', 'failed') THEN $4 ELSE total_found END,
		     total_saved   = CASE WHEN $3 IN ('completed', 'failed') THEN $5 ELSE total_saved END,
		     error_message = COALESCE($6, error_message),
		     completed_at  = CASE WHEN $3 IN ('completed', 'failed') THEN NOW() ELSE completed_at END,
		     updated_at    = NOW()
		 WHERE id = $1 AND status = $2
		 RETURNING `+taskColumns,
		id, string(from), string(to), out.TotalFound, out.TotalSaved, errMsg,
	))
	if errors.Is(err, ErrNotFound) {
		if _, getErr := s.GetTask(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, fmt.Errorf("%w: task %s is no longer %s", ErrForbiddenTransition, id, from)
	}
	if err != nil {
		return nil, fmt.Errorf("transition update: %w", err)
	}
	return t, nil
}

// SaveListing stores a listing under taskID unless a job with the same
// hash already exists. inserted is false for a duplicate.
func (s *Store) SaveListing(ctx context.Context, taskID, hash string, l model.Listing) (id string, inserted bool, err error) {
	err = s.pool.QueryRow(ctx,
		`INSERT INTO crawled_jobs (id, task_id, title, company, location, salary_range, description,
		                           source_url, source_platform, publish_date, experience_required,
		                           education, detail_url, job_hash)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 ON CONFLICT (job_hash) DO NOTHING
		 RETURNING id`,
		uuid.NewString(), taskID, l.Title, l.Company, l.Location, l.SalaryRange, l.Description,
		l.SourceURL, l.SourcePlatform, l.PublishDate, l.ExperienceRequired, l.Education, l.DetailURL, hash,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("saveListing: %w", err)
	}
	return id, true, nil
}

// SetParsed records the AI parsing result of a crawled job.
func (s *Store) SetParsed(ctx context.Context, jobID string, data json.RawMessage, status string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE crawled_jobs SET parsed_data = $2, parse_status = $3, updated_at = NOW() WHERE id = $1`,
		jobID, []byte(data), status,
	)
	if err != nil {
		return fmt.Errorf("setParsed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const jobColumns = `id, task_id, title, company, location, COALESCE(salary_range, ''), description,
	COALESCE(source_url, ''), COALESCE(source_platform, ''), COALESCE(publish_date, ''),
	COALESCE(experience_required, ''), COALESCE(education, ''), COALESCE(detail_url, ''),
	job_hash, parsed_data, parse_status, created_at`

func scanJobs(rows pgx.Rows) ([]CrawledJob, error) {
	defer rows.Close()
	out := make([]CrawledJob, 0)
	for rows.Next() {
		var (
			j      CrawledJob
			parsed []byte
		)
		if err := rows.Scan(&j.ID, &j.TaskID, &j.Title, &j.Company, &j.Location, &j.SalaryRange,
			&j.Description, &j.SourceURL, &j.SourcePlatform, &j.PublishDate, &j.ExperienceRequired,
			&j.Education, &j.DetailURL, &j.JobHash, &parsed, &j.ParseStatus, &j.CreatedAt,
		); err != nil {
			return nil, err
		}
		j.ParsedData = parsed
		out = append(out, j)
	}
	return out, rows.Err()
}

// ListTaskJobs returns the jobs saved by one task, in insertion order.
func (s *Store) ListTaskJobs(ctx context.Context, taskID string) ([]CrawledJob, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM crawled_jobs WHERE task_id = $1 ORDER BY created_at, id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("listTaskJobs query: %w", err)
	}
	jobs, err := scanJobs(rows)
	if err != nil {
		return nil, fmt.Errorf("listTaskJobs scan: %w", err)
	}
	return jobs, nil
}

// ListCrawledJobs returns stored jobs, newest first, optionally filtered by
// title keyword and location (case-insensitive substring).
func (s *Store) ListCrawledJobs(ctx context.Context, f JobFilter) ([]CrawledJob, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM crawled_jobs
		 WHERE ($1 = '' OR title ILIKE '%' || $1 || '%')
		   AND ($2 = '' OR location ILIKE '%' || $2 || '%')
		 ORDER BY created_at DESC
		 LIMIT $3`,
		f.Keyword, f.Location, clampLimit(f.Limit),
	)
	if err != nil {
		return nil, fmt.Errorf("listCrawledJobs query: %w", err)
	}
	jobs, err := scanJobs(rows)
	if err != nil {
		return nil, fmt.Errorf("listCrawledJobs scan: %w", err)
	}
	return jobs, nil
}

// DeleteCrawledJob removes one stored job.
func (s *Store) DeleteCrawledJob(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM crawled_jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleteCrawledJob: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const watchColumns = `id, keywords, locations, max_results, exclude_terms, salary_min, salary_max, is_active`

func scanWatch(row pgx.Row) (*model.Watch, error) {
	var w model.Watch
	if err := row.Scan(&w.ID, &w.Keywords, &w.Locations, &w.MaxResults, &w.ExcludeTerms,
		&w.SalaryMin, &w.SalaryMax, &w.Active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &w, nil
}

// CreateWatch inserts an active saved search.
func (s *Store) CreateWatch(ctx context.Context, w model.Watch) (*model.Watch, error) {
	created, err := scanWatch(s.pool.QueryRow(ctx,
		`INSERT INTO search_watches (id, keywords, locations, max_results, exclude_terms, salary_min, salary_max)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+watchColumns,
		uuid.NewString(), w.Keywords, nonNil(w.Locations), w.MaxResults, nonNil(w.ExcludeTerms),
		w.SalaryMin, w.SalaryMax,
	))
	if err != nil {
		return nil, fmt.Errorf("createWatch: %w", err)
	}
	return created, nil
}

// LoadActiveWatches fetches all is_active = true watches.
func (s *Store) LoadActiveWatches(ctx context.Context) ([]model.Watch, error) {
	return s.listWatches(ctx, `SELECT `+watchColumns+` FROM search_watches WHERE is_active = true ORDER BY created_at`)
}

// ListWatches returns every watch, active or not.
func (s *Store) ListWatches(ctx context.Context) ([]model.Watch, error) {
	return s.listWatches(ctx, `SELECT `+watchColumns+` FROM search_watches ORDER BY created_at DESC`)
}

func (s *Store) listWatches(ctx context.Context, query string) ([]model.Watch, error) {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query search_watches: %w", err)
	}
	defer rows.Close()

	watches := make([]model.Watch, 0)
	for rows.Next() {
		w, err := scanWatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		watches = append(watches, *w)
	}
	return watches, rows.Err()
}

// DeactivateWatch stops the scheduler from running a watch.
func (s *Store) DeactivateWatch(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE search_watches SET is_active = false, updated_at = NOW() WHERE id = $1 AND is_active`, id)
	if err != nil {
		return fmt.Errorf("deactivateWatch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func clampLimit(n int) int {
	if n <= 0 {
		return defaultListLimit
	}
	return min(n, maxListLimit)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
