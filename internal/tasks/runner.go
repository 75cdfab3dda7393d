package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"jobmate/jobsearch-service/internal/metrics"
	"jobmate/jobsearch-service/internal/model"
	"jobmate/jobsearch-service/internal/pipeline"
)

// DefaultTaskTimeout bounds one background task run.
const DefaultTaskTimeout = 5 * time.Minute

// TaskStore is the persistence the Runner needs.
type TaskStore interface {
	CreateTask(ctx context.Context, keyword, location string) (*Task, error)
	Transition(ctx context.Context, id string, from, to Status, out Outcome) (*Task, error)
	SaveListing(ctx context.Context, taskID, hash string, l model.Listing) (string, bool, error)
	SetParsed(ctx context.Context, jobID string, data json.RawMessage, status string) error
}

// Searcher runs the job search pipeline.
type Searcher interface {
	Search(ctx context.Context, q model.SearchQuery) ([]model.Listing, error)
}

// Parser turns a listing into structured JSON.
type Parser interface {
	ParseListing(ctx context.Context, l model.Listing) (json.RawMessage, error)
}

// EventPublisher broadcasts task transitions.
type EventPublisher interface {
	Publish(ctx context.Context, ev Event) error
}

// RunnerConfig wires a Runner. Parser, Events and Metrics are optional.
type RunnerConfig struct {
	Store    TaskStore
	Searcher Searcher
	Parser   Parser
	Events   EventPublisher
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
	Timeout  time.Duration
}

// Runner creates search tasks and drives them through their lifecycle.
type Runner struct {
	store   TaskStore
	search  Searcher
	parser  Parser
	events  EventPublisher
	metrics *metrics.Metrics
	log     *zap.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewRunner builds a Runner from cfg.
func NewRunner(cfg RunnerConfig) *Runner {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTaskTimeout
	}
	return &Runner{
		store:   cfg.Store,
		search:  cfg.Searcher,
		parser:  cfg.Parser,
		events:  cfg.Events,
		metrics: cfg.Metrics,
		log:     log.Named("runner"),
		timeout: timeout,
	}
}

// Start validates q, records a pending task and executes it in the
// background. The returned task is still pending.
func (r *Runner) Start(ctx context.Context, q model.SearchQuery) (*Task, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	t, err := r.create(ctx, q)
	if err != nil {
		return nil, err
	}

	bg := context.WithoutCancel(ctx)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		runCtx, cancel := context.WithTimeout(bg, r.timeout)
		defer cancel()
		if _, err := r.Execute(runCtx, t.ID, q); err != nil {
			r.log.Warn("task run failed", zap.String("task", t.ID), zap.Error(err))
		}
	}()
	return t, nil
}

// Run is the synchronous form of Start: it returns the finished task.
func (r *Runner) Run(ctx context.Context, q model.SearchQuery) (*Task, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	t, err := r.create(ctx, q)
	if err != nil {
		return nil, err
	}
	return r.Execute(ctx, t.ID, q)
}

// Wait blocks until every task started with Start has finished.
func (r *Runner) Wait() { r.wg.Wait() }

func (r *Runner) create(ctx context.Context, q model.SearchQuery) (*Task, error) {
	t, err := r.store.CreateTask(ctx, q.Keyword, q.Location)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	r.metrics.ObserveTransition(string(StatusPending))
	r.publish(ctx, t)
	return t, nil
}

// Execute moves a pending task to running, runs the search, saves every
// returned listing and finishes the task as completed or failed.
func (r *Runner) Execute(ctx context.Context, taskID string, q model.SearchQuery) (*Task, error) {
	t, err := r.transition(ctx, taskID, StatusPending, StatusRunning, Outcome{})
	if err != nil {
		if errors.Is(err, ErrForbiddenTransition) || errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return r.abandon(ctx, taskID, err)
	}
	log := r.log.With(zap.String("task", t.ID), zap.String("keyword", q.Keyword), zap.String("location", q.Location))
	log.Info("task running")

	listings, err := r.search.Search(ctx, q)
	if err != nil {
		return r.fail(ctx, t.ID, err)
	}

	saved := 0
	for _, l := range listings {
		id, inserted, err := r.store.SaveListing(ctx, t.ID, pipeline.Fingerprint(l), l)
		if err != nil {
			if ctx.Err() != nil {
				return r.fail(ctx, t.ID, ctx.Err())
			}
			log.Warn("save listing failed", zap.String("title", l.Title), zap.Error(err))
			continue
		}
		if !inserted {
			continue
		}
		saved++
		r.parse(ctx, id, l)
	}

	wctx, cancel := detached(ctx)
	defer cancel()
	done, err := r.transition(wctx, t.ID, StatusRunning, StatusCompleted, Outcome{
		TotalFound: len(listings),
		TotalSaved: saved,
	})
	if err != nil {
		return nil, err
	}
	log.Info("task completed", zap.Int("found", len(listings)), zap.Int("saved", saved))
	return done, nil
}

func (r *Runner) parse(ctx context.Context, jobID string, l model.Listing) {
	if r.parser == nil {
		return
	}
	status := ParseDone
	data, err := r.parser.ParseListing(ctx, l)
	if err != nil {
		r.log.Warn("parse listing failed", zap.String("job", jobID), zap.Error(err))
		status, data = ParseFailed, nil
	}
	if err := r.store.SetParsed(ctx, jobID, data, status); err != nil {
		r.log.Warn("store parse result failed", zap.String("job", jobID), zap.Error(err))
	}
}

func (r *Runner) fail(ctx context.Context, taskID string, cause error) (*Task, error) {
	wctx, cancel := detached(ctx)
	defer cancel()

	t, err := r.transition(wctx, taskID, StatusRunning, StatusFailed, Outcome{ErrorMessage: cause.Error()})
	if err != nil {
		return nil, errors.Join(cause, err)
	}
	r.log.Warn("task failed", zap.String("task", taskID), zap.Error(cause))
	return t, nil
}

// abandon fails a task that never left pending.
func (r *Runner) abandon(ctx context.Context, taskID string, cause error) (*Task, error) {
	wctx, cancel := detached(ctx)
	defer cancel()

	if _, err := r.transition(wctx, taskID, StatusPending, StatusFailed, Outcome{ErrorMessage: cause.Error()}); err != nil {
		return nil, errors.Join(cause, err)
	}
	r.log.Warn("task could not start", zap.String("task", taskID), zap.Error(cause))
	return nil, cause
}

// detached returns a context for writing a terminal status, which must
// happen even when ctx itself has ended.
func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
}

func (r *Runner) transition(ctx context.Context, id string, from, to Status, out Outcome) (*Task, error) {
	t, err := r.store.Transition(ctx, id, from, to, out)
	if err != nil {
		return nil, fmt.Errorf("task %s %s → %s: %w", id, from, to, err)
	}
	r.metrics.ObserveTransition(string(to))
	r.publish(ctx, t)
	return t, nil
}

func (r *Runner) publish(ctx context.Context, t *Task) {
	if r.events == nil {
		return
	}
	// Non-fatal: log and continue
	if err := r.events.Publish(ctx, eventFor(t)); err != nil {
		r.log.Warn("publish task event failed", zap.String("task", t.ID), zap.Error(err))
	}
}
