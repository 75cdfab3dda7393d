// Package scheduler wires up the cron job that periodically re-runs every
// active watch.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"jobmate/jobsearch-service/internal/model"
)

// WatchSource loads the watches to run.
type WatchSource interface {
	LoadActiveWatches(ctx context.Context) ([]model.Watch, error)
}

// WatchRunner runs one watch.
type WatchRunner interface {
	RunWatch(ctx context.Context, w model.Watch) error
}

// Scheduler wraps robfig/cron and manages the watch loop.
type Scheduler struct {
	cron    *cron.Cron
	watches WatchSource
	runner  WatchRunner
	spec    string // cron spec, e.g. "@every 6h"
	log     *zap.Logger
}

// New creates a Scheduler that fires every intervalHours hours.
func New(watches WatchSource, runner WatchRunner, intervalHours int, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("scheduler")
	cronLog := cron.PrintfLogger(zap.NewStdLog(log))
	return &Scheduler{
		// SkipIfStillRunning keeps a slow cycle from overlapping the next tick.
		cron:    cron.New(cron.WithLogger(cronLog), cron.WithChain(cron.SkipIfStillRunning(cronLog))),
		watches: watches,
		runner:  runner,
		spec:    fmt.Sprintf("@every %dh", intervalHours),
		log:     log,
	}
}

// Start registers the job and starts the scheduler. It also runs one cycle
// immediately so new watches produce results without waiting for a tick.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	s.log.Info("cron started", zap.String("spec", s.spec))

	go s.RunOnce(ctx)
	return nil
}

// Stop halts the scheduler and waits for a running cycle to finish or ctx
// to end.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
	s.log.Info("cron stopped")
}

// RunOnce loads all active watches and runs each of them.
func (s *Scheduler) RunOnce(ctx context.Context) {
	s.log.Info("watch cycle started")

	watches, err := s.watches.LoadActiveWatches(ctx)
	if err != nil {
		s.log.Error("load active watches", zap.Error(err))
		return
	}
	if len(watches) == 0 {
		s.log.Info("no active watches, nothing to run")
		return
	}

	s.log.Info("running watches", zap.Int("count", len(watches)))
	for _, w := range watches {
		if ctx.Err() != nil {
			s.log.Info("watch cycle interrupted", zap.Error(ctx.Err()))
			return
		}
		if err := s.runner.RunWatch(ctx, w); err != nil {
			s.log.Warn("watch run error", zap.String("watch", w.ID), zap.Error(err))
		}
	}
	s.log.Info("watch cycle complete")
}
