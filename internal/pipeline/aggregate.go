// Package pipeline turns upstream job listings into a ranked, filtered
// result set: aggregate, dedupe, relevance, freshness, rank.
package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"jobmate/jobsearch-service/internal/metrics"
	"jobmate/jobsearch-service/internal/model"
)

// Source is one upstream job-listing provider. Search may return partial
// results together with an error.
type Source interface {
	Name() string
	Search(ctx context.Context, keyword, location string, limit int) ([]model.Listing, error)
}

// Aggregator fans a search out to every registered source concurrently.
type Aggregator struct {
	sources []Source
	log     *zap.Logger
	metrics *metrics.Metrics
}

// NewAggregator constructs an Aggregator over sources, queried in order.
func NewAggregator(sources []Source, log *zap.Logger, m *metrics.Metrics) *Aggregator {
	return &Aggregator{sources: sources, log: log.Named("aggregator"), metrics: m}
}

// Gather calls every source with limit, waits for all of them, and returns
// their concatenated results in source order, capped at limit. A failing
// source contributes nothing and never aborts the others.
func (a *Aggregator) Gather(ctx context.Context, keyword, location string, limit int) []model.Listing {
	results := make([][]model.Listing, len(a.sources))

	var g errgroup.Group
	for i, src := range a.sources {
		g.Go(func() error {
			results[i] = a.call(ctx, src, keyword, location, limit)
			return nil
		})
	}
	_ = g.Wait()

	var pool []model.Listing
	for _, r := range results {
		pool = append(pool, r...)
	}
	if len(pool) > limit {
		pool = pool[:limit]
	}
	a.log.Info("candidates gathered",
		zap.String("keyword", keyword),
		zap.String("location", location),
		zap.Int("sources", len(a.sources)),
		zap.Int("count", len(pool)),
	)
	return pool
}

func (a *Aggregator) call(ctx context.Context, src Source, keyword, location string, limit int) (out []model.Listing) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Error("source panicked", zap.String("source", src.Name()), zap.Any("panic", r))
			a.metrics.ObserveSource(src.Name(), 0, true)
			out = nil
		}
	}()

	listings, err := src.Search(ctx, keyword, location, limit)
	if err != nil {
		a.log.Warn("source failed",
			zap.String("source", src.Name()),
			zap.Int("partial", len(listings)),
			zap.Error(fmt.Errorf("%s: %w", src.Name(), err)),
		)
	}
	a.metrics.ObserveSource(src.Name(), len(listings), err != nil)
	return listings
}
