package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"jobmate/jobsearch-service/internal/model"
)

// DefaultWatchResults is used when a watch leaves max_results unset.
const DefaultWatchResults = 20

// WatchSession is the seen-tracking session shared by every run of a watch,
// so repeated runs only surface listings not returned before.
func WatchSession(watchID string) string { return "watch:" + watchID }

// WatchQueries expands a watch into one query per (keyword × location).
// A watch without locations searches nationwide.
func WatchQueries(w model.Watch) []model.SearchQuery {
	locations := w.Locations
	if len(locations) == 0 {
		locations = []string{""}
	}
	limit := w.MaxResults
	if limit <= 0 {
		limit = DefaultWatchResults
	}

	var out []model.SearchQuery
	for _, kw := range w.Keywords {
		if strings.TrimSpace(kw) == "" {
			continue
		}
		for _, loc := range locations {
			out = append(out, model.SearchQuery{
				Keyword:      kw,
				Location:     loc,
				MaxResults:   limit,
				SalaryMin:    w.SalaryMin,
				SalaryMax:    w.SalaryMax,
				ExcludeTerms: w.ExcludeTerms,
				SessionID:    WatchSession(w.ID),
			})
		}
	}
	return out
}

// RunWatch runs one task per query of w, sequentially. A failing pair is
// logged and the loop continues; the joined errors are returned.
func (r *Runner) RunWatch(ctx context.Context, w model.Watch) error {
	queries := WatchQueries(w)
	r.log.Info("watch run started",
		zap.String("watch", w.ID),
		zap.Strings("keywords", w.Keywords),
		zap.Strings("locations", w.Locations),
	)

	var (
		errs         []error
		found, saved int
	)
	for _, q := range queries {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		t, err := r.Run(ctx, q)
		if err != nil {
			r.log.Warn("watch query failed, continuing",
				zap.String("watch", w.ID),
				zap.String("keyword", q.Keyword),
				zap.String("location", q.Location),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("%s/%s: %w", q.Keyword, q.Location, err))
			continue
		}
		found += t.TotalFound
		saved += t.TotalSaved
	}

	r.log.Info("watch run done",
		zap.String("watch", w.ID),
		zap.Int("queries", len(queries)),
		zap.Int("found", found),
		zap.Int("saved", saved),
	)
	return errors.Join(errs...)
}
