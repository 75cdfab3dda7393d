package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"jobmate/jobsearch-service/internal/metrics"
	"jobmate/jobsearch-service/internal/model"
	"jobmate/jobsearch-service/internal/scraper"
)

// DefaultDetailConcurrency caps in-flight detail fetches.
const DefaultDetailConcurrency = 5

// Outcome is the freshness classification of one listing.
type Outcome int

const (
	Unknown Outcome = iota
	Fresh
	Stale
	Expired
)

func (o Outcome) String() string {
	switch o {
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	case Expired:
		return "expired"
	default:
		return "unknown"
	}
}

// DateFetcher resolves a listing's publish date from its detail URL.
// scraper.ErrListingExpired marks a delisted posting.
type DateFetcher interface {
	PublishDate(ctx context.Context, detailURL string) (time.Time, error)
}

// FreshnessFilter drops stale and expired listings. Inconclusive lookups
// keep the listing with publish date "unknown".
type FreshnessFilter struct {
	fetcher     DateFetcher
	concurrency int64
	now         func() time.Time
	log         *zap.Logger
	metrics     *metrics.Metrics
}

// NewFreshnessFilter constructs a filter allowing concurrency detail
// fetches at a time.
func NewFreshnessFilter(fetcher DateFetcher, concurrency int, log *zap.Logger, m *metrics.Metrics) *FreshnessFilter {
	if concurrency < 1 {
		concurrency = DefaultDetailConcurrency
	}
	return &FreshnessFilter{
		fetcher:     fetcher,
		concurrency: int64(concurrency),
		now:         time.Now,
		log:         log.Named("freshness"),
		metrics:     m,
	}
}

// Filter classifies every listing and returns the Fresh and Unknown ones in
// input order, with PublishDate filled in.
func (f *FreshnessFilter) Filter(ctx context.Context, listings []model.Listing, maxAgeDays int) []model.Listing {
	annotated := make([]model.Listing, len(listings))
	copy(annotated, listings)
	outcomes := make([]Outcome, len(listings))

	sem := semaphore.NewWeighted(f.concurrency)
	var wg sync.WaitGroup
	for i := range annotated {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Cancelled: the rest stay Unknown.
			for j := i; j < len(annotated); j++ {
				annotated[j].PublishDate = model.PublishDateUnknown
			}
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			outcomes[i] = f.classify(ctx, &annotated[i], maxAgeDays)
		}()
	}
	wg.Wait()

	out := make([]model.Listing, 0, len(annotated))
	for i, l := range annotated {
		f.metrics.ObserveFreshness(outcomes[i].String())
		switch outcomes[i] {
		case Fresh, Unknown:
			out = append(out, l)
		default:
			f.log.Info("listing dropped",
				zap.String("outcome", outcomes[i].String()),
				zap.String("title", l.Title),
				zap.String("company", l.Company),
				zap.String("publish_date", l.PublishDate),
			)
		}
	}
	return out
}

// classify never panics; any failure maps to Unknown.
func (f *FreshnessFilter) classify(ctx context.Context, l *model.Listing, maxAgeDays int) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			f.log.Warn("detail lookup panicked", zap.String("url", l.DetailURL), zap.Any("panic", r))
			outcome = Unknown
		}
		if outcome == Unknown {
			l.PublishDate = model.PublishDateUnknown
		}
	}()

	var (
		published time.Time
		err       error
	)
	if l.DetailURL != "" && f.fetcher != nil {
		published, err = f.fetcher.PublishDate(ctx, l.DetailURL)
	} else {
		published, err = scraper.ParseDate(l.PublishDate)
	}

	switch {
	case errors.Is(err, scraper.ErrListingExpired):
		return Expired
	case err != nil:
		f.log.Debug("publish date unknown, keeping listing", zap.String("title", l.Title), zap.Error(err))
		return Unknown
	}

	l.PublishDate = published.Format(time.DateOnly)
	if ageDays(f.now(), published) > maxAgeDays {
		return Stale
	}
	return Fresh
}

// ageDays counts whole calendar days between published and now, in UTC.
func ageDays(now, published time.Time) int {
	n := now.UTC().Truncate(24 * time.Hour)
	p := published.UTC().Truncate(24 * time.Hour)
	return int(n.Sub(p) / (24 * time.Hour))
}
