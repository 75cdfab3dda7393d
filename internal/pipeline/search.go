package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"jobmate/jobsearch-service/internal/metrics"
	"jobmate/jobsearch-service/internal/model"
)

// DefaultCandidateMultiplier sizes the candidate pool relative to
// max_results to absorb filtering attrition.
const DefaultCandidateMultiplier = 5

// SeenTracker remembers which fingerprints a session has already been
// shown.
type SeenTracker interface {
	Seen(ctx context.Context, session string, fingerprints []string) ([]bool, error)
	Mark(ctx context.Context, session string, fingerprints []string) error
}

// Config wires a Pipeline. Fallback, Freshness, Seen and Metrics are
// optional.
type Config struct {
	Sources             []Source
	Fallback            Source
	Freshness           *FreshnessFilter
	Seen                SeenTracker
	CandidateMultiplier int
	Metrics             *metrics.Metrics
	Logger              *zap.Logger
}

// Pipeline runs job searches end to end.
type Pipeline struct {
	primary    *Aggregator
	fallback   *Aggregator
	freshness  *FreshnessFilter
	seen       SeenTracker
	multiplier int
	metrics    *metrics.Metrics
	log        *zap.Logger
}

// New builds a Pipeline from cfg.
func New(cfg Config) *Pipeline {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	p := &Pipeline{
		primary:    NewAggregator(cfg.Sources, log, cfg.Metrics),
		freshness:  cfg.Freshness,
		seen:       cfg.Seen,
		multiplier: cfg.CandidateMultiplier,
		metrics:    cfg.Metrics,
		log:        log.Named("pipeline"),
	}
	if cfg.Fallback != nil {
		p.fallback = NewAggregator([]Source{cfg.Fallback}, log.Named("fallback"), cfg.Metrics)
	}
	if p.multiplier < 1 {
		p.multiplier = DefaultCandidateMultiplier
	}
	return p
}

type stage struct {
	name     string
	agg      *Aggregator
	location string
}

// Search validates q and returns at most q.MaxResults listings. Upstream
// failures never surface as errors; only an invalid query or a cancelled
// ctx does.
func (p *Pipeline) Search(ctx context.Context, q model.SearchQuery) ([]model.Listing, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	defer func() { p.metrics.ObserveSearch(time.Since(start)) }()

	candidates := p.collect(ctx, q)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	candidates = p.dropSeen(ctx, q.SessionID, candidates)

	if p.freshness != nil {
		candidates = p.freshness.Filter(ctx, candidates, q.FreshnessWindow())
		p.observe("freshness", len(candidates))
	}

	candidates = ApplyFilters(candidates, q)
	p.observe("filters", len(candidates))

	if q.Profile != nil {
		candidates = ScoreAll(candidates, *q.Profile)
	}

	results := RankAndTruncate(candidates, q.MaxResults)
	p.markSeen(ctx, q.SessionID, results)

	p.log.Info("search done",
		zap.String("keyword", q.Keyword),
		zap.String("location", q.Location),
		zap.Int("results", len(results)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return results, ctx.Err()
}

// collect walks the fallback chain and returns the first stage that
// leaves relevant listings.
func (p *Pipeline) collect(ctx context.Context, q model.SearchQuery) []model.Listing {
	limit := q.MaxResults * p.multiplier

	stages := []stage{{"primary", p.primary, q.Location}}
	if q.Location != "" {
		stages = append(stages, stage{"nationwide", p.primary, ""})
	}
	if p.fallback != nil {
		stages = append(stages, stage{"search-engine", p.fallback, q.Location})
	}

	for _, s := range stages {
		if ctx.Err() != nil {
			return nil
		}
		pool := s.agg.Gather(ctx, q.Keyword, s.location, limit)
		p.observe("aggregate", len(pool))

		pool = Dedupe(pool)
		p.observe("dedupe", len(pool))

		pool = FilterRelevant(pool, q.Keyword)
		p.observe("relevance", len(pool))

		pool = FilterExcluded(pool, q.ExcludeTerms)
		p.observe("exclude", len(pool))

		if len(pool) > 0 {
			p.log.Info("stage yielded listings", zap.String("stage", s.name), zap.Int("count", len(pool)))
			return pool
		}
		p.log.Info("stage yielded nothing", zap.String("stage", s.name))
	}
	return nil
}

func (p *Pipeline) dropSeen(ctx context.Context, session string, listings []model.Listing) []model.Listing {
	if p.seen == nil || session == "" || len(listings) == 0 {
		return listings
	}
	seen, err := p.seen.Seen(ctx, session, fingerprints(listings))
	if err != nil || len(seen) != len(listings) {
		p.log.Warn("seen lookup failed, keeping all", zap.String("session", session), zap.Error(err))
		return listings
	}
	out := make([]model.Listing, 0, len(listings))
	for i, l := range listings {
		if !seen[i] {
			out = append(out, l)
		}
	}
	p.observe("session", len(out))
	return out
}

func (p *Pipeline) markSeen(ctx context.Context, session string, listings []model.Listing) {
	if p.seen == nil || session == "" || len(listings) == 0 {
		return
	}
	if err := p.seen.Mark(ctx, session, fingerprints(listings)); err != nil {
		p.log.Warn("seen mark failed", zap.String("session", session), zap.Error(err))
	}
}

func (p *Pipeline) observe(stage string, n int) {
	p.metrics.ObserveStage(stage, n)
}

func fingerprints(listings []model.Listing) []string {
	fps := make([]string, len(listings))
	for i, l := range listings {
		fps[i] = Fingerprint(l)
	}
	return fps
}
