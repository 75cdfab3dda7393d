package main

import (
	"fmt"

	"go.uber.org/zap"

	"jobmate/jobsearch-service/internal/config"
	"jobmate/jobsearch-service/internal/logger"
	"jobmate/jobsearch-service/internal/metrics"
	"jobmate/jobsearch-service/internal/pipeline"
	"jobmate/jobsearch-service/internal/scraper"
)

// setup loads the configuration and builds the process logger.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

// buildPipeline wires every source client, the search-engine fallback and
// the freshness filter. seen may be nil.
func buildPipeline(cfg *config.Config, log *zap.Logger, m *metrics.Metrics, seen pipeline.SeenTracker) *pipeline.Pipeline {
	client := scraper.NewHTTPClient(cfg.SourceTimeout)

	sources := []pipeline.Source{
		scraper.NewBaiduClient(cfg.BaiduJobsURL, client, log),
		scraper.NewLiepinClient(cfg.LiepinURL, client, log),
		scraper.NewJSearchClient(cfg.JSearchURL, cfg.JSearchAPIKey, client, log),
		scraper.NewAdzunaClient(cfg.AdzunaAppID, cfg.AdzunaAppKey, cfg.AdzunaCountry, client, log),
	}
	detail := scraper.NewDetailFetcher(scraper.NewHTTPClient(cfg.DetailTimeout), log)

	return pipeline.New(pipeline.Config{
		Sources:             sources,
		Fallback:            scraper.NewBingClient(cfg.BingURL, client, log),
		Freshness:           pipeline.NewFreshnessFilter(detail, cfg.DetailConcurrency, log, m),
		Seen:                seen,
		CandidateMultiplier: cfg.CandidateMultiplier,
		Metrics:             m,
		Logger:              log,
	})
}

func errMissing(key string) error {
	return fmt.Errorf("%s is required", key)
}
