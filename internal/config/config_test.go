package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{
		"JOBSEARCH_PORT", "DATABASE_URL", "REDIS_URL", "SCRAPE_INTERVAL_HOURS",
		"FRESHNESS_MAX_AGE_DAYS", "DETAIL_CONCURRENCY", "SOURCE_TIMEOUT_SECONDS",
		"DETAIL_TIMEOUT_SECONDS", "SEEN_TTL_HOURS", "CANDIDATE_MULTIPLIER",
		"BAIDU_JOBS_URL", "ADZUNA_COUNTRY",
	} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.Port)
	assert.Equal(t, 6, cfg.ScrapeIntervalHours)
	assert.Equal(t, 90, cfg.FreshnessMaxAgeDays)
	assert.Equal(t, 5, cfg.DetailConcurrency)
	assert.Equal(t, 5, cfg.CandidateMultiplier)
	assert.Equal(t, 15*time.Second, cfg.SourceTimeout)
	assert.Equal(t, 8*time.Second, cfg.DetailTimeout)
	assert.Equal(t, 24*time.Hour, cfg.SeenTTL)
	assert.Equal(t, DefaultBaiduJobsURL, cfg.BaiduJobsURL)
	assert.Equal(t, "fr", cfg.AdzunaCountry)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JOBSEARCH_PORT", "9000")
	t.Setenv("DETAIL_CONCURRENCY", "3")
	t.Setenv("DETAIL_TIMEOUT_SECONDS", "2")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 3, cfg.DetailConcurrency)
	assert.Equal(t, 2*time.Second, cfg.DetailTimeout)
}

func TestLoad_InvalidInteger(t *testing.T) {
	for _, v := range []string{"0", "-2", "six"} {
		t.Setenv("SCRAPE_INTERVAL_HOURS", v)
		_, err := Load()
		require.Error(t, err, "value %q", v)
		assert.Contains(t, err.Error(), "SCRAPE_INTERVAL_HOURS")
	}
}

func TestRequireStorage(t *testing.T) {
	cfg := &Config{}
	assert.EqualError(t, cfg.RequireStorage(), "DATABASE_URL is required")

	cfg.DatabaseURL = "postgres://localhost/jobs"
	assert.EqualError(t, cfg.RequireStorage(), "REDIS_URL is required")

	cfg.RedisURL = "redis://localhost:6379/0"
	assert.NoError(t, cfg.RequireStorage())
}
