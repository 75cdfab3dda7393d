// Package config loads and validates environment variables at startup.
// Fail-fast: an invalid value makes Load return an error and the process exits.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Default upstream endpoints.
const (
	DefaultBaiduJobsURL = "https://yiqifu.baidu.com/g/aqc/joblist/getDataAjax"
	DefaultLiepinURL    = "https://www.liepin.com/zhaopin/"
	DefaultBingURL      = "https://cn.bing.com/search"
	DefaultJSearchURL   = "https://jsearch.p.rapidapi.com"
	DefaultGeminiModel  = "gemini-1.5-flash"
)

// Config holds all runtime configuration for the job search service.
type Config struct {
	Port        string
	DatabaseURL string
	RedisURL    string
	LogLevel    string

	ScrapeIntervalHours int // How often the cron job re-runs saved searches
	FreshnessMaxAgeDays int
	DetailConcurrency   int
	CandidateMultiplier int
	SourceTimeout       time.Duration
	DetailTimeout       time.Duration
	SeenTTL             time.Duration

	BaiduJobsURL  string
	LiepinURL     string
	BingURL       string
	JSearchURL    string
	JSearchAPIKey string
	AdzunaAppID   string
	AdzunaAppKey  string
	AdzunaCountry string // e.g. "fr", "gb", "us"

	GeminiAPIKey string
	GeminiModel  string
}

// Load reads a .env file when present, then environment variables, and
// returns a validated Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		Port:          getenv("JOBSEARCH_PORT", "8081"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisURL:      os.Getenv("REDIS_URL"),
		LogLevel:      getenv("LOG_LEVEL", "info"),
		BaiduJobsURL:  getenv("BAIDU_JOBS_URL", DefaultBaiduJobsURL),
		LiepinURL:     getenv("LIEPIN_URL", DefaultLiepinURL),
		BingURL:       getenv("BING_URL", DefaultBingURL),
		JSearchURL:    getenv("JSEARCH_URL", DefaultJSearchURL),
		JSearchAPIKey: os.Getenv("JSEARCH_API_KEY"),
		AdzunaAppID:   os.Getenv("ADZUNA_APP_ID"),
		AdzunaAppKey:  os.Getenv("ADZUNA_APP_KEY"),
		AdzunaCountry: getenv("ADZUNA_COUNTRY", "fr"),
		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		GeminiModel:   getenv("GEMINI_MODEL", DefaultGeminiModel),
	}

	ints := []struct {
		key  string
		def  int
		dest *int
	}{
		{"SCRAPE_INTERVAL_HOURS", 6, &cfg.ScrapeIntervalHours},
		{"FRESHNESS_MAX_AGE_DAYS", 90, &cfg.FreshnessMaxAgeDays},
		{"DETAIL_CONCURRENCY", 5, &cfg.DetailConcurrency},
		{"CANDIDATE_MULTIPLIER", 5, &cfg.CandidateMultiplier},
	}
	for _, v := range ints {
		n, err := positiveInt(v.key, v.def)
		if err != nil {
			return nil, err
		}
		*v.dest = n
	}

	durations := []struct {
		key  string
		def  int
		unit time.Duration
		dest *time.Duration
	}{
		{"SOURCE_TIMEOUT_SECONDS", 15, time.Second, &cfg.SourceTimeout},
		{"DETAIL_TIMEOUT_SECONDS", 8, time.Second, &cfg.DetailTimeout},
		{"SEEN_TTL_HOURS", 24, time.Hour, &cfg.SeenTTL},
	}
	for _, v := range durations {
		n, err := positiveInt(v.key, v.def)
		if err != nil {
			return nil, err
		}
		*v.dest = time.Duration(n) * v.unit
	}

	return cfg, nil
}

// RequireStorage fails when the Postgres or Redis URL is missing.
func (c *Config) RequireStorage() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}
	return nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func positiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, s)
	}
	return v, nil
}
