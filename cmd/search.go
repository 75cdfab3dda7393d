package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"jobmate/jobsearch-service/internal/db"
	"jobmate/jobsearch-service/internal/metrics"
	"jobmate/jobsearch-service/internal/model"
	"jobmate/jobsearch-service/internal/pipeline"
	"jobmate/jobsearch-service/internal/seen"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Run one search and print the listings as JSON",
	Long:  "Run the full search pipeline once without persisting anything. Session de-duplication is used when --session is set and REDIS_URL is configured.",
	RunE:  runSearch,
}

var (
	searchKeyword    string
	searchLocation   string
	searchMax        int
	searchSalaryMin  int
	searchSalaryMax  int
	searchExperience string
	searchExclude    []string
	searchSession    string
	searchMaxAge     int
)

func init() {
	f := searchCmd.Flags()
	f.StringVarP(&searchKeyword, "keyword", "k", "", "Keyword every title must contain (required)")
	f.StringVarP(&searchLocation, "location", "l", "", "City to search in; empty searches nationwide")
	f.IntVarP(&searchMax, "max", "n", 20, "Maximum number of listings to return")
	f.IntVar(&searchSalaryMin, "salary-min", 0, "Minimum monthly salary in k")
	f.IntVar(&searchSalaryMax, "salary-max", 0, "Maximum monthly salary in k")
	f.StringVar(&searchExperience, "experience", "", "Experience bucket: 1-3年, 3-5年, 5-10年 or 10年以上")
	f.StringArrayVar(&searchExclude, "exclude", nil, "Drop listings containing this term (repeatable)")
	f.StringVar(&searchSession, "session", "", "Session ID; listings already shown in this session are skipped")
	f.IntVar(&searchMaxAge, "max-age-days", 0, "Freshness window in days (default 90)")
	_ = searchCmd.MarkFlagRequired("keyword")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	q := model.SearchQuery{
		Keyword:         searchKeyword,
		Location:        searchLocation,
		MaxResults:      searchMax,
		ExperienceYears: searchExperience,
		ExcludeTerms:    searchExclude,
		SessionID:       searchSession,
		MaxAgeDays:      searchMaxAge,
	}
	if cmd.Flags().Changed("salary-min") {
		q.SalaryMin = &searchSalaryMin
	}
	if cmd.Flags().Changed("salary-max") {
		q.SalaryMax = &searchSalaryMax
	}
	if err := q.Validate(); err != nil {
		return err
	}

	var tracker pipeline.SeenTracker
	if searchSession != "" && cfg.RedisURL != "" {
		rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Warn("redis unavailable, session de-duplication disabled", zap.Error(err))
		} else {
			defer rdb.Close()
			tracker = seen.NewTracker(rdb, cfg.SeenTTL)
		}
	}

	p := buildPipeline(cfg, log, metrics.New(), tracker)
	listings, err := p.Search(ctx, q)
	if err != nil {
		return err
	}
	return printJSON(listings)
}

func printJSON(listings []model.Listing) error {
	if listings == nil {
		listings = []model.Listing{}
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(listings)
}
