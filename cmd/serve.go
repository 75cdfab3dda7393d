package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"jobmate/jobsearch-service/internal/aiparse"
	"jobmate/jobsearch-service/internal/db"
	"jobmate/jobsearch-service/internal/metrics"
	"jobmate/jobsearch-service/internal/scheduler"
	"jobmate/jobsearch-service/internal/seen"
	"jobmate/jobsearch-service/internal/tasks"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the watch scheduler",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	if err := cfg.RequireStorage(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── PostgreSQL ───────────────────────────────────────────────────────────
	log.Info("connecting to PostgreSQL")
	pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	if err := db.Migrate(ctx, pool); err != nil {
		return err
	}
	log.Info("PostgreSQL connected")

	// ── Redis ────────────────────────────────────────────────────────────────
	log.Info("connecting to Redis")
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer rdb.Close()
	log.Info("Redis connected")

	// ── Pipeline and tasks ───────────────────────────────────────────────────
	m := metrics.New()
	p := buildPipeline(cfg, log, m, seen.NewTracker(rdb, cfg.SeenTTL))
	store := tasks.NewStore(pool)

	runnerCfg := tasks.RunnerConfig{
		Store:    store,
		Searcher: p,
		Events:   tasks.NewRedisPublisher(rdb),
		Metrics:  m,
		Logger:   log,
	}
	if cfg.GeminiAPIKey != "" {
		gemini, err := aiparse.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return err
		}
		defer gemini.Close()
		runnerCfg.Parser = aiparse.NewParser(gemini, log)
		log.Info("AI parsing enabled", zap.String("model", cfg.GeminiModel))
	}
	runner := tasks.NewRunner(runnerCfg)

	sched := scheduler.New(store, runner, cfg.ScrapeIntervalHours, log)
	if err := sched.Start(ctx); err != nil {
		return err
	}

	// ── HTTP server ──────────────────────────────────────────────────────────
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler)
	mux.Handle("GET /metrics", m.Handler())
	tasks.NewHandler(store, runner, p, log).RegisterRoutes(mux)

	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
		// POST /jobs/search runs the whole pipeline inline
		WriteTimeout: 2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("version", version), zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	sched.Stop(shutdownCtx)

	waited := make(chan struct{})
	go func() {
		runner.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-shutdownCtx.Done():
		log.Warn("search tasks still running at shutdown")
	}
	log.Info("stopped")
	return nil
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"service": "jobsearch-service",
		"version": version,
	})
}
