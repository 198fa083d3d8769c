package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kodjooo/content-from-rss/internal/config"
	"github.com/kodjooo/content-from-rss/internal/gemini"
	"github.com/kodjooo/content-from-rss/internal/imagehost"
	"github.com/kodjooo/content-from-rss/internal/images"
	"github.com/kodjooo/content-from-rss/internal/logger"
	"github.com/kodjooo/content-from-rss/internal/metrics"
	"github.com/kodjooo/content-from-rss/internal/pexels"
	"github.com/kodjooo/content-from-rss/internal/pipeline"
	"github.com/kodjooo/content-from-rss/internal/post"
	"github.com/kodjooo/content-from-rss/internal/retry"
	"github.com/kodjooo/content-from-rss/internal/rss"
	"github.com/kodjooo/content-from-rss/internal/scheduler"
	"github.com/kodjooo/content-from-rss/internal/scoring"
	"github.com/kodjooo/content-from-rss/internal/sheets"
	"github.com/kodjooo/content-from-rss/internal/storage"
)

func main() {
	mode := flag.String("mode", "scheduler", "run mode: scheduler, run-once or healthcheck")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	if *mode == "healthcheck" {
		fmt.Println("ok")
		return
	}

	logg := logger.New(cfg.LogLevel)

	if os.Getenv("ENABLE_HTTP_MONITORING") == "true" {
		go startMonitoringServer()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runner, cleanup, err := buildRunner(ctx, cfg, logg)
	if err != nil {
		logg.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	switch *mode {
	case "run-once":
		stats := runner.Run(ctx)
		fmt.Printf("done: processed=%d accepted=%d published=%d failed=%d\n",
			stats.Processed, stats.Accepted, stats.Published, stats.Failed)
	case "scheduler":
		location, err := time.LoadLocation(cfg.Scheduler.Timezone)
		if err != nil {
			logg.Error("invalid timezone", "zone", cfg.Scheduler.Timezone, "error", err)
			os.Exit(1)
		}
		sched := scheduler.New(
			cfg.Scheduler.RunHours,
			location,
			cfg.Scheduler.RunOnceOnStart,
			func(ctx context.Context) { runner.Run(ctx) },
			logg,
		)
		sched.Start(ctx)
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q\n", *mode)
		os.Exit(2)
	}
}

func buildRunner(ctx context.Context, cfg *config.Config, logg *slog.Logger) (*pipeline.Runner, func(), error) {
	location, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		return nil, nil, fmt.Errorf("load timezone: %w", err)
	}

	model, err := gemini.NewClient(ctx, cfg.Gemini)
	if err != nil {
		return nil, nil, err
	}

	cache, err := storage.NewScoreCache(cfg.CacheDir, logg)
	if err != nil {
		model.Close()
		return nil, nil, err
	}

	writer, err := sheets.NewWriter(ctx, cfg.Sheets, logg)
	if err != nil {
		model.Close()
		return nil, nil, err
	}

	policy := retry.Policy{
		MaxAttempts: cfg.RetryAttempts,
		BaseDelay:   cfg.RetryBaseDelay,
		MaxDelay:    10 * time.Second,
	}

	var searcher images.Searcher
	if cfg.Pexels.Enabled {
		searcher = pexels.NewClient(cfg.Pexels)
	}

	runner := pipeline.NewRunner(pipeline.Deps{
		Collector:       rss.NewCollector(cfg.RSS, rss.NewGofeedFetcher(), logg),
		Scorer:          scoring.NewScorer(model, cache, policy, logg),
		Composer:        post.NewComposer(cfg.Post, model, policy, logg),
		Images:          images.NewResolver(searcher, model, imagehost.NewClient(cfg.ImageHost), policy, logg),
		Store:           writer,
		Location:        location,
		EarliestRunHour: cfg.EarliestRunHour(),
		RecencyWindow:   cfg.RecencyWindow,
		Log:             logg,
	})

	return runner, model.Close, nil
}

func startMonitoringServer() {
	port := os.Getenv("MONITORING_PORT")
	if port == "" {
		port = "8080"
	}

	http.HandleFunc("/health", healthHandler)
	http.HandleFunc("/metrics", metricsHandler)

	log.Printf("Starting monitoring server on port %s", port)
	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Printf("Monitoring server error: %v", err)
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	stats := metrics.Global.GetStats()

	status := "ok"
	if !stats["is_healthy"].(bool) {
		status = "error"
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	response := map[string]interface{}{
		"status":     status,
		"last_run":   stats["last_run_time"],
		"last_error": stats["last_error"],
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func metricsHandler(w http.ResponseWriter, r *http.Request) {
	stats := metrics.Global.GetStats()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}
