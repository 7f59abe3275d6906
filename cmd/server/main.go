package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/stockwatch/internal/analysis"
	"github.com/aristath/stockwatch/internal/clients/aiclient"
	"github.com/aristath/stockwatch/internal/clients/quotes"
	"github.com/aristath/stockwatch/internal/clients/search"
	"github.com/aristath/stockwatch/internal/config"
	"github.com/aristath/stockwatch/internal/database"
	"github.com/aristath/stockwatch/internal/market"
	"github.com/aristath/stockwatch/internal/notify"
	"github.com/aristath/stockwatch/internal/scheduler"
	"github.com/aristath/stockwatch/internal/server"
	"github.com/aristath/stockwatch/internal/tasks"
	"github.com/aristath/stockwatch/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New(logger.Config{Level: "info", Pretty: true})
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting Stockwatch")

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatal().Err(err).Str("dir", cfg.DataDir).Msg("Failed to create data directory")
	}
	if err := os.MkdirAll(cfg.ReportsDir, 0755); err != nil {
		log.Fatal().Err(err).Str("dir", cfg.ReportsDir).Msg("Failed to create reports directory")
	}

	// Initialize database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := analysis.InitSchema(db.Conn()); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize schema")
	}

	// External clients
	quotesClient := quotes.NewClient(cfg.QuotesBaseURL, log)
	narrator := aiclient.NewClient(cfg.AIAPIKey, cfg.AIBaseURL, cfg.AIModel, log)
	searcher := search.NewClient(cfg.SearchAPIKeys, cfg.SearchBaseURL, log)

	// Analysis pipeline
	repo := analysis.NewRepository(db.Conn(), log)
	pipeline := analysis.NewPipeline(quotesClient, repo, log)

	// Notification and reporting
	notifier := notify.New(cfg.WebhookURL, cfg.ReportsDir, log)

	// Market review. Web-triggered reviews save to disk only; the scheduled
	// job pushes through the webhook when one is configured.
	reviewService := market.NewService(quotesClient, narrator, searcher, log)
	webReviewer := market.NewReviewer(reviewService, notify.NewFileNotifier(cfg.ReportsDir))

	// Task orchestrator
	svc := tasks.NewService(tasks.Config{
		Workers:  cfg.AnalysisWorkers,
		MaxLogs:  cfg.MaxTaskLogs,
		Pipeline: pipeline,
		Notifier: notifier,
		Renderer: notify.Renderer{},
		Reviewer: webReviewer,
		Log:      log,
	})
	defer svc.Stop()

	// Initialize scheduler
	sched := scheduler.New(log)

	envFile := config.NewEnvFile(cfg.EnvPath)
	systemHandlers := server.NewSystemHandlers(log, svc, sched)

	if err := registerJobs(sched, svc, envFile, cfg, systemHandlers, log); err != nil {
		log.Fatal().Err(err).Msg("Failed to register jobs")
	}

	sched.Start()
	defer sched.Stop()

	// Initialize HTTP server
	srv := server.New(server.Config{
		Port:    cfg.Port,
		Log:     log,
		Tasks:   tasks.NewHandler(svc, log),
		EnvFile: envFile,
		System:  systemHandlers,
		DevMode: cfg.DevMode,
	})

	// Start server in goroutine
	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

func registerJobs(
	sched *scheduler.Scheduler,
	svc *tasks.Service,
	envFile *config.EnvFile,
	cfg *config.Config,
	system *server.SystemHandlers,
	log zerolog.Logger,
) error {
	marketReview := scheduler.NewMarketReviewJob(svc, log)
	watchlistScan := scheduler.NewWatchlistScanJob(svc, envFile, log)

	// Manual triggering works even when no schedule is configured
	system.SetJobs(marketReview, watchlistScan)

	if cfg.MarketReviewSchedule != "" {
		if err := sched.AddJob(cfg.MarketReviewSchedule, marketReview); err != nil {
			return err
		}
	}
	if cfg.WatchlistScanSchedule != "" {
		if err := sched.AddJob(cfg.WatchlistScanSchedule, watchlistScan); err != nil {
			return err
		}
	}

	return nil
}
