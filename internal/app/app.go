// Package app initializes and orchestrates the main components of the
// CodeCoach application. It wires together configuration, storage, the
// review pipeline, and the HTTP server.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/codecoach/codecoach/internal/ai"
	"github.com/codecoach/codecoach/internal/config"
	"github.com/codecoach/codecoach/internal/core"
	"github.com/codecoach/codecoach/internal/db"
	gh "github.com/codecoach/codecoach/internal/github"
	"github.com/codecoach/codecoach/internal/jobs"
	"github.com/codecoach/codecoach/internal/review"
	"github.com/codecoach/codecoach/internal/server"
	"github.com/codecoach/codecoach/internal/storage"
)

// App holds the main application components.
type App struct {
	ctx        context.Context
	cancel     context.CancelFunc
	cfg        *config.Config
	server     *server.Server
	poller     *review.Poller
	dispatcher core.JobDispatcher
	dbCleanup  func()
	logger     *slog.Logger
}

// NewApp sets up the application with all its dependencies.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	logger.Info("initializing CodeCoach application",
		"trigger_token", cfg.Review.TriggerToken,
		"review_model", cfg.AI.Model,
		"max_workers", cfg.Review.MaxWorkers,
		"poll_interval", cfg.Review.PollInterval)

	dbConn, dbCleanup, err := db.NewDatabase(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := dbConn.RunMigrations(); err != nil {
		dbCleanup()
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	registry := storage.NewRepoRegistry(dbConn.DB)
	tracker := storage.NewTracker(dbConn.DB)
	feedbackStore := storage.NewFeedbackStore(dbConn.DB)

	clientFactory := gh.NewClientFactory(gh.AppConfig{
		AppID:          cfg.GitHub.AppID,
		PrivateKeyPath: cfg.GitHub.PrivateKeyPath,
	}, cfg.Review.CommentSizeLimit, logger)

	reviewer, err := ai.NewReviewer(cfg.AI, logger)
	if err != nil {
		dbCleanup()
		return nil, fmt.Errorf("failed to create AI reviewer: %w", err)
	}

	orchestrator := review.NewOrchestrator(
		cfg.Review, registry, tracker, feedbackStore, clientFactory, reviewer, logger)

	reviewJob := jobs.NewReviewJob(orchestrator, logger)
	dispatcher := jobs.NewDispatcher(reviewJob, cfg.Review.MaxWorkers, logger)
	poller := review.NewPoller(orchestrator, cfg.Review.PollInterval, logger)
	httpServer := server.NewServer(ctx, cfg, registry, dispatcher, logger)

	appCtx, cancel := context.WithCancel(ctx)

	logger.Info("CodeCoach application initialized successfully")
	return &App{
		ctx:        appCtx,
		cancel:     cancel,
		cfg:        cfg,
		server:     httpServer,
		poller:     poller,
		dispatcher: dispatcher,
		dbCleanup:  dbCleanup,
		logger:     logger,
	}, nil
}

// Start launches the poll loop and runs the HTTP server. It blocks until the
// server exits.
func (a *App) Start() error {
	a.logger.Info("starting CodeCoach",
		"server_port", a.cfg.ServerPort,
		"max_workers", a.cfg.Review.MaxWorkers)

	go a.poller.Start(a.ctx)

	if err := a.server.Start(); err != nil {
		a.logger.Error("failed to start HTTP server", "error", err)
		return err
	}
	return nil
}

// Stop shuts down the application cleanly: server first so no new work
// arrives, then the poller, then the worker pool, then the database.
func (a *App) Stop() error {
	a.logger.Info("shutting down CodeCoach services")

	serverErr := a.server.Stop()
	if serverErr != nil {
		a.logger.Error("error during HTTP server shutdown", "error", serverErr)
	}

	a.cancel()
	a.poller.Wait()

	a.dispatcher.Stop()

	a.logger.Info("closing database connection")
	a.dbCleanup()

	if serverErr != nil {
		a.logger.Error("CodeCoach stopped with errors", "error", serverErr)
		return serverErr
	}

	a.logger.Info("CodeCoach stopped successfully")
	return nil
}
