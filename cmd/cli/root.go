package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/codecoach/codecoach/internal/ai"
	"github.com/codecoach/codecoach/internal/config"
	"github.com/codecoach/codecoach/internal/core"
	"github.com/codecoach/codecoach/internal/db"
	gh "github.com/codecoach/codecoach/internal/github"
	"github.com/codecoach/codecoach/internal/logger"
	"github.com/codecoach/codecoach/internal/review"
	"github.com/codecoach/codecoach/internal/storage"
)

var rootCmd = &cobra.Command{
	Use:   "codecoach-cli",
	Short: "codecoach-cli is the command-line interface for CodeCoach.",
	Long:  `A CLI for managing the CodeCoach review service: registering repositories, testing access, and running review checks on demand.`,
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	cobra.OnInitialize(initConfig)
}

// initConfig reads ENV variables if set.
func initConfig() {
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// cliEnv bundles the components a CLI command needs. Commands that never
// invoke the AI reviewer pass withReviewer=false so they work without an
// API key.
type cliEnv struct {
	cfg          *config.Config
	logger       *slog.Logger
	registry     storage.RepoRegistry
	orchestrator *review.Orchestrator
	cleanup      func()
}

func newCLIEnv(withReviewer bool) (*cliEnv, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.New(cfg.Logger, nil)
	slog.SetDefault(log)

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
	}, cfg.Review.CommentSizeLimit, log)

	env := &cliEnv{
		cfg:      cfg,
		logger:   log,
		registry: registry,
		cleanup:  dbCleanup,
	}

	var reviewer core.Reviewer = noReviewer{}
	if withReviewer {
		r, err := ai.NewReviewer(cfg.AI, log)
		if err != nil {
			dbCleanup()
			return nil, err
		}
		reviewer = r
	}

	env.orchestrator = review.NewOrchestrator(
		cfg.Review, registry, tracker, feedbackStore, clientFactory, reviewer, log)
	return env, nil
}

// noReviewer backs commands that never reach the review step, so they do not
// require an Anthropic API key.
type noReviewer struct{}

func (noReviewer) Review(context.Context, *core.ReviewRequest) (*core.ReviewResult, error) {
	return nil, fmt.Errorf("AI reviewer is not configured for this command")
}
