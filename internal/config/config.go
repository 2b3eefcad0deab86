// Package config loads and validates application configuration from the
// environment and an optional .env file.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/viper"

	"github.com/codecoach/codecoach/internal/logger"
)

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host            string
	Port            int
	Username        string
	Password        string
	Database        string
	SSLMode         string
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// GitHubConfig holds the optional GitHub App identity used for repositories
// registered with installation-based credentials.
type GitHubConfig struct {
	AppID          int64
	PrivateKeyPath string
}

// ReviewConfig holds the orchestrator's tunables.
type ReviewConfig struct {
	// TriggerToken is the mention that requests a review, e.g. "@codecoach".
	TriggerToken string
	// MaxWorkers bounds the webhook job worker pool.
	MaxWorkers int
	// PollInterval is the period of the reconciliation sweep. Zero disables
	// polling.
	PollInterval time.Duration
	// PollRepoConcurrency bounds how many repositories one sweep visits in
	// parallel. PRs within a repository are always processed sequentially.
	PollRepoConcurrency int
	// CommentSizeLimit caps a single posted comment body; larger reviews
	// are split.
	CommentSizeLimit int
	// RepoConfigPath is the in-repo override file fetched before a review.
	RepoConfigPath string
}

// AIConfig holds the reviewer model settings.
type AIConfig struct {
	AnthropicAPIKey string
	Model           string
	MaxTokens       int
}

// Config holds the application's configuration values.
type Config struct {
	ServerPort string
	Logger     logger.Config
	Database   *DBConfig
	GitHub     GitHubConfig
	Review     ReviewConfig
	AI         AIConfig
}

// LoadConfig reads configuration from environment variables and a .env file,
// sets defaults, and validates required fields.
func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "text")
	viper.SetDefault("LOG_OUTPUT", "stdout")

	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", 5432)
	viper.SetDefault("DB_USER", "codecoach")
	viper.SetDefault("DB_NAME", "codecoach")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_CONN_MAX_LIFETIME", "30m")
	viper.SetDefault("DB_CONN_MAX_IDLE_TIME", "5m")

	viper.SetDefault("REVIEW_TRIGGER_TOKEN", "@codecoach")
	viper.SetDefault("MAX_WORKERS", 5)
	viper.SetDefault("POLL_INTERVAL", "10m")
	viper.SetDefault("POLL_REPO_CONCURRENCY", 4)
	viper.SetDefault("COMMENT_SIZE_LIMIT", 65536)
	viper.SetDefault("REPO_CONFIG_PATH", ".codecoach.yml")

	viper.SetDefault("REVIEW_MODEL", "claude-sonnet-4-20250514")
	viper.SetDefault("REVIEW_MAX_TOKENS", 4096)

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("failed to read .env file", "error", err)
		}
	}

	cfg := &Config{
		ServerPort: viper.GetString("SERVER_PORT"),
		Logger: logger.Config{
			Level:  viper.GetString("LOG_LEVEL"),
			Format: viper.GetString("LOG_FORMAT"),
			Output: viper.GetString("LOG_OUTPUT"),
		},
		Database: &DBConfig{
			Host:            viper.GetString("DB_HOST"),
			Port:            viper.GetInt("DB_PORT"),
			Username:        viper.GetString("DB_USER"),
			Password:        viper.GetString("DB_PASSWORD"),
			Database:        viper.GetString("DB_NAME"),
			SSLMode:         viper.GetString("DB_SSLMODE"),
			ConnMaxLifetime: viper.GetDuration("DB_CONN_MAX_LIFETIME"),
			ConnMaxIdleTime: viper.GetDuration("DB_CONN_MAX_IDLE_TIME"),
		},
		GitHub: GitHubConfig{
			AppID:          viper.GetInt64("GITHUB_APP_ID"),
			PrivateKeyPath: viper.GetString("GITHUB_PRIVATE_KEY_PATH"),
		},
		Review: ReviewConfig{
			TriggerToken:        viper.GetString("REVIEW_TRIGGER_TOKEN"),
			MaxWorkers:          viper.GetInt("MAX_WORKERS"),
			PollInterval:        viper.GetDuration("POLL_INTERVAL"),
			PollRepoConcurrency: viper.GetInt("POLL_REPO_CONCURRENCY"),
			CommentSizeLimit:    viper.GetInt("COMMENT_SIZE_LIMIT"),
			RepoConfigPath:      viper.GetString("REPO_CONFIG_PATH"),
		},
		AI: AIConfig{
			AnthropicAPIKey: viper.GetString("ANTHROPIC_API_KEY"),
			Model:           viper.GetString("REVIEW_MODEL"),
			MaxTokens:       viper.GetInt("REVIEW_MAX_TOKENS"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks invariants the rest of the application relies on.
func (c *Config) Validate() error {
	if c.Review.TriggerToken == "" {
		return fmt.Errorf("REVIEW_TRIGGER_TOKEN must not be empty")
	}
	if c.Review.MaxWorkers <= 0 {
		return fmt.Errorf("MAX_WORKERS must be positive, got %d", c.Review.MaxWorkers)
	}
	if c.Review.CommentSizeLimit < 1024 {
		return fmt.Errorf("COMMENT_SIZE_LIMIT must be at least 1024, got %d", c.Review.CommentSizeLimit)
	}
	if c.Review.PollInterval < 0 {
		return fmt.Errorf("POLL_INTERVAL must not be negative")
	}
	if c.Database.Host == "" || c.Database.Database == "" {
		return fmt.Errorf("DB_HOST and DB_NAME must be set")
	}
	return nil
}
