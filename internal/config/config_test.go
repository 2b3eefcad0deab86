package config

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codecoach/codecoach/internal/logger"
)

func validConfig() *Config {
	return &Config{
		ServerPort: "8080",
		Logger:     logger.Config{Level: "info", Format: "text", Output: "stdout"},
		Database: &DBConfig{
			Host:     "localhost",
			Port:     5432,
			Username: "codecoach",
			Database: "codecoach",
			SSLMode:  "disable",
		},
		Review: ReviewConfig{
			TriggerToken:        "@codecoach",
			MaxWorkers:          5,
			PollRepoConcurrency: 4,
			CommentSizeLimit:    65536,
			RepoConfigPath:      ".codecoach.yml",
		},
		AI: AIConfig{Model: "claude-sonnet-4-20250514", MaxTokens: 4096},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:   "valid config",
			mutate: func(_ *Config) {},
		},
		{
			name:    "empty trigger token",
			mutate:  func(c *Config) { c.Review.TriggerToken = "" },
			wantErr: "REVIEW_TRIGGER_TOKEN",
		},
		{
			name:    "zero workers",
			mutate:  func(c *Config) { c.Review.MaxWorkers = 0 },
			wantErr: "MAX_WORKERS",
		},
		{
			name:    "comment limit too small",
			mutate:  func(c *Config) { c.Review.CommentSizeLimit = 100 },
			wantErr: "COMMENT_SIZE_LIMIT",
		},
		{
			name:    "negative poll interval",
			mutate:  func(c *Config) { c.Review.PollInterval = -1 },
			wantErr: "POLL_INTERVAL",
		},
		{
			name:    "missing database host",
			mutate:  func(c *Config) { c.Database.Host = "" },
			wantErr: "DB_HOST",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

func TestZeroPollIntervalDisablesPolling(t *testing.T) {
	cfg := validConfig()
	cfg.Review.PollInterval = 0
	assert.NoError(t, cfg.Validate())
}
