package core

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// RepoFileConfig represents the structure of an optional .codecoach.yml file
// committed to a monitored repository. It lets repository owners tune the
// review behavior without touching the registry.
type RepoFileConfig struct {
	// TriggerToken overrides the globally configured review-trigger mention.
	TriggerToken string `yaml:"trigger_token"`

	// CustomInstructions are appended to the AI reviewer prompt.
	CustomInstructions []string `yaml:"custom_instructions"`
}

// DefaultRepoFileConfig returns a config with default values.
func DefaultRepoFileConfig() *RepoFileConfig {
	return &RepoFileConfig{
		CustomInstructions: []string{},
	}
}

// ParseRepoFileConfig decodes a .codecoach.yml body. An empty body yields
// the defaults; a malformed body is an error so the caller can log and fall
// back to defaults explicitly.
func ParseRepoFileConfig(data []byte) (*RepoFileConfig, error) {
	cfg := DefaultRepoFileConfig()
	if len(data) == 0 {
		return cfg, nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse repo config: %w", err)
	}
	return cfg, nil
}
