package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codecoach/codecoach/internal/core"
	"github.com/codecoach/codecoach/internal/storage"
)

var (
	repoAccessToken    string
	repoInstallationID int64
	repoWebhookSecret  string
	repoNoAutoReview   bool
)

var repoCmd = &cobra.Command{
	Use:   "repo",
	Short: "Manage registered repositories",
}

var repoAddCmd = &cobra.Command{
	Use:   "add [owner/name]",
	Short: "Register a repository for review",
	Long: `Register a repository for review.

Exactly one credential must be provided: a personal access token via
--token, or a GitHub App installation via --installation-id. The webhook
secret is required for webhook deliveries to be accepted.`,
	Args: cobra.ExactArgs(1),
	RunE: runRepoAdd,
}

var repoListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered repositories",
	RunE:  runRepoList,
}

func init() { //nolint:gochecknoinits // Cobra command registration
	repoAddCmd.Flags().StringVar(&repoAccessToken, "token", "", "personal access token for this repository")
	repoAddCmd.Flags().Int64Var(&repoInstallationID, "installation-id", 0, "GitHub App installation ID for this repository")
	repoAddCmd.Flags().StringVar(&repoWebhookSecret, "webhook-secret", "", "webhook secret for this repository")
	repoAddCmd.Flags().BoolVar(&repoNoAutoReview, "no-auto-review", false, "register without enabling automatic reviews")

	repoCmd.AddCommand(repoAddCmd)
	repoCmd.AddCommand(repoListCmd)
	rootCmd.AddCommand(repoCmd)
}

func runRepoAdd(_ *cobra.Command, args []string) error {
	ctx := context.Background()

	owner, name, err := splitRepoArg(args[0])
	if err != nil {
		return err
	}
	if (repoAccessToken == "") == (repoInstallationID == 0) {
		return fmt.Errorf("exactly one of --token or --installation-id must be provided")
	}
	if repoWebhookSecret == "" {
		warnColor.Println("No --webhook-secret given: webhook deliveries for this repository will be rejected.")
	}

	env, err := newCLIEnv(false)
	if err != nil {
		return err
	}
	defer env.cleanup()

	if _, err := env.registry.Get(ctx, owner, name); err == nil {
		return fmt.Errorf("repository %s/%s is already registered", owner, name)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	repo := &core.RepositoryConfig{
		Owner:           owner,
		Name:            name,
		AccessToken:     repoAccessToken,
		InstallationID:  repoInstallationID,
		WebhookSecret:   repoWebhookSecret,
		IsActive:        true,
		AllowAutoReview: !repoNoAutoReview,
	}
	if err := env.registry.Create(ctx, repo); err != nil {
		return fmt.Errorf("failed to register repository: %w", err)
	}

	successColor.Printf("Registered %s/%s (id=%d).\n", owner, name, repo.ID)
	return nil
}

func runRepoList(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	env, err := newCLIEnv(false)
	if err != nil {
		return err
	}
	defer env.cleanup()

	repos, err := env.registry.List(ctx)
	if err != nil {
		return err
	}
	if len(repos) == 0 {
		dimColor.Println("No repositories registered.")
		return nil
	}

	titleColor.Printf("%-40s %-10s %-12s %-10s\n", "REPOSITORY", "ACTIVE", "AUTO-REVIEW", "CREDENTIAL")
	for _, r := range repos {
		credential := "none"
		switch {
		case r.AccessToken != "":
			credential = "token"
		case r.InstallationID != 0:
			credential = "app"
		}
		fmt.Printf("%-40s %-10t %-12t %-10s\n", r.FullName(), r.IsActive, r.AllowAutoReview, credential)
	}
	return nil
}
