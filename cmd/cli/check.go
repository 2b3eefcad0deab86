package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	titleColor   = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	dimColor     = color.New(color.FgHiBlack)
)

var checkCmd = &cobra.Command{
	Use:   "check [pr-url]",
	Short: "Run the review pipeline for a single pull request",
	Long: `Run the review pipeline for a single pull request.

The check command applies the same decision pipeline a webhook delivery
would: trigger detection, idempotency, eligibility, and, if a trigger is
pending, a full review cycle.

Examples:
  codecoach-cli check https://github.com/owner/repo/pull/123`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() { //nolint:gochecknoinits // Cobra command registration
	rootCmd.AddCommand(checkCmd)
}

func runCheck(_ *cobra.Command, args []string) error {
	ctx := context.Background()

	owner, name, prNumber, err := parsePullRequestURL(args[0])
	if err != nil {
		return fmt.Errorf("invalid PR URL: %w\n\nExpected format: https://github.com/owner/repo/pull/123", err)
	}

	env, err := newCLIEnv(true)
	if err != nil {
		return err
	}
	defer env.cleanup()

	titleColor.Printf("CodeCoach - checking %s/%s#%d\n", owner, name, prNumber)

	outcome, err := env.orchestrator.CheckPullRequest(ctx, owner, name, prNumber)
	if err != nil {
		return fmt.Errorf("check failed: %w", err)
	}

	switch outcome {
	case "reviewed":
		successColor.Println("Review posted.")
	case "skipped":
		dimColor.Println("Nothing to do: all triggers already processed.")
	case "ineligible":
		warnColor.Println("Repository is not eligible for review (inactive, auto-review off, or no credential).")
	default:
		dimColor.Printf("Outcome: %s\n", outcome)
	}
	return nil
}

// parsePullRequestURL extracts owner, repo, and PR number from a GitHub PR
// URL such as https://github.com/owner/repo/pull/123.
func parsePullRequestURL(raw string) (string, string, int, error) {
	trimmed := strings.TrimPrefix(raw, "https://")
	trimmed = strings.TrimPrefix(trimmed, "http://")
	trimmed = strings.TrimSuffix(trimmed, "/")

	parts := strings.Split(trimmed, "/")
	if len(parts) != 5 || parts[0] != "github.com" || parts[3] != "pull" {
		return "", "", 0, fmt.Errorf("unrecognized pull request URL: %s", raw)
	}

	prNumber, err := strconv.Atoi(parts[4])
	if err != nil || prNumber <= 0 {
		return "", "", 0, fmt.Errorf("invalid pull request number: %s", parts[4])
	}
	return parts[1], parts[2], prNumber, nil
}
