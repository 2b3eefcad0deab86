package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var testRepoCmd = &cobra.Command{
	Use:   "test-repo [owner/name]",
	Short: "Verify that the stored credential can reach a repository",
	Args:  cobra.ExactArgs(1),
	RunE:  runTestRepo,
}

func init() { //nolint:gochecknoinits // Cobra command registration
	rootCmd.AddCommand(testRepoCmd)
}

func runTestRepo(_ *cobra.Command, args []string) error {
	ctx := context.Background()

	owner, name, err := splitRepoArg(args[0])
	if err != nil {
		return err
	}

	env, err := newCLIEnv(false)
	if err != nil {
		return err
	}
	defer env.cleanup()

	if err := env.orchestrator.TestRepositoryAccess(ctx, owner, name); err != nil {
		return err
	}

	successColor.Printf("Repository %s/%s is reachable.\n", owner, name)
	return nil
}

func splitRepoArg(arg string) (string, string, error) {
	parts := strings.Split(arg, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("expected owner/name, got: %s", arg)
	}
	return parts[0], parts[1], nil
}
