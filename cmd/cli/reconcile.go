package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Run one reconciliation sweep over all registered repositories",
	Long: `Run one reconciliation sweep over all registered repositories.

The sweep lists open pull requests in every active repository and processes
any trigger mention that webhook delivery missed. This is the same pass the
server runs periodically.`,
	RunE: runReconcile,
}

func init() { //nolint:gochecknoinits // Cobra command registration
	rootCmd.AddCommand(reconcileCmd)
}

func runReconcile(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	env, err := newCLIEnv(true)
	if err != nil {
		return err
	}
	defer env.cleanup()

	titleColor.Println("CodeCoach - reconciliation sweep")
	start := time.Now()

	if err := env.orchestrator.CheckExistingPullRequests(ctx); err != nil {
		return err
	}

	successColor.Printf("Sweep completed in %s.\n", time.Since(start).Round(time.Millisecond))
	return nil
}
