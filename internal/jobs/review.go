package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/codecoach/codecoach/internal/core"
	"github.com/codecoach/codecoach/internal/review"
)

// ReviewJob is a background job that runs one event through the review
// orchestrator.
type ReviewJob struct {
	orchestrator *review.Orchestrator
	logger       *slog.Logger
}

// NewReviewJob creates a new ReviewJob.
func NewReviewJob(orchestrator *review.Orchestrator, logger *slog.Logger) core.Job {
	if orchestrator == nil {
		panic("orchestrator cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &ReviewJob{orchestrator: orchestrator, logger: logger}
}

// Run executes the review pipeline for a given event.
func (j *ReviewJob) Run(ctx context.Context, event *core.ReviewEvent) error {
	if err := validateEvent(event); err != nil {
		return fmt.Errorf("input validation failed: %w", err)
	}

	outcome, err := j.orchestrator.ProcessEvent(ctx, event)
	if err != nil {
		return err
	}

	j.logger.Info("review job finished",
		"repo", event.RepoFullName,
		"pr", event.PRNumber,
		"event", event.Kind.String(),
		"outcome", string(outcome),
	)
	return nil
}

// validateEvent ensures the event carries the fields the pipeline relies on.
func validateEvent(event *core.ReviewEvent) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if event.Kind == core.EventIgnored {
		return nil
	}
	if event.RepoOwner == "" {
		return fmt.Errorf("repository owner cannot be empty")
	}
	if event.RepoName == "" {
		return fmt.Errorf("repository name cannot be empty")
	}
	if event.PRNumber <= 0 {
		return fmt.Errorf("pull request number must be positive, got: %d", event.PRNumber)
	}
	if event.Kind == core.EventCommentCreated && event.CommentID <= 0 {
		return fmt.Errorf("comment ID must be positive, got: %d", event.CommentID)
	}
	return nil
}
