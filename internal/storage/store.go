// Package storage implements the PostgreSQL persistence for the review
// orchestrator: the repository registry, the processing tracker ledger, and
// the structured feedback history.
package storage

import (
	"context"
	"errors"

	"github.com/codecoach/codecoach/internal/core"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("storage: record not found")

// RepoRegistry is the store of monitored repositories. The orchestrator only
// reads it; writes happen through admin tooling.
type RepoRegistry interface {
	Get(ctx context.Context, owner, name string) (*core.RepositoryConfig, error)
	List(ctx context.Context) ([]*core.RepositoryConfig, error)
	// ListReviewable returns active repositories with auto-review enabled.
	ListReviewable(ctx context.Context) ([]*core.RepositoryConfig, error)
	Create(ctx context.Context, repo *core.RepositoryConfig) error
	Update(ctx context.Context, repo *core.RepositoryConfig) error
}

// Tracker is the durable idempotency ledger, keyed by (owner, repo,
// pr_number). Mutations are single-transaction upserts guarded by unique
// constraints so concurrent webhook and poll invocations cannot double-mark
// a trigger.
type Tracker interface {
	// Get returns the tracker record, or (nil, nil) when none exists yet.
	Get(ctx context.Context, owner, repo string, prNumber int) (*core.TrackerRecord, error)
	IsDescriptionProcessed(ctx context.Context, owner, repo string, prNumber int) (bool, error)
	IsCommentProcessed(ctx context.Context, owner, repo string, prNumber int, commentID int64) (bool, error)
	MarkDescriptionProcessed(ctx context.Context, owner, repo string, prNumber int) error
	MarkCommentProcessed(ctx context.Context, owner, repo string, prNumber int, commentID int64) error
	RecordPostedReviewComment(ctx context.Context, owner, repo string, prNumber int, commentID int64) error
}

// FeedbackStore persists the structured feedback of every posted review.
// It is the preferred re-review context source; parsing the posted comment
// remains the fallback for reviews that predate this table.
type FeedbackStore interface {
	SaveReviewFeedback(ctx context.Context, owner, repo string, prNumber int, commentID int64, items []core.ExtractedFeedback) error
	// LatestForPR returns the feedback of the most recent review for the PR,
	// or (nil, nil) when none is stored.
	LatestForPR(ctx context.Context, owner, repo string, prNumber int) ([]core.ExtractedFeedback, error)
}
