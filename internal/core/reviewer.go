package core

import "context"

// ReviewRequest carries everything the AI reviewer needs for one cycle.
type ReviewRequest struct {
	RepoOwner string
	RepoName  string
	PRNumber  int
	PRTitle   string
	PRBody    string
	Diff      string

	// CustomInstructions come from the repository's .codecoach.yml, if any.
	CustomInstructions []string

	// ReReview marks a cycle for a PR that already has at least one
	// completed review. PriorFeedback and PriorComment supply the context
	// recovered from the previous cycle.
	ReReview      bool
	PriorFeedback []ExtractedFeedback
	PriorComment  string
}

// ReviewResult is the AI reviewer's output. Strengths and Issues are the raw
// free-text observations consumed by the progress evaluator on re-reviews;
// Feedback is the structured list rendered into the posted comment.
type ReviewResult struct {
	Feedback  []ExtractedFeedback
	Strengths []string
	Issues    []string
}

// Reviewer is the opaque AI-model boundary: code and context in, feedback
// items out. Implementations live outside the orchestrator core.
type Reviewer interface {
	Review(ctx context.Context, req *ReviewRequest) (*ReviewResult, error)
}
