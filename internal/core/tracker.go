package core

import "time"

// HistoryEntry is one append-only line in a tracker record's review log.
type HistoryEntry struct {
	Trigger   TriggerKind
	CommentID int64 // zero for description triggers
	CreatedAt time.Time
}

// TrackerRecord is the durable idempotency ledger entry for one pull request.
// It is the single source of truth for "has this trigger been handled".
// Records are created lazily on the first completed review and never deleted
// by the orchestrator.
type TrackerRecord struct {
	ID       int64
	Owner    string
	Repo     string
	PRNumber int

	DescriptionProcessed bool
	ProcessedCommentIDs  []int64
	ReviewCount          int
	LastReviewAt         *time.Time

	History []HistoryEntry

	// PostedCommentIDs lists, in posting order, the IDs of review comments
	// the orchestrator itself published. The last entry locates the prior
	// review for re-review context.
	PostedCommentIDs []int64
}

// LastPostedCommentID returns the most recently posted review comment ID,
// or zero if none was recorded.
func (r *TrackerRecord) LastPostedCommentID() int64 {
	if len(r.PostedCommentIDs) == 0 {
		return 0
	}
	return r.PostedCommentIDs[len(r.PostedCommentIDs)-1]
}

// HasProcessedComment reports whether commentID is in the processed set.
func (r *TrackerRecord) HasProcessedComment(commentID int64) bool {
	for _, id := range r.ProcessedCommentIDs {
		if id == commentID {
			return true
		}
	}
	return false
}
