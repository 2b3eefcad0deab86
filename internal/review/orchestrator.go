package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/codecoach/codecoach/internal/config"
	"github.com/codecoach/codecoach/internal/core"
	gh "github.com/codecoach/codecoach/internal/github"
	"github.com/codecoach/codecoach/internal/storage"
)

// Outcome describes how the orchestrator disposed of one trigger.
type Outcome string

const (
	// OutcomeIgnored: not a review-relevant event, or no trigger mention.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeSkipped: this exact trigger was already processed.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeIneligible: repository inactive, auto-review disabled, or no
	// credential. Never retried; not a failure.
	OutcomeIneligible Outcome = "ineligible"
	// OutcomeAborted: the PR is closed or gone; terminal for this cycle.
	OutcomeAborted Outcome = "aborted"
	// OutcomeReviewed: a review was posted and the tracker updated.
	OutcomeReviewed Outcome = "reviewed"
)

// Orchestrator ties the review pipeline together: it ingests webhook events
// and poll-discovered triggers through one idempotency gate, invokes the AI
// reviewer with re-review context, posts the result, and updates the tracker.
type Orchestrator struct {
	cfg       config.ReviewConfig
	registry  storage.RepoRegistry
	tracker   storage.Tracker
	feedback  storage.FeedbackStore
	clients   gh.ClientFactory
	reviewer  core.Reviewer
	detector  *MentionDetector
	evaluator *ProgressEvaluator
	logger    *slog.Logger

	// prLocks serializes cycles per pull request so a webhook-triggered and
	// a poll-triggered cycle for the same PR cannot interleave in-process.
	prLocks sync.Map
}

// NewOrchestrator creates the review orchestrator.
func NewOrchestrator(
	cfg config.ReviewConfig,
	registry storage.RepoRegistry,
	tracker storage.Tracker,
	feedback storage.FeedbackStore,
	clients gh.ClientFactory,
	reviewer core.Reviewer,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		registry:  registry,
		tracker:   tracker,
		feedback:  feedback,
		clients:   clients,
		reviewer:  reviewer,
		detector:  NewMentionDetector(cfg.TriggerToken),
		evaluator: NewProgressEvaluator(),
		logger:    logger,
	}
}

// ProcessEvent runs the decision pipeline for one trigger. Webhook deliveries
// and poll-discovered triggers both enter here, which is what guarantees they
// share a single idempotency gate.
//
// A returned error means the cycle aborted before the tracker was updated;
// the next poll pass or a redelivered webhook retries the same work. All
// other dispositions are reported through the Outcome.
func (o *Orchestrator) ProcessEvent(ctx context.Context, ev *core.ReviewEvent) (Outcome, error) {
	if ev.Kind == core.EventIgnored {
		return OutcomeIgnored, nil
	}

	if !o.detector.Matches(ev.TriggerText()) {
		return OutcomeIgnored, nil
	}

	processed, err := o.triggerProcessed(ctx, ev)
	if err != nil {
		return "", fmt.Errorf("failed to check tracker state: %w", err)
	}
	if processed {
		return OutcomeSkipped, nil
	}

	repo, err := o.registry.Get(ctx, ev.RepoOwner, ev.RepoName)
	if errors.Is(err, storage.ErrNotFound) {
		o.logger.Info("repository not registered, dropping event", "repo", ev.RepoFullName)
		return OutcomeIneligible, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load repository config: %w", err)
	}
	if !repo.Reviewable() {
		o.logger.Info("repository not eligible for review",
			"repo", repo.FullName(),
			"active", repo.IsActive,
			"auto_review", repo.AllowAutoReview,
			"has_credential", repo.HasCredential())
		return OutcomeIneligible, nil
	}

	unlock := o.lockPR(ev.RepoOwner, ev.RepoName, ev.PRNumber)
	defer unlock()

	// Re-check under the lock: a concurrent cycle for the same PR may have
	// processed this trigger while we waited.
	processed, err = o.triggerProcessed(ctx, ev)
	if err != nil {
		return "", fmt.Errorf("failed to re-check tracker state: %w", err)
	}
	if processed {
		return OutcomeSkipped, nil
	}

	client, err := o.clients.ClientFor(ctx, repo)
	if err != nil {
		return "", fmt.Errorf("failed to create API client: %w", err)
	}

	return o.runCycle(ctx, repo, client, ev)
}

// runCycle performs the fetch → review → post → mark sequence. The tracker
// is only touched after the comment is posted, so any earlier failure leaves
// the trigger unprocessed and retryable.
func (o *Orchestrator) runCycle(ctx context.Context, repo *core.RepositoryConfig, client gh.Client, ev *core.ReviewEvent) (Outcome, error) {
	pr, err := client.GetPullRequest(ctx, ev.RepoOwner, ev.RepoName, ev.PRNumber)
	if gh.IsNotFound(err) {
		o.logger.Info("pull request no longer exists, ending cycle",
			"repo", ev.RepoFullName, "pr", ev.PRNumber)
		return OutcomeAborted, nil
	}
	if err != nil {
		return "", err
	}
	if !pr.Open() {
		o.logger.Info("pull request no longer open, ending cycle",
			"repo", ev.RepoFullName, "pr", ev.PRNumber, "state", pr.State)
		return OutcomeAborted, nil
	}

	record, err := o.tracker.Get(ctx, ev.RepoOwner, ev.RepoName, ev.PRNumber)
	if err != nil {
		return "", fmt.Errorf("failed to load tracker record: %w", err)
	}
	reReview := record != nil && record.ReviewCount > 0

	var prior []core.ExtractedFeedback
	var priorComment string
	if reReview {
		prior, priorComment = o.recoverPriorFeedback(ctx, client, ev, record)
	}

	diff, err := client.GetPullRequestDiff(ctx, ev.RepoOwner, ev.RepoName, ev.PRNumber)
	if gh.IsNotFound(err) {
		return OutcomeAborted, nil
	}
	if err != nil {
		return "", err
	}

	fileCfg := o.loadRepoFileConfig(ctx, client, ev)
	if fileCfg.TriggerToken != "" {
		override := NewMentionDetector(fileCfg.TriggerToken)
		if !override.Matches(ev.TriggerText()) {
			o.logger.Info("repository overrides trigger token, dropping event",
				"repo", ev.RepoFullName, "pr", ev.PRNumber)
			return OutcomeIgnored, nil
		}
	}

	result, err := o.reviewer.Review(ctx, &core.ReviewRequest{
		RepoOwner:          ev.RepoOwner,
		RepoName:           ev.RepoName,
		PRNumber:           ev.PRNumber,
		PRTitle:            pr.Title,
		PRBody:             pr.Body,
		Diff:               diff,
		CustomInstructions: fileCfg.CustomInstructions,
		ReReview:           reReview,
		PriorFeedback:      prior,
		PriorComment:       priorComment,
	})
	if err != nil {
		return "", fmt.Errorf("review generation failed: %w", err)
	}

	var evals []core.EvaluationResult
	if reReview {
		evals = o.evaluator.EvaluateAll(prior, result.Strengths, result.Issues)
	}

	body := ComposeComment(result, evals)
	posted, err := client.PostComment(ctx, ev.RepoOwner, ev.RepoName, ev.PRNumber, body)
	if err != nil {
		return "", err
	}

	if err := o.markProcessed(ctx, ev); err != nil {
		return "", fmt.Errorf("review posted but tracker update failed: %w", err)
	}
	if err := o.tracker.RecordPostedReviewComment(ctx, ev.RepoOwner, ev.RepoName, ev.PRNumber, posted.ID); err != nil {
		return "", fmt.Errorf("failed to record posted review comment: %w", err)
	}
	if err := o.feedback.SaveReviewFeedback(ctx, ev.RepoOwner, ev.RepoName, ev.PRNumber, posted.ID, result.Feedback); err != nil {
		// the hidden JSON block in the posted comment still allows recovery
		o.logger.Error("failed to persist structured feedback", "repo", ev.RepoFullName, "pr", ev.PRNumber, "error", err)
	}

	o.logger.Info("review cycle completed",
		"repo", repo.FullName(),
		"pr", ev.PRNumber,
		"trigger", ev.Trigger(),
		"re_review", reReview,
		"comment_id", posted.ID)
	return OutcomeReviewed, nil
}

// recoverPriorFeedback loads the previous cycle's structured feedback. The
// feedback history table is preferred; parsing the last posted comment is the
// fallback for reviews that predate it. A missing or malformed source yields
// an empty list so the re-review proceeds as a fresh review.
func (o *Orchestrator) recoverPriorFeedback(ctx context.Context, client gh.Client, ev *core.ReviewEvent, record *core.TrackerRecord) ([]core.ExtractedFeedback, string) {
	stored, err := o.feedback.LatestForPR(ctx, ev.RepoOwner, ev.RepoName, ev.PRNumber)
	if err != nil {
		o.logger.Warn("failed to load feedback history, falling back to comment extraction",
			"repo", ev.RepoFullName, "pr", ev.PRNumber, "error", err)
	}
	if len(stored) > 0 {
		return stored, ""
	}

	commentID := record.LastPostedCommentID()
	if commentID == 0 {
		return nil, ""
	}

	comment, err := client.GetComment(ctx, ev.RepoOwner, ev.RepoName, commentID)
	if err != nil {
		o.logger.Warn("could not fetch prior review comment, proceeding without context",
			"repo", ev.RepoFullName, "pr", ev.PRNumber, "comment_id", commentID, "error", err)
		return nil, ""
	}

	return ExtractFeedback(comment.Body), comment.Body
}

func (o *Orchestrator) loadRepoFileConfig(ctx context.Context, client gh.Client, ev *core.ReviewEvent) *core.RepoFileConfig {
	data, err := client.GetFileContents(ctx, ev.RepoOwner, ev.RepoName, o.cfg.RepoConfigPath)
	if err != nil {
		o.logger.Warn("failed to fetch repo config file, using defaults",
			"repo", ev.RepoFullName, "path", o.cfg.RepoConfigPath, "error", err)
		return core.DefaultRepoFileConfig()
	}
	cfg, err := core.ParseRepoFileConfig(data)
	if err != nil {
		o.logger.Warn("malformed repo config file, using defaults",
			"repo", ev.RepoFullName, "path", o.cfg.RepoConfigPath, "error", err)
		return core.DefaultRepoFileConfig()
	}
	return cfg
}

func (o *Orchestrator) triggerProcessed(ctx context.Context, ev *core.ReviewEvent) (bool, error) {
	if ev.Trigger() == core.TriggerComment {
		return o.tracker.IsCommentProcessed(ctx, ev.RepoOwner, ev.RepoName, ev.PRNumber, ev.CommentID)
	}
	return o.tracker.IsDescriptionProcessed(ctx, ev.RepoOwner, ev.RepoName, ev.PRNumber)
}

func (o *Orchestrator) markProcessed(ctx context.Context, ev *core.ReviewEvent) error {
	if ev.Trigger() == core.TriggerComment {
		return o.tracker.MarkCommentProcessed(ctx, ev.RepoOwner, ev.RepoName, ev.PRNumber, ev.CommentID)
	}
	return o.tracker.MarkDescriptionProcessed(ctx, ev.RepoOwner, ev.RepoName, ev.PRNumber)
}

func (o *Orchestrator) lockPR(owner, repo string, prNumber int) func() {
	key := fmt.Sprintf("%s/%s#%d", owner, repo, prNumber)
	muAny, _ := o.prLocks.LoadOrStore(key, &sync.Mutex{})
	mu := muAny.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// CheckPullRequest runs the reconciliation logic for a single pull request.
// It backs the operator's "check this PR now" surface.
func (o *Orchestrator) CheckPullRequest(ctx context.Context, owner, name string, prNumber int) (Outcome, error) {
	repo, err := o.registry.Get(ctx, owner, name)
	if err != nil {
		return "", fmt.Errorf("failed to load repository config: %w", err)
	}
	if !repo.Reviewable() {
		return OutcomeIneligible, nil
	}

	client, err := o.clients.ClientFor(ctx, repo)
	if err != nil {
		return "", fmt.Errorf("failed to create API client: %w", err)
	}

	pr, err := client.GetPullRequest(ctx, owner, name, prNumber)
	if err != nil {
		return "", err
	}
	return o.reconcilePR(ctx, repo, client, pr)
}

// CheckExistingPullRequests is the reconciliation sweep: it walks every
// active, auto-review-enabled repository, lists open PRs, and applies the
// same decision pipeline as webhooks to each PR's description and comments.
// Repositories are swept concurrently; PRs within a repository sequentially
// to respect the API rate budget.
func (o *Orchestrator) CheckExistingPullRequests(ctx context.Context) error {
	repos, err := o.registry.ListReviewable(ctx)
	if err != nil {
		return fmt.Errorf("failed to list repositories: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	limit := o.cfg.PollRepoConcurrency
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)

	for _, repo := range repos {
		g.Go(func() error {
			if err := o.sweepRepository(ctx, repo); err != nil {
				// one broken repository must not end the whole sweep
				o.logger.Error("repository sweep failed", "repo", repo.FullName(), "error", err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (o *Orchestrator) sweepRepository(ctx context.Context, repo *core.RepositoryConfig) error {
	client, err := o.clients.ClientFor(ctx, repo)
	if err != nil {
		return err
	}

	prs, err := client.ListOpenPullRequests(ctx, repo.Owner, repo.Name)
	if err != nil {
		return err
	}

	var reviewed, skipped int
	for _, pr := range prs {
		outcome, err := o.reconcilePR(ctx, repo, client, pr)
		if err != nil {
			o.logger.Error("poll cycle failed, will retry on next pass",
				"repo", repo.FullName(), "pr", pr.Number, "error", err)
			continue
		}
		switch outcome {
		case OutcomeReviewed:
			reviewed++
		case OutcomeSkipped:
			skipped++
		}
	}

	o.logger.Info("repository sweep finished",
		"repo", repo.FullName(), "open_prs", len(prs), "reviewed", reviewed, "skipped", skipped)
	return nil
}

// reconcilePR derives the same triggers a webhook would have delivered for
// one PR and feeds at most one of them through the processing gate, the
// description match preferred over the first unprocessed mentioning comment.
// The one-trigger cap bounds API usage per poll pass.
func (o *Orchestrator) reconcilePR(ctx context.Context, repo *core.RepositoryConfig, client gh.Client, pr *gh.PullRequest) (Outcome, error) {
	if o.detector.Matches(pr.Body) {
		ev := &core.ReviewEvent{
			Kind:         core.EventPullRequestOpened,
			RepoOwner:    repo.Owner,
			RepoName:     repo.Name,
			RepoFullName: repo.FullName(),
			PRNumber:     pr.Number,
			PRTitle:      pr.Title,
			PRBody:       pr.Body,
		}
		outcome, err := o.ProcessEvent(ctx, ev)
		if err != nil || outcome != OutcomeSkipped {
			return outcome, err
		}
		// description already handled; fall through to the comments
	}

	comments, err := client.ListComments(ctx, repo.Owner, repo.Name, pr.Number)
	if err != nil {
		return "", err
	}

	record, err := o.tracker.Get(ctx, repo.Owner, repo.Name, pr.Number)
	if err != nil {
		return "", fmt.Errorf("failed to load tracker record: %w", err)
	}

	// ListComments returns newest first; walk oldest first so the earliest
	// unanswered request wins.
	for i := len(comments) - 1; i >= 0; i-- {
		c := comments[i]
		if c.Kind != gh.KindConversation {
			continue
		}
		if record != nil && (record.HasProcessedComment(c.ID) || isOwnComment(record, c.ID)) {
			continue
		}
		if !o.detector.Matches(c.Body) {
			continue
		}

		ev := &core.ReviewEvent{
			Kind:         core.EventCommentCreated,
			RepoOwner:    repo.Owner,
			RepoName:     repo.Name,
			RepoFullName: repo.FullName(),
			PRNumber:     pr.Number,
			PRTitle:      pr.Title,
			PRBody:       pr.Body,
			CommentID:    c.ID,
			CommentBody:  c.Body,
			Sender:       c.Author,
		}
		return o.ProcessEvent(ctx, ev)
	}

	return OutcomeSkipped, nil
}

func isOwnComment(record *core.TrackerRecord, commentID int64) bool {
	for _, id := range record.PostedCommentIDs {
		if id == commentID {
			return true
		}
	}
	return false
}

// TestRepositoryAccess verifies that the stored credential can reach the
// repository. It backs the operator's connectivity check.
func (o *Orchestrator) TestRepositoryAccess(ctx context.Context, owner, name string) error {
	repo, err := o.registry.Get(ctx, owner, name)
	if err != nil {
		return fmt.Errorf("failed to load repository config: %w", err)
	}
	if !repo.HasCredential() {
		return fmt.Errorf("repository %s has no API credential", repo.FullName())
	}

	client, err := o.clients.ClientFor(ctx, repo)
	if err != nil {
		return fmt.Errorf("failed to create API client: %w", err)
	}

	if _, err := client.ListOpenPullRequests(ctx, owner, name); err != nil {
		return fmt.Errorf("repository %s is not reachable: %w", repo.FullName(), err)
	}
	return nil
}
