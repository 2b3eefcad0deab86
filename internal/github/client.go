package github

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/go-github/v73/github"
	"golang.org/x/time/rate"
)

// CommentKind distinguishes the two comment feeds GitHub exposes for a PR.
type CommentKind string

const (
	// KindConversation is a PR-level conversation (issue) comment.
	KindConversation CommentKind = "conversation"
	// KindInline is a review comment attached to a diff line.
	KindInline CommentKind = "inline"
)

// Comment is the thin view of a PR comment the orchestrator works with.
type Comment struct {
	ID        int64
	Body      string
	Author    string
	Kind      CommentKind
	CreatedAt time.Time
}

// PullRequest is the thin view of a pull request.
type PullRequest struct {
	Number  int
	Title   string
	Body    string
	State   string
	HeadSHA string
}

// Open reports whether the PR is still open.
func (p *PullRequest) Open() bool { return p.State == "open" }

// Client defines the operations the review orchestrator depends on. All
// failures are reported as *APIError so callers can distinguish not-found
// from transient conditions.
type Client interface {
	GetPullRequest(ctx context.Context, owner, repo string, number int) (*PullRequest, error)
	GetPullRequestDiff(ctx context.Context, owner, repo string, number int) (string, error)
	ListOpenPullRequests(ctx context.Context, owner, repo string) ([]*PullRequest, error)
	// ListComments merges inline review comments and conversation comments,
	// sorted by creation time descending.
	ListComments(ctx context.Context, owner, repo string, number int) ([]Comment, error)
	GetComment(ctx context.Context, owner, repo string, commentID int64) (*Comment, error)
	// PostComment publishes body on the PR, transparently splitting bodies
	// that exceed the configured size limit. It returns the first posted
	// part, whose ID identifies the review for later re-review context.
	PostComment(ctx context.Context, owner, repo string, number int, body string) (*Comment, error)
	// GetFileContents fetches a file from the repository's default branch,
	// returning nil without error when the file does not exist.
	GetFileContents(ctx context.Context, owner, repo, path string) ([]byte, error)
}

type gitHubClient struct {
	client       *github.Client
	logger       *slog.Logger
	commentLimit int
	postLimiter  *rate.Limiter
}

// Option configures a client wrapper.
type Option func(*gitHubClient)

// WithCommentSizeLimit overrides the maximum size of a single posted comment.
func WithCommentSizeLimit(limit int) Option {
	return func(c *gitHubClient) {
		if limit > 0 {
			c.commentLimit = limit
		}
	}
}

// DefaultCommentSizeLimit mirrors the provider's comment body cap.
const DefaultCommentSizeLimit = 65536

// NewClient wraps the official go-github client with the focused interface
// the orchestrator consumes.
func NewClient(client *github.Client, logger *slog.Logger, opts ...Option) Client {
	c := &gitHubClient{
		client:       client,
		logger:       logger,
		commentLimit: DefaultCommentSizeLimit,
		// one posted part per second keeps multi-part comments under the
		// secondary rate limit
		postLimiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (g *gitHubClient) GetPullRequest(ctx context.Context, owner, repo string, number int) (*PullRequest, error) {
	pr, resp, err := g.client.PullRequests.Get(ctx, owner, repo, number)
	g.observeRate(resp, "get_pull_request")
	if err != nil {
		return nil, wrapErr("get pull request", err)
	}
	return convertPR(pr), nil
}

func (g *gitHubClient) GetPullRequestDiff(ctx context.Context, owner, repo string, number int) (string, error) {
	diff, resp, err := g.client.PullRequests.GetRaw(ctx, owner, repo, number, github.RawOptions{Type: github.Diff})
	g.observeRate(resp, "get_pull_request_diff")
	if err != nil {
		return "", wrapErr("get pull request diff", err)
	}
	return diff, nil
}

func (g *gitHubClient) ListOpenPullRequests(ctx context.Context, owner, repo string) ([]*PullRequest, error) {
	var all []*PullRequest
	opts := &github.PullRequestListOptions{
		State:       "open",
		ListOptions: github.ListOptions{PerPage: 100},
	}
	for {
		prs, resp, err := g.client.PullRequests.List(ctx, owner, repo, opts)
		g.observeRate(resp, "list_open_pull_requests")
		if err != nil {
			return nil, wrapErr("list open pull requests", err)
		}
		for _, pr := range prs {
			all = append(all, convertPR(pr))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

func (g *gitHubClient) ListComments(ctx context.Context, owner, repo string, number int) ([]Comment, error) {
	var all []Comment

	issueOpts := &github.IssueListCommentsOptions{ListOptions: github.ListOptions{PerPage: 100}}
	for {
		comments, resp, err := g.client.Issues.ListComments(ctx, owner, repo, number, issueOpts)
		g.observeRate(resp, "list_conversation_comments")
		if err != nil {
			return nil, wrapErr("list conversation comments", err)
		}
		for _, c := range comments {
			all = append(all, Comment{
				ID:        c.GetID(),
				Body:      c.GetBody(),
				Author:    c.GetUser().GetLogin(),
				Kind:      KindConversation,
				CreatedAt: c.GetCreatedAt().Time,
			})
		}
		if resp.NextPage == 0 {
			break
		}
		issueOpts.Page = resp.NextPage
	}

	reviewOpts := &github.PullRequestListCommentsOptions{ListOptions: github.ListOptions{PerPage: 100}}
	for {
		comments, resp, err := g.client.PullRequests.ListComments(ctx, owner, repo, number, reviewOpts)
		g.observeRate(resp, "list_inline_comments")
		if err != nil {
			return nil, wrapErr("list inline comments", err)
		}
		for _, c := range comments {
			all = append(all, Comment{
				ID:        c.GetID(),
				Body:      c.GetBody(),
				Author:    c.GetUser().GetLogin(),
				Kind:      KindInline,
				CreatedAt: c.GetCreatedAt().Time,
			})
		}
		if resp.NextPage == 0 {
			break
		}
		reviewOpts.Page = resp.NextPage
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return all, nil
}

func (g *gitHubClient) GetComment(ctx context.Context, owner, repo string, commentID int64) (*Comment, error) {
	c, resp, err := g.client.Issues.GetComment(ctx, owner, repo, commentID)
	g.observeRate(resp, "get_comment")
	if err != nil {
		return nil, wrapErr("get comment", err)
	}
	return &Comment{
		ID:        c.GetID(),
		Body:      c.GetBody(),
		Author:    c.GetUser().GetLogin(),
		Kind:      KindConversation,
		CreatedAt: c.GetCreatedAt().Time,
	}, nil
}

func (g *gitHubClient) PostComment(ctx context.Context, owner, repo string, number int, body string) (*Comment, error) {
	parts := SplitComment(body, g.commentLimit)
	if len(parts) > 1 {
		g.logger.Info("splitting oversized review comment",
			"repo", owner+"/"+repo, "pr", number, "parts", len(parts))
	}

	var first *Comment
	for i, part := range parts {
		if i > 0 {
			if err := g.postLimiter.Wait(ctx); err != nil {
				return first, wrapErr("post comment", err)
			}
		}
		posted, resp, err := g.client.Issues.CreateComment(ctx, owner, repo, number, &github.IssueComment{Body: github.Ptr(part)})
		g.observeRate(resp, "post_comment")
		if err != nil {
			return first, wrapErr("post comment", err)
		}
		if first == nil {
			first = &Comment{
				ID:        posted.GetID(),
				Body:      posted.GetBody(),
				Author:    posted.GetUser().GetLogin(),
				Kind:      KindConversation,
				CreatedAt: posted.GetCreatedAt().Time,
			}
		}
	}
	return first, nil
}

func (g *gitHubClient) GetFileContents(ctx context.Context, owner, repo, path string) ([]byte, error) {
	file, _, resp, err := g.client.Repositories.GetContents(ctx, owner, repo, path, nil)
	g.observeRate(resp, "get_file_contents")
	if err != nil {
		wrapped := wrapErr("get file contents", err)
		if IsNotFound(wrapped) {
			return nil, nil
		}
		return nil, wrapped
	}
	if file == nil {
		return nil, nil
	}
	content, err := file.GetContent()
	if err != nil {
		return nil, wrapErr("decode file contents", err)
	}
	return []byte(content), nil
}

// observeRate logs the remaining API call budget so operators can see
// back-pressure building before the limiter trips.
func (g *gitHubClient) observeRate(resp *github.Response, op string) {
	if resp == nil {
		return
	}
	if resp.Rate.Remaining > 0 && resp.Rate.Remaining < 100 {
		g.logger.Warn("GitHub API rate budget running low",
			"op", op,
			"remaining", resp.Rate.Remaining,
			"reset", resp.Rate.Reset.Time,
		)
	}
}

func convertPR(pr *github.PullRequest) *PullRequest {
	return &PullRequest{
		Number:  pr.GetNumber(),
		Title:   pr.GetTitle(),
		Body:    pr.GetBody(),
		State:   pr.GetState(),
		HeadSHA: pr.GetHead().GetSHA(),
	}
}
