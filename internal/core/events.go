// Package core defines the domain types and interfaces shared by the review
// orchestrator, the storage layer, and the transport boundaries. The types
// here are deliberately free of HTTP and SQL concerns so implementations can
// be swapped in tests.
package core

import (
	"fmt"

	"github.com/google/go-github/v73/github"
)

// EventKind is a closed enumeration of webhook event kinds the orchestrator
// understands. Anything else maps to EventIgnored instead of falling through
// a string switch silently.
type EventKind int

const (
	// EventIgnored marks an event that carries no review-relevant action.
	EventIgnored EventKind = iota
	// EventPullRequestOpened is a pull_request event with action "opened".
	EventPullRequestOpened
	// EventPullRequestEdited is a pull_request event with action "edited",
	// which may introduce a trigger mention into the PR description.
	EventPullRequestEdited
	// EventCommentCreated is an issue_comment event with action "created"
	// on a pull request.
	EventCommentCreated
)

// String returns a log-friendly name for the event kind.
func (k EventKind) String() string {
	switch k {
	case EventPullRequestOpened:
		return "pull_request_opened"
	case EventPullRequestEdited:
		return "pull_request_edited"
	case EventCommentCreated:
		return "comment_created"
	default:
		return "ignored"
	}
}

// TriggerKind identifies which text carried the trigger mention.
type TriggerKind string

const (
	// TriggerDescription means the PR description contained the mention.
	TriggerDescription TriggerKind = "description"
	// TriggerComment means a PR conversation comment contained the mention.
	TriggerComment TriggerKind = "comment"
)

// ReviewEvent is the internal view of a webhook payload or a poll-discovered
// trigger. It carries only the fields the orchestrator needs.
type ReviewEvent struct {
	Kind EventKind

	RepoOwner    string
	RepoName     string
	RepoFullName string

	PRNumber int
	PRTitle  string
	PRBody   string

	// CommentID and CommentBody are set only for EventCommentCreated.
	CommentID   int64
	CommentBody string

	Sender string
}

// Trigger returns the trigger kind implied by the event kind.
func (e *ReviewEvent) Trigger() TriggerKind {
	if e.Kind == EventCommentCreated {
		return TriggerComment
	}
	return TriggerDescription
}

// TriggerText returns the text blob the mention detector should inspect.
func (e *ReviewEvent) TriggerText() string {
	if e.Kind == EventCommentCreated {
		return e.CommentBody
	}
	return e.PRBody
}

// EventFromPullRequest converts a raw GitHub pull_request event into a
// ReviewEvent. It acts as an anti-corruption layer: malformed payloads yield
// an error, while payloads with a non-review-relevant action yield a
// ReviewEvent with Kind == EventIgnored.
func EventFromPullRequest(event *github.PullRequestEvent) (*ReviewEvent, error) {
	repo := event.GetRepo()
	if repo == nil || repo.GetOwner().GetLogin() == "" || repo.GetName() == "" {
		return nil, fmt.Errorf("repository or owner information is missing from the event")
	}

	pr := event.GetPullRequest()
	if pr == nil || pr.GetNumber() <= 0 {
		return nil, fmt.Errorf("invalid pull request payload")
	}

	kind := EventIgnored
	switch event.GetAction() {
	case "opened":
		kind = EventPullRequestOpened
	case "edited":
		kind = EventPullRequestEdited
	}

	return &ReviewEvent{
		Kind:         kind,
		RepoOwner:    repo.GetOwner().GetLogin(),
		RepoName:     repo.GetName(),
		RepoFullName: repo.GetFullName(),
		PRNumber:     pr.GetNumber(),
		PRTitle:      pr.GetTitle(),
		PRBody:       pr.GetBody(),
		Sender:       event.GetSender().GetLogin(),
	}, nil
}

// EventFromIssueComment converts a raw GitHub issue_comment event into a
// ReviewEvent. Comments on plain issues and non-"created" actions map to
// EventIgnored.
func EventFromIssueComment(event *github.IssueCommentEvent) (*ReviewEvent, error) {
	repo := event.GetRepo()
	if repo == nil || repo.GetOwner().GetLogin() == "" || repo.GetName() == "" {
		return nil, fmt.Errorf("repository or owner information is missing from the event")
	}

	prNumber := event.GetIssue().GetNumber()
	if prNumber <= 0 {
		return nil, fmt.Errorf("invalid pull request number: %d", prNumber)
	}

	kind := EventCommentCreated
	if event.GetAction() != "created" || !event.GetIssue().IsPullRequest() {
		kind = EventIgnored
	}
	if kind == EventCommentCreated && event.GetComment().GetID() == 0 {
		return nil, fmt.Errorf("comment ID is missing from the event")
	}

	return &ReviewEvent{
		Kind:         kind,
		RepoOwner:    repo.GetOwner().GetLogin(),
		RepoName:     repo.GetName(),
		RepoFullName: repo.GetFullName(),
		PRNumber:     prNumber,
		PRTitle:      event.GetIssue().GetTitle(),
		PRBody:       event.GetIssue().GetBody(),
		CommentID:    event.GetComment().GetID(),
		CommentBody:  event.GetComment().GetBody(),
		Sender:       event.GetSender().GetLogin(),
	}, nil
}
