// Package handler provides HTTP handlers for the CodeCoach application.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/go-github/v73/github"

	"github.com/codecoach/codecoach/internal/core"
	gh "github.com/codecoach/codecoach/internal/github"
	"github.com/codecoach/codecoach/internal/storage"
)

// maxPayloadBytes caps webhook bodies; GitHub's own limit is 25 MB.
const maxPayloadBytes = 25 << 20

// WebhookHandler processes incoming webhooks from GitHub. Each registered
// repository carries its own webhook secret, so the raw body is read first,
// the repository is peeked from the payload, and the signature is verified
// against that repository's secret.
type WebhookHandler struct {
	registry   storage.RepoRegistry
	dispatcher core.JobDispatcher
	logger     *slog.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(registry storage.RepoRegistry, dispatcher core.JobDispatcher, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		registry:   registry,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// repoPeek extracts only the repository identity from a payload, enough to
// look up the per-repository secret before full parsing.
type repoPeek struct {
	Repository struct {
		Name  string `json:"name"`
		Owner struct {
			Login string `json:"login"`
		} `json:"owner"`
	} `json:"repository"`
}

// Handle processes GitHub webhook requests. The signature is verified over
// the exact raw bytes received; the payload is never re-serialized before
// verification.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
	if err != nil {
		h.logger.Error("failed to read webhook body", "error", err)
		http.Error(w, "Failed to read request body", http.StatusInternalServerError)
		return
	}

	var peek repoPeek
	if err := json.Unmarshal(body, &peek); err != nil || peek.Repository.Owner.Login == "" || peek.Repository.Name == "" {
		h.logger.Warn("webhook payload has no repository identity")
		http.Error(w, "Invalid payload", http.StatusBadRequest)
		return
	}
	owner, name := peek.Repository.Owner.Login, peek.Repository.Name

	repo, err := h.registry.Get(r.Context(), owner, name)
	if errors.Is(err, storage.ErrNotFound) {
		// fail closed: without a registered secret the sender cannot be
		// authenticated
		h.logger.Warn("webhook for unregistered repository rejected", "repo", owner+"/"+name)
		http.Error(w, "Unknown repository", http.StatusUnauthorized)
		return
	}
	if err != nil {
		h.logger.Error("failed to load repository config", "repo", owner+"/"+name, "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	signature := r.Header.Get("X-Hub-Signature")
	if !gh.VerifySignature(body, signature, repo.WebhookSecret) {
		h.logger.Warn("webhook signature verification failed",
			"repo", repo.FullName(),
			"remote_addr", r.RemoteAddr,
			"delivery", r.Header.Get("X-GitHub-Delivery"))
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	event, err := github.ParseWebHook(github.WebHookType(r), body)
	if err != nil {
		h.logger.Error("could not parse webhook", "error", err)
		http.Error(w, "Could not parse webhook", http.StatusBadRequest)
		return
	}

	switch e := event.(type) {
	case *github.PullRequestEvent:
		reviewEvent, err := core.EventFromPullRequest(e)
		if err != nil {
			h.logger.Warn("malformed pull_request event", "error", err)
			http.Error(w, "Malformed event", http.StatusBadRequest)
			return
		}
		h.dispatch(r.Context(), w, reviewEvent)
	case *github.IssueCommentEvent:
		reviewEvent, err := core.EventFromIssueComment(e)
		if err != nil {
			h.logger.Warn("malformed issue_comment event", "error", err)
			http.Error(w, "Malformed event", http.StatusBadRequest)
			return
		}
		h.dispatch(r.Context(), w, reviewEvent)
	default:
		h.logger.Debug("ignoring unhandled webhook event type", "type", github.WebHookType(r))
		_, _ = fmt.Fprint(w, "Event type not handled")
	}
}

// dispatch hands a review-relevant event to the worker pool. Ignored events
// are acknowledged without queuing so GitHub does not redeliver them.
func (h *WebhookHandler) dispatch(ctx context.Context, w http.ResponseWriter, event *core.ReviewEvent) {
	if event.Kind == core.EventIgnored {
		h.logger.Debug("event carries no review-relevant action", "repo", event.RepoFullName)
		_, _ = fmt.Fprint(w, "Event ignored")
		return
	}

	if err := h.dispatcher.Dispatch(ctx, event); err != nil {
		h.logger.Error("failed to dispatch review job", "error", err, "repo", event.RepoFullName)
		http.Error(w, "Failed to start review job", http.StatusInternalServerError)
		return
	}

	h.logger.Info("review job dispatched",
		"repo", event.RepoFullName,
		"pr", event.PRNumber,
		"event", event.Kind.String())
	w.WriteHeader(http.StatusAccepted)
	_, _ = fmt.Fprint(w, "Review job accepted")
}
