// Package ai implements the core.Reviewer boundary on top of the Anthropic
// Messages API.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/codecoach/codecoach/internal/config"
	"github.com/codecoach/codecoach/internal/core"
)

const (
	// apiTimeout is the maximum time to wait for a model response.
	apiTimeout = 3 * time.Minute

	// maxRetries is the number of times to retry transient API failures.
	maxRetries = 3

	// retryBaseDelay is the initial delay between retries (doubles each attempt).
	retryBaseDelay = 1 * time.Second
)

const systemPrompt = `You are CodeCoach, a code review coach for a software training platform.
You review pull requests submitted by learners. Your feedback is educational:
name what was done well and what should improve, and explain how to improve it.

Respond with ONLY a JSON object, no surrounding prose, in this shape:
{
  "feedback": [
    {
      "type": "strength" | "improvement",
      "category": "code_quality" | "security" | "performance" | "best_practice" | "readability" | "functionality" | "maintainability" | "architecture" | "other",
      "point": "one-sentence observation",
      "suggestion": "how to improve (improvement items only)",
      "code_snippet": "optional short illustrative code",
      "reference_url": "optional link to documentation"
    }
  ],
  "strengths": ["free-text strength observations"],
  "issues": ["free-text open issue observations"]
}`

// reviewer calls the Anthropic Messages API and parses the structured
// feedback out of the response.
type reviewer struct {
	client    *anthropic.Client
	model     string
	maxTokens int64
	logger    *slog.Logger
}

// NewReviewer creates a core.Reviewer backed by the Anthropic API.
func NewReviewer(cfg config.AIConfig, logger *slog.Logger) (core.Reviewer, error) {
	if cfg.AnthropicAPIKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY must be set")
	}
	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &reviewer{
		client:    anthropic.NewClient(option.WithAPIKey(cfg.AnthropicAPIKey)),
		model:     cfg.Model,
		maxTokens: maxTokens,
		logger:    logger,
	}, nil
}

// modelEnvelope mirrors the JSON shape requested in the system prompt.
type modelEnvelope struct {
	Feedback  []core.ExtractedFeedback `json:"feedback"`
	Strengths []string                 `json:"strengths"`
	Issues    []string                 `json:"issues"`
}

// Review sends the PR context to the model and parses the result.
func (r *reviewer) Review(ctx context.Context, req *core.ReviewRequest) (*core.ReviewResult, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, apiTimeout)
	defer cancel()

	prompt := buildPrompt(req)

	message, err := retryWithBackoff(timeoutCtx, r.logger, "review", func() (*anthropic.Message, error) {
		return r.client.Messages.New(timeoutCtx, anthropic.MessageNewParams{
			Model:     anthropic.F(anthropic.Model(r.model)),
			MaxTokens: anthropic.F(r.maxTokens),
			System: anthropic.F([]anthropic.TextBlockParam{
				anthropic.NewTextBlock(systemPrompt),
			}),
			Messages: anthropic.F([]anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			}),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("model request failed: %w", err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		if block.Type == anthropic.ContentBlockTypeText {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("model returned no text content")
	}

	return parseResponse(text.String())
}

// buildPrompt assembles the user message for one review cycle.
func buildPrompt(req *core.ReviewRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Repository: %s/%s\n", req.RepoOwner, req.RepoName)
	fmt.Fprintf(&b, "Pull request #%d: %s\n\n", req.PRNumber, req.PRTitle)

	if req.PRBody != "" {
		b.WriteString("## Description\n\n")
		b.WriteString(req.PRBody)
		b.WriteString("\n\n")
	}

	if len(req.CustomInstructions) > 0 {
		b.WriteString("## Repository review instructions\n\n")
		for _, instr := range req.CustomInstructions {
			fmt.Fprintf(&b, "- %s\n", instr)
		}
		b.WriteString("\n")
	}

	if req.ReReview {
		b.WriteString("## Previous review\n\n")
		b.WriteString("This PR was reviewed before. Pay particular attention to whether the earlier feedback was addressed.\n\n")
		if len(req.PriorFeedback) > 0 {
			for _, fb := range req.PriorFeedback {
				fmt.Fprintf(&b, "- [%s/%s] %s\n", fb.Type, fb.Category, fb.Point)
			}
			b.WriteString("\n")
		} else if req.PriorComment != "" {
			b.WriteString(req.PriorComment)
			b.WriteString("\n\n")
		}
	}

	b.WriteString("## Diff\n\n```diff\n")
	b.WriteString(req.Diff)
	b.WriteString("\n```\n")

	return b.String()
}

// parseResponse decodes the model's JSON envelope into a ReviewResult. The
// categories are normalized through the closed enum so a creative model
// answer cannot leak unknown categories downstream.
func parseResponse(raw string) (*core.ReviewResult, error) {
	cleaned := cleanResponse(raw)

	var envelope modelEnvelope
	if err := json.Unmarshal([]byte(cleaned), &envelope); err != nil {
		return nil, fmt.Errorf("model response is not valid JSON: %w", err)
	}
	if len(envelope.Feedback) == 0 {
		return nil, fmt.Errorf("model response contains no feedback items")
	}

	for i := range envelope.Feedback {
		envelope.Feedback[i].Category = core.ParseCategory(string(envelope.Feedback[i].Category))
		if envelope.Feedback[i].Type != core.FeedbackStrength {
			envelope.Feedback[i].Type = core.FeedbackImprovement
		}
	}

	return &core.ReviewResult{
		Feedback:  envelope.Feedback,
		Strengths: envelope.Strengths,
		Issues:    envelope.Issues,
	}, nil
}

// cleanResponse removes markdown code fences the model sometimes wraps the
// JSON in.
func cleanResponse(response string) string {
	response = strings.TrimSpace(response)

	if strings.HasPrefix(response, "```json") {
		response = strings.TrimPrefix(response, "```json")
	} else if strings.HasPrefix(response, "```") {
		response = strings.TrimPrefix(response, "```")
	}

	response = strings.TrimSuffix(response, "```")

	return strings.TrimSpace(response)
}

// isRetryableError checks if an error is transient and worth retrying.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504") ||
		strings.Contains(errStr, "connection") ||
		strings.Contains(errStr, "timeout") ||
		errors.Is(err, context.DeadlineExceeded)
}

// retryWithBackoff executes fn with exponential backoff on retryable errors.
func retryWithBackoff[T any](ctx context.Context, logger *slog.Logger, operation string, fn func() (T, error)) (T, error) {
	var result T
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		result, lastErr = fn()
		if lastErr == nil {
			return result, nil
		}

		if !isRetryableError(lastErr) {
			return result, lastErr
		}

		if attempt < maxRetries {
			delay := retryBaseDelay * time.Duration(1<<attempt)
			logger.Warn("retrying after transient error",
				"operation", operation,
				"attempt", attempt+1,
				"max_attempts", maxRetries+1,
				"delay", delay,
				"error", lastErr,
			)

			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return result, fmt.Errorf("max retries exceeded for %s: %w", operation, lastErr)
}
