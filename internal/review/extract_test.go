package review

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codecoach/codecoach/internal/core"
)

func sampleFeedback() []core.ExtractedFeedback {
	return []core.ExtractedFeedback{
		{
			Type:     core.FeedbackStrength,
			Category: core.CategoryCodeQuality,
			Point:    "Clear separation between handler and service layers",
		},
		{
			Type:     core.FeedbackStrength,
			Category: core.CategoryReadability,
			Point:    "Descriptive variable names throughout",
		},
		{
			Type:         core.FeedbackImprovement,
			Category:     core.CategorySecurity,
			Point:        "Passwords are stored in plaintext",
			Suggestion:   "Hash passwords with bcrypt before persisting them",
			CodeSnippet:  "hash, err := bcrypt.GenerateFromPassword(pw, bcrypt.DefaultCost)",
			ReferenceURL: "https://example.com/docs/password-storage",
		},
		{
			Type:       core.FeedbackImprovement,
			Category:   core.CategoryPerformance,
			Point:      "Users are loaded one query per row",
			Suggestion: "Batch the lookups into a single query",
		},
	}
}

func TestComposeExtractRoundTrip(t *testing.T) {
	feedback := sampleFeedback()
	body := ComposeComment(&core.ReviewResult{Feedback: feedback}, nil)

	got := ExtractFeedback(body)
	require.Len(t, got, len(feedback))
	assert.Equal(t, feedback, got)
}

func TestExtractFallsBackToMarkdown(t *testing.T) {
	feedback := sampleFeedback()
	body := ComposeComment(&core.ReviewResult{Feedback: feedback}, nil)

	// simulate a legacy comment whose hidden block was stripped
	idx := strings.Index(body, feedbackBlockOpen)
	require.NotEqual(t, -1, idx)
	legacy := body[:idx]

	got := ExtractFeedback(legacy)
	require.Len(t, got, len(feedback))

	// markdown is lossy only in ordering guarantees, not content
	for i, item := range feedback {
		assert.Equal(t, item.Type, got[i].Type)
		assert.Equal(t, item.Category, got[i].Category)
		assert.Equal(t, item.Point, got[i].Point)
		assert.Equal(t, item.Suggestion, got[i].Suggestion)
		assert.Equal(t, item.ReferenceURL, got[i].ReferenceURL)
	}
}

func TestExtractRecoversSnippetFromMarkdown(t *testing.T) {
	feedback := sampleFeedback()
	body := ComposeComment(&core.ReviewResult{Feedback: feedback}, nil)
	legacy := body[:strings.Index(body, feedbackBlockOpen)]

	got := ExtractFeedback(legacy)
	var snippet string
	for _, item := range got {
		if item.Category == core.CategorySecurity {
			snippet = item.CodeSnippet
		}
	}
	assert.Equal(t, "hash, err := bcrypt.GenerateFromPassword(pw, bcrypt.DefaultCost)", snippet)
}

func TestExtractUnparsableCommentYieldsEmptyList(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "empty body", body: ""},
		{name: "plain prose", body: "LGTM, nice work!"},
		{name: "corrupt json block", body: feedbackBlockOpen + "\n{not json]\n" + feedbackBlockClose},
		{name: "unterminated json block", body: feedbackBlockOpen + "\n{\"version\":1"},
		{name: "foreign markdown headings", body: "## Review\n\n### Notes\n\n- looks fine"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, ExtractFeedback(tt.body))
		})
	}
}

func TestExtractNormalizesUnknownCategories(t *testing.T) {
	body := feedbackBlockOpen + `
{"version":1,"feedback":[{"type":"improvement","category":"totally_new_category","point":"something"}]}
` + feedbackBlockClose

	got := ExtractFeedback(body)
	require.Len(t, got, 1)
	assert.Equal(t, core.CategoryOther, got[0].Category)
}

func TestComposeCommentLayout(t *testing.T) {
	feedback := sampleFeedback()
	evals := []core.EvaluationResult{
		{
			Previous: feedback[2],
			Status:   core.StatusImproved,
			Evidence: "password hashing implemented via bcrypt",
		},
	}

	body := ComposeComment(&core.ReviewResult{Feedback: feedback}, evals)

	header := strings.Index(body, commentHeader)
	progress := strings.Index(body, progressHeading)
	strengths := strings.Index(body, strengthsHeading)
	improvements := strings.Index(body, improvementsHeading)
	block := strings.Index(body, feedbackBlockOpen)

	require.NotEqual(t, -1, header)
	require.NotEqual(t, -1, progress)
	require.NotEqual(t, -1, strengths)
	require.NotEqual(t, -1, improvements)
	require.NotEqual(t, -1, block)

	assert.Less(t, header, progress, "header must come first")
	assert.Less(t, progress, strengths, "progress precedes strengths on re-reviews")
	assert.Less(t, strengths, improvements, "strengths precede improvements")
	assert.Less(t, improvements, block, "hidden block comes last")

	assert.Contains(t, body, "✅ **Improved** (Security): Passwords are stored in plaintext")
	assert.Contains(t, body, "password hashing implemented via bcrypt")
}

func TestComposeCommentOmitsEmptySections(t *testing.T) {
	onlyStrengths := []core.ExtractedFeedback{
		{Type: core.FeedbackStrength, Category: core.CategoryCodeQuality, Point: "Tidy code"},
	}
	body := ComposeComment(&core.ReviewResult{Feedback: onlyStrengths}, nil)

	assert.Contains(t, body, strengthsHeading)
	assert.NotContains(t, body, improvementsHeading)
	assert.NotContains(t, body, progressHeading)
}
