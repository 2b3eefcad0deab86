package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codecoach/codecoach/internal/core"
)

const validEnvelope = `{
  "feedback": [
    {"type": "strength", "category": "code_quality", "point": "clean layering"},
    {"type": "improvement", "category": "security", "point": "plaintext passwords", "suggestion": "use bcrypt"}
  ],
  "strengths": ["clean layering"],
  "issues": ["plaintext passwords"]
}`

func TestParseResponse(t *testing.T) {
	result, err := parseResponse(validEnvelope)
	require.NoError(t, err)

	require.Len(t, result.Feedback, 2)
	assert.Equal(t, core.FeedbackStrength, result.Feedback[0].Type)
	assert.Equal(t, core.CategoryCodeQuality, result.Feedback[0].Category)
	assert.Equal(t, core.FeedbackImprovement, result.Feedback[1].Type)
	assert.Equal(t, []string{"clean layering"}, result.Strengths)
	assert.Equal(t, []string{"plaintext passwords"}, result.Issues)
}

func TestParseResponseStripsCodeFences(t *testing.T) {
	fenced := "```json\n" + validEnvelope + "\n```"
	result, err := parseResponse(fenced)
	require.NoError(t, err)
	assert.Len(t, result.Feedback, 2)

	bare := "```\n" + validEnvelope + "\n```"
	result, err = parseResponse(bare)
	require.NoError(t, err)
	assert.Len(t, result.Feedback, 2)
}

func TestParseResponseNormalizesLooseValues(t *testing.T) {
	loose := `{"feedback":[{"type":"issue","category":"Security Stuff","point":"x"}]}`
	result, err := parseResponse(loose)
	require.NoError(t, err)

	require.Len(t, result.Feedback, 1)
	assert.Equal(t, core.FeedbackImprovement, result.Feedback[0].Type)
	assert.Equal(t, core.CategoryOther, result.Feedback[0].Category)
}

func TestParseResponseErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "not json", raw: "I think this PR looks great!"},
		{name: "empty feedback", raw: `{"feedback": []}`},
		{name: "empty string", raw: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseResponse(tt.raw)
			assert.Error(t, err)
		})
	}
}

func TestBuildPromptSections(t *testing.T) {
	req := &core.ReviewRequest{
		RepoOwner:          "octo",
		RepoName:           "demo",
		PRNumber:           7,
		PRTitle:            "Add login",
		PRBody:             "implements the login flow",
		Diff:               "diff --git a/main.go b/main.go",
		CustomInstructions: []string{"focus on error handling"},
		ReReview:           true,
		PriorFeedback: []core.ExtractedFeedback{
			{Type: core.FeedbackImprovement, Category: core.CategorySecurity, Point: "plaintext passwords"},
		},
	}

	prompt := buildPrompt(req)

	assert.Contains(t, prompt, "octo/demo")
	assert.Contains(t, prompt, "Pull request #7: Add login")
	assert.Contains(t, prompt, "implements the login flow")
	assert.Contains(t, prompt, "focus on error handling")
	assert.Contains(t, prompt, "Previous review")
	assert.Contains(t, prompt, "plaintext passwords")
	assert.Contains(t, prompt, "```diff")
}

func TestBuildPromptFreshReviewOmitsPriorContext(t *testing.T) {
	req := &core.ReviewRequest{
		RepoOwner: "octo", RepoName: "demo", PRNumber: 7,
		PRTitle: "Add login", Diff: "diff",
	}
	prompt := buildPrompt(req)
	assert.NotContains(t, prompt, "Previous review")
}
