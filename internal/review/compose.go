package review

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/codecoach/codecoach/internal/core"
)

// Fixed heading markers shared by the composer and the extraction engine.
// Changing any of these breaks extraction of previously posted comments.
const (
	commentHeader       = "## 🤖 CodeCoach Review"
	progressHeading     = "### 📈 Progress Since Last Review"
	strengthsHeading    = "### ✅ Strengths"
	improvementsHeading = "### 🛠 Suggested Improvements"

	suggestionLabel = "**Suggestion:**"
	referenceLabel  = "**Reference:**"

	feedbackBlockOpen  = "<!-- codecoach:feedback"
	feedbackBlockClose = "-->"
)

// feedbackEnvelope is the machine-readable copy of the feedback embedded in
// every posted comment. It is the lossless extraction path; the markdown
// headings above are the fallback for comments that predate it.
type feedbackEnvelope struct {
	Version  int                      `json:"version"`
	Feedback []core.ExtractedFeedback `json:"feedback"`
}

// ComposeComment renders a review result into the markdown comment posted on
// the pull request. On re-reviews the progress section comes first, then
// strengths and improvements grouped by category. A hidden JSON block with
// the structured items is appended for lossless later extraction.
func ComposeComment(result *core.ReviewResult, evals []core.EvaluationResult) string {
	var sb strings.Builder

	sb.WriteString(commentHeader)
	sb.WriteString("\n\n")

	if len(evals) > 0 {
		writeProgressSection(&sb, evals)
	}

	strengths := filterByType(result.Feedback, core.FeedbackStrength)
	improvements := filterByType(result.Feedback, core.FeedbackImprovement)

	if len(strengths) > 0 {
		sb.WriteString(strengthsHeading)
		sb.WriteString("\n\n")
		writeStrengths(&sb, strengths)
	}

	if len(improvements) > 0 {
		sb.WriteString(improvementsHeading)
		sb.WriteString("\n\n")
		writeImprovements(&sb, improvements)
	}

	writeFeedbackBlock(&sb, result.Feedback)

	return strings.TrimRight(sb.String(), "\n") + "\n"
}

func writeProgressSection(sb *strings.Builder, evals []core.EvaluationResult) {
	sb.WriteString(progressHeading)
	sb.WriteString("\n\n")
	for _, ev := range evals {
		var marker, label string
		switch ev.Status {
		case core.StatusImproved:
			marker, label = "✅", "Improved"
		case core.StatusPartiallyImproved:
			marker, label = "🔄", "Partially improved"
		default:
			marker, label = "❌", "Not improved"
		}
		fmt.Fprintf(sb, "- %s **%s** (%s): %s\n", marker, label, ev.Previous.Category.Display(), ev.Previous.Point)
		if ev.Evidence != "" {
			fmt.Fprintf(sb, "  - %s\n", ev.Evidence)
		}
	}
	sb.WriteString("\n")
}

// writeStrengths renders strengths as bold-numbered items under category
// sub-headings.
func writeStrengths(sb *strings.Builder, items []core.ExtractedFeedback) {
	for _, group := range groupByCategory(items) {
		fmt.Fprintf(sb, "#### %s\n\n", group.category.Display())
		for i, item := range group.items {
			fmt.Fprintf(sb, "**%d. %s**\n\n", i+1, item.Point)
		}
	}
}

// writeImprovements renders improvements as heading-numbered items with the
// suggestion line, optional fenced snippet, and optional reference link.
func writeImprovements(sb *strings.Builder, items []core.ExtractedFeedback) {
	for _, group := range groupByCategory(items) {
		fmt.Fprintf(sb, "#### %s\n\n", group.category.Display())
		for i, item := range group.items {
			fmt.Fprintf(sb, "##### %d. %s\n\n", i+1, item.Point)
			if item.Suggestion != "" {
				fmt.Fprintf(sb, "%s %s\n\n", suggestionLabel, item.Suggestion)
			}
			if item.CodeSnippet != "" {
				fmt.Fprintf(sb, "```\n%s\n```\n\n", strings.TrimRight(item.CodeSnippet, "\n"))
			}
			if item.ReferenceURL != "" {
				fmt.Fprintf(sb, "%s %s\n\n", referenceLabel, item.ReferenceURL)
			}
		}
	}
}

func writeFeedbackBlock(sb *strings.Builder, feedback []core.ExtractedFeedback) {
	payload, err := json.Marshal(feedbackEnvelope{Version: 1, Feedback: feedback})
	if err != nil {
		// marshaling plain structs cannot realistically fail; skip the block
		return
	}
	fmt.Fprintf(sb, "%s\n%s\n%s\n", feedbackBlockOpen, payload, feedbackBlockClose)
}

type categoryGroup struct {
	category core.Category
	items    []core.ExtractedFeedback
}

// groupByCategory buckets items by category, preserving first-seen category
// order and item order within each bucket.
func groupByCategory(items []core.ExtractedFeedback) []categoryGroup {
	var groups []categoryGroup
	index := make(map[core.Category]int)
	for _, item := range items {
		i, ok := index[item.Category]
		if !ok {
			i = len(groups)
			index[item.Category] = i
			groups = append(groups, categoryGroup{category: item.Category})
		}
		groups[i].items = append(groups[i].items, item)
	}
	return groups
}

func filterByType(items []core.ExtractedFeedback, t core.FeedbackType) []core.ExtractedFeedback {
	var out []core.ExtractedFeedback
	for _, item := range items {
		if item.Type == t {
			out = append(out, item)
		}
	}
	return out
}
