package review

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/codecoach/codecoach/internal/core"
)

// ExtractFeedback recovers the structured feedback items encoded in a comment
// previously posted by this system.
//
// The embedded JSON block is the preferred path because it is lossless. The
// markdown-heading parser is the fallback for comments that predate the block
// or arrived with it stripped. A comment yielding neither returns an empty
// list, never an error: a re-review with no recovered context still proceeds
// as a fresh review.
func ExtractFeedback(body string) []core.ExtractedFeedback {
	if items, ok := extractFromJSONBlock(body); ok {
		return items
	}
	return extractFromMarkdown(body)
}

func extractFromJSONBlock(body string) ([]core.ExtractedFeedback, bool) {
	start := strings.Index(body, feedbackBlockOpen)
	if start == -1 {
		return nil, false
	}
	rest := body[start+len(feedbackBlockOpen):]
	end := strings.Index(rest, feedbackBlockClose)
	if end == -1 {
		return nil, false
	}

	var envelope feedbackEnvelope
	if err := json.Unmarshal([]byte(strings.TrimSpace(rest[:end])), &envelope); err != nil {
		return nil, false
	}
	if len(envelope.Feedback) == 0 {
		return nil, false
	}

	for i := range envelope.Feedback {
		envelope.Feedback[i].Category = core.ParseCategory(string(envelope.Feedback[i].Category))
	}
	return envelope.Feedback, true
}

var (
	categoryHeadingRe = regexp.MustCompile(`(?m)^####\s+(.+?)\s*$`)
	// strengths are bold-numbered items: **1. point**
	strengthItemRe = regexp.MustCompile(`(?m)^\*\*\d+\.\s*(.+?)\*\*\s*$`)
	// improvements are heading-numbered items: ##### 1. point
	improvementItemRe = regexp.MustCompile(`(?m)^#####\s+\d+\.\s*(.+?)\s*$`)
	fencedBlockRe     = regexp.MustCompile("(?s)```[a-zA-Z0-9]*\n(.*?)\n?```")
)

func extractFromMarkdown(body string) []core.ExtractedFeedback {
	var items []core.ExtractedFeedback

	if section := sectionBetween(body, strengthsHeading); section != "" {
		for _, cat := range splitCategories(section) {
			for _, m := range strengthItemRe.FindAllStringSubmatch(cat.text, -1) {
				items = append(items, core.ExtractedFeedback{
					Type:     core.FeedbackStrength,
					Category: cat.category,
					Point:    strings.TrimSpace(m[1]),
				})
			}
		}
	}

	if section := sectionBetween(body, improvementsHeading); section != "" {
		for _, cat := range splitCategories(section) {
			items = append(items, parseImprovementItems(cat)...)
		}
	}

	return items
}

// sectionBetween returns the text between the given level-3 heading and the
// next level-3 heading (or the hidden feedback block, or end of body).
func sectionBetween(body, heading string) string {
	start := strings.Index(body, heading)
	if start == -1 {
		return ""
	}
	section := body[start+len(heading):]

	if idx := strings.Index(section, "\n### "); idx != -1 {
		section = section[:idx]
	}
	if idx := strings.Index(section, feedbackBlockOpen); idx != -1 {
		section = section[:idx]
	}
	return section
}

type categorySection struct {
	category core.Category
	text     string
}

// splitCategories splits a section into its category sub-sections. Display
// names outside the closed lookup table map to CategoryOther.
func splitCategories(section string) []categorySection {
	headings := categoryHeadingRe.FindAllStringSubmatchIndex(section, -1)
	if len(headings) == 0 {
		if strings.TrimSpace(section) == "" {
			return nil
		}
		return []categorySection{{category: core.CategoryOther, text: section}}
	}

	var out []categorySection
	for i, h := range headings {
		name := section[h[2]:h[3]]
		end := len(section)
		if i+1 < len(headings) {
			end = headings[i+1][0]
		}
		out = append(out, categorySection{
			category: core.CategoryFromDisplay(name),
			text:     section[h[1]:end],
		})
	}
	return out
}

func parseImprovementItems(cat categorySection) []core.ExtractedFeedback {
	headings := improvementItemRe.FindAllStringSubmatchIndex(cat.text, -1)
	var items []core.ExtractedFeedback

	for i, h := range headings {
		point := strings.TrimSpace(cat.text[h[2]:h[3]])
		end := len(cat.text)
		if i+1 < len(headings) {
			end = headings[i+1][0]
		}
		chunk := cat.text[h[1]:end]

		item := core.ExtractedFeedback{
			Type:     core.FeedbackImprovement,
			Category: cat.category,
			Point:    point,
		}

		for _, line := range strings.Split(chunk, "\n") {
			trimmed := strings.TrimSpace(line)
			switch {
			case strings.HasPrefix(trimmed, suggestionLabel):
				item.Suggestion = strings.TrimSpace(strings.TrimPrefix(trimmed, suggestionLabel))
			case strings.HasPrefix(trimmed, referenceLabel):
				item.ReferenceURL = strings.TrimSpace(strings.TrimPrefix(trimmed, referenceLabel))
			}
		}

		if m := fencedBlockRe.FindStringSubmatch(chunk); m != nil {
			item.CodeSnippet = m[1]
		}

		items = append(items, item)
	}
	return items
}
