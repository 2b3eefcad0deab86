package review

import (
	"strings"
	"unicode"

	"github.com/codecoach/codecoach/internal/core"
)

// ProgressEvaluator classifies whether a previously flagged improvement was
// addressed by the current revision. The classification is a text-similarity
// heuristic over category and keyword overlap, not formal verification;
// callers treat it as advisory framing for the next comment.
type ProgressEvaluator struct{}

// NewProgressEvaluator creates a progress evaluator.
func NewProgressEvaluator() *ProgressEvaluator {
	return &ProgressEvaluator{}
}

// EvaluateAll evaluates every improvement item of the previous review against
// the current cycle's raw strength and issue texts. Strength items are passed
// through untouched by design: only improvements carry progress state.
func (e *ProgressEvaluator) EvaluateAll(previous []core.ExtractedFeedback, strengths, issues []string) []core.EvaluationResult {
	var results []core.EvaluationResult
	for _, item := range previous {
		if item.Type != core.FeedbackImprovement {
			continue
		}
		results = append(results, e.Evaluate(item, strengths, issues))
	}
	return results
}

// Evaluate classifies one previous improvement item.
//
// A current strength sharing the topic of the previous point means the issue
// was addressed: improved, with the strength as evidence. Failing that, a
// current issue still circling the same topic or category means partial
// progress. Otherwise the item is not improved and the original suggestion
// is carried forward as evidence for the next comment.
func (e *ProgressEvaluator) Evaluate(prev core.ExtractedFeedback, strengths, issues []string) core.EvaluationResult {
	keywords := significantKeywords(prev.Point)

	for _, strength := range strengths {
		if overlaps(keywords, significantKeywords(strength)) {
			return core.EvaluationResult{
				Previous: prev,
				Status:   core.StatusImproved,
				Evidence: strings.TrimSpace(strength),
			}
		}
	}

	for _, issue := range issues {
		if overlaps(keywords, significantKeywords(issue)) || matchesCategoryLexicon(prev.Category, issue) {
			return core.EvaluationResult{
				Previous: prev,
				Status:   core.StatusPartiallyImproved,
				Evidence: "still open: " + strings.TrimSpace(issue),
			}
		}
	}

	evidence := prev.Suggestion
	if evidence == "" {
		evidence = prev.Point
	}
	return core.EvaluationResult{
		Previous: prev,
		Status:   core.StatusNotImproved,
		Evidence: evidence,
	}
}

// categoryLexicon maps each category to topic stems used to decide whether a
// free-text observation belongs to it. Matching is substring-based so stems
// like "optimiz" cover both spellings and inflections.
var categoryLexicon = map[core.Category][]string{
	core.CategorySecurity: {
		"password", "auth", "token", "secret", "credential", "encrypt",
		"hash", "salt", "injection", "xss", "csrf", "sanitiz", "vulnerab",
	},
	core.CategoryPerformance: {
		"slow", "latency", "cache", "memory", "alloc", "n+1", "optimiz",
		"throughput", "benchmark",
	},
	core.CategoryCodeQuality: {
		"duplicat", "complexity", "lint", "dead code", "smell", "magic number",
	},
	core.CategoryReadability: {
		"readab", "naming", "format", "indent", "comment",
	},
	core.CategoryFunctionality: {
		"bug", "incorrect", "broken", "edge case", "off-by-one", "nil",
	},
	core.CategoryMaintainability: {
		"coupling", "refactor", "test coverage", "modul", "hardcod",
	},
	core.CategoryArchitecture: {
		"layer", "dependency", "boundary", "interface", "circular",
	},
	core.CategoryBestPractice: {
		"convention", "idiomatic", "deprecat", "standard library",
	},
}

func matchesCategoryLexicon(category core.Category, text string) bool {
	lower := strings.ToLower(text)
	for _, stem := range categoryLexicon[category] {
		if strings.Contains(lower, stem) {
			return true
		}
	}
	return false
}

// stopwords are tokens too generic to signal topic identity between a
// previous point and a current observation.
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "this": {}, "that": {},
	"are": {}, "was": {}, "were": {}, "been": {}, "being": {}, "have": {},
	"has": {}, "had": {}, "should": {}, "could": {}, "would": {}, "must": {},
	"need": {}, "needs": {}, "improve": {}, "improved": {}, "improvement": {},
	"implement": {}, "implemented": {}, "implementation": {}, "using": {},
	"used": {}, "use": {}, "via": {}, "code": {}, "still": {}, "better": {},
	"more": {}, "some": {}, "when": {}, "where": {}, "not": {}, "into": {},
	"from": {}, "your": {}, "their": {}, "there": {}, "here": {}, "missing": {},
}

// significantKeywords tokenizes text into normalized topic keywords: lowered,
// punctuation-split, stopwords and short tokens dropped, trailing plural "s"
// trimmed so "passwords" and "password hashing" share a token.
func significantKeywords(text string) map[string]struct{} {
	out := make(map[string]struct{})
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, tok := range tokens {
		if len(tok) < 4 {
			continue
		}
		if _, skip := stopwords[tok]; skip {
			continue
		}
		if len(tok) > 4 && strings.HasSuffix(tok, "s") && !strings.HasSuffix(tok, "ss") {
			tok = tok[:len(tok)-1]
		}
		out[tok] = struct{}{}
	}
	return out
}

func overlaps(a, b map[string]struct{}) bool {
	for tok := range a {
		if _, ok := b[tok]; ok {
			return true
		}
	}
	return false
}
