package core

// FeedbackType distinguishes the two kinds of feedback a review produces.
type FeedbackType string

const (
	// FeedbackStrength is something the code does well.
	FeedbackStrength FeedbackType = "strength"
	// FeedbackImprovement is an issue with a concrete suggestion attached.
	FeedbackImprovement FeedbackType = "improvement"
)

// Category is the closed set of feedback categories.
type Category string

const (
	CategoryCodeQuality     Category = "code_quality"
	CategorySecurity        Category = "security"
	CategoryPerformance     Category = "performance"
	CategoryBestPractice    Category = "best_practice"
	CategoryReadability     Category = "readability"
	CategoryFunctionality   Category = "functionality"
	CategoryMaintainability Category = "maintainability"
	CategoryArchitecture    Category = "architecture"
	CategoryOther           Category = "other"
)

// categoryDisplay maps machine-readable category keys to the display names
// used in posted review comments. The extraction engine relies on the inverse
// of this table to recover categories from markdown headings.
var categoryDisplay = map[Category]string{
	CategoryCodeQuality:     "Code Quality",
	CategorySecurity:        "Security",
	CategoryPerformance:     "Performance",
	CategoryBestPractice:    "Best Practice",
	CategoryReadability:     "Readability",
	CategoryFunctionality:   "Functionality",
	CategoryMaintainability: "Maintainability",
	CategoryArchitecture:    "Architecture",
	CategoryOther:           "Other",
}

// Display returns the human-readable name used in comment headings.
func (c Category) Display() string {
	if name, ok := categoryDisplay[c]; ok {
		return name
	}
	return categoryDisplay[CategoryOther]
}

// IsValid reports whether c is one of the known category keys.
func (c Category) IsValid() bool {
	_, ok := categoryDisplay[c]
	return ok
}

// CategoryFromDisplay maps a display name back to its category key.
// Unrecognized names map to CategoryOther.
func CategoryFromDisplay(name string) Category {
	for key, display := range categoryDisplay {
		if display == name {
			return key
		}
	}
	return CategoryOther
}

// ParseCategory normalizes a raw category string (key or display name) to a
// category key, falling back to CategoryOther.
func ParseCategory(raw string) Category {
	if c := Category(raw); c.IsValid() {
		return c
	}
	return CategoryFromDisplay(raw)
}

// ExtractedFeedback is one structured feedback item. Items are ephemeral:
// they are produced by the AI reviewer, rendered into a comment, and later
// reconstructed from the feedback history table or by parsing the comment.
type ExtractedFeedback struct {
	Type         FeedbackType `json:"type"`
	Category     Category     `json:"category"`
	Point        string       `json:"point"`
	Suggestion   string       `json:"suggestion,omitempty"`
	CodeSnippet  string       `json:"code_snippet,omitempty"`
	ReferenceURL string       `json:"reference_url,omitempty"`
}

// EvaluationStatus classifies whether a previously flagged improvement was
// addressed by the current revision.
type EvaluationStatus string

const (
	StatusImproved          EvaluationStatus = "improved"
	StatusPartiallyImproved EvaluationStatus = "partially_improved"
	StatusNotImproved       EvaluationStatus = "not_improved"
)

// EvaluationResult pairs a previous improvement item with its progress
// classification. The classification is heuristic and advisory; it frames
// the next comment but is never treated as ground truth.
type EvaluationResult struct {
	Previous ExtractedFeedback
	Status   EvaluationStatus
	Evidence string
}
