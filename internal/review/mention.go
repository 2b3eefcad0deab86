// Package review implements the pull request review orchestrator: trigger
// detection, the idempotency gate shared by webhooks and the reconciliation
// poll, comment composition and extraction, and progress evaluation.
package review

import "strings"

// MentionDetector is a pure predicate over text blobs: does the text contain
// the configured review-trigger token. It holds no state beyond the token.
type MentionDetector struct {
	token string
}

// NewMentionDetector creates a detector for the given trigger token,
// e.g. "@codecoach".
func NewMentionDetector(token string) *MentionDetector {
	return &MentionDetector{token: strings.ToLower(strings.TrimSpace(token))}
}

// Token returns the configured trigger token.
func (d *MentionDetector) Token() string { return d.token }

// Matches reports whether text contains the trigger token. Matching is
// case-insensitive and bounded so "@codecoach" does not fire inside
// "user@codecoach.example.com" or "@codecoacher". Absent or empty text is
// never a mention.
func (d *MentionDetector) Matches(text string) bool {
	if d.token == "" || text == "" {
		return false
	}

	lower := strings.ToLower(text)
	idx := 0
	for {
		pos := strings.Index(lower[idx:], d.token)
		if pos == -1 {
			return false
		}
		pos += idx

		if boundedAt(lower, pos, len(d.token)) {
			return true
		}
		idx = pos + 1
	}
}

// boundedAt reports whether the match at pos with the given length sits on
// word boundaries and is not the local part or host of an email-like string.
func boundedAt(text string, pos, length int) bool {
	if pos > 0 && isWordByte(text[pos-1]) {
		return false
	}

	end := pos + length
	if end < len(text) {
		next := text[end]
		if isWordByte(next) {
			return false
		}
		// "@token.tld" looks like a mail or host reference, not a mention
		if next == '.' && end+1 < len(text) && isLetterByte(text[end+1]) {
			return false
		}
	}
	return true
}

func isWordByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_'
}

func isLetterByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
