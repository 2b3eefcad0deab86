package github

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildSections(n int) string {
	var b strings.Builder
	for i := range n {
		fmt.Fprintf(&b, "### Section %d\n\nSome feedback text for section %d.\n\n", i, i)
	}
	return strings.TrimRight(b.String(), "\n")
}

func TestSplitCommentShortBodyUnchanged(t *testing.T) {
	body := "## Review\n\nAll good."
	parts := SplitComment(body, 1024)

	require.Len(t, parts, 1)
	assert.Equal(t, body, parts[0])
}

func TestSplitCommentRespectsLimit(t *testing.T) {
	body := buildSections(60)
	limit := 512

	parts := SplitComment(body, limit)
	require.Greater(t, len(parts), 1)

	for i, part := range parts {
		assert.LessOrEqual(t, len(part), limit, "part %d exceeds limit", i)
	}
}

func TestSplitCommentBanners(t *testing.T) {
	parts := SplitComment(buildSections(60), 512)
	require.Greater(t, len(parts), 1)

	assert.False(t, strings.HasPrefix(parts[0], "> _review comment part"),
		"first part must not carry a banner")
	for i := 1; i < len(parts); i++ {
		assert.True(t, strings.HasPrefix(parts[i], partBanner(i+1, len(parts))),
			"part %d is missing its banner", i)
	}
}

func TestSplitCommentRoundTrip(t *testing.T) {
	body := buildSections(60)
	parts := SplitComment(body, 512)
	require.Greater(t, len(parts), 1)

	var joined []string
	for i, part := range parts {
		if i > 0 {
			part = strings.TrimPrefix(part, partBanner(i+1, len(parts)))
		}
		joined = append(joined, part)
	}

	// splitting trims boundary newlines, so compare content lines
	got := strings.Join(joined, "\n")
	for _, line := range strings.Split(body, "\n") {
		if line == "" {
			continue
		}
		assert.Contains(t, got, line)
	}
	assert.Equal(t,
		strings.ReplaceAll(strings.Join(strings.Fields(body), " "), " ", ""),
		strings.ReplaceAll(strings.Join(strings.Fields(got), " "), " ", ""),
		"no content may be lost or duplicated")
}

func TestSplitCommentPrefersParagraphBoundary(t *testing.T) {
	body := strings.Repeat("alpha beta gamma.\n\n", 100)
	parts := SplitComment(strings.TrimRight(body, "\n"), 512)
	require.Greater(t, len(parts), 1)

	for i, part := range parts {
		content := part
		if i > 0 {
			content = strings.TrimPrefix(content, partBanner(i+1, len(parts)))
		}
		assert.True(t, strings.HasSuffix(content, "alpha beta gamma."),
			"part %d should end at a paragraph boundary: %q", i, content[len(content)-20:])
	}
}

func TestSplitCommentHardCutForGiantParagraph(t *testing.T) {
	body := strings.Repeat("x", 2000)
	parts := SplitComment(body, 512)
	require.Greater(t, len(parts), 1)

	var total int
	for i, part := range parts {
		assert.LessOrEqual(t, len(part), 512)
		content := part
		if i > 0 {
			content = strings.TrimPrefix(content, partBanner(i+1, len(parts)))
		}
		total += len(content)
	}
	assert.Equal(t, len(body), total)
}
