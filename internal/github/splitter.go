package github

import (
	"fmt"
	"strings"
)

// bannerReserve is the headroom kept free in each part for the continuation
// banner that gets prepended after splitting.
const bannerReserve = 80

// partBanner renders the continuation banner for part k of n. Part 1 carries
// no banner.
func partBanner(k, n int) string {
	return fmt.Sprintf("> _review comment part %d/%d_\n\n", k, n)
}

// SplitComment splits body into parts that each fit within limit once the
// continuation banner is added. Cuts prefer the last paragraph or heading
// boundary before the limit so markdown structure survives; a hard cut is
// the last resort for a single paragraph longer than the limit.
func SplitComment(body string, limit int) []string {
	if limit <= bannerReserve {
		limit = bannerReserve + 1
	}
	if len(body) <= limit {
		return []string{body}
	}

	budget := limit - bannerReserve

	var chunks []string
	rest := body
	for len(rest) > budget {
		cut := findCut(rest, budget)
		chunks = append(chunks, strings.TrimRight(rest[:cut], "\n"))
		rest = strings.TrimLeft(rest[cut:], "\n")
	}
	if rest != "" {
		chunks = append(chunks, rest)
	}

	parts := make([]string, len(chunks))
	for i, chunk := range chunks {
		if i == 0 {
			parts[i] = chunk
			continue
		}
		parts[i] = partBanner(i+1, len(chunks)) + chunk
	}
	return parts
}

// findCut returns the index to cut rest at, preferring in order: the last
// blank line, the last heading start, the last line break inside the budget.
func findCut(rest string, budget int) int {
	window := rest[:budget]

	if idx := strings.LastIndex(window, "\n\n"); idx > 0 {
		return idx
	}
	if idx := strings.LastIndex(window, "\n#"); idx > 0 {
		return idx
	}
	if idx := strings.LastIndex(window, "\n"); idx > 0 {
		return idx
	}
	return budget
}
