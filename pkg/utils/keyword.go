// Package utils provides common utility functions for TrendLens.
package utils

import (
	"strings"
	"unicode"
)

// NormalizeKeyword canonicalizes a search keyword: lowercase, trimmed,
// interior whitespace collapsed to single spaces, surrounding quotes and
// list punctuation stripped. Search volume providers treat "Running Shoes"
// and "running  shoes" as the same term, so we do too.
func NormalizeKeyword(kw string) string {
	kw = strings.TrimSpace(kw)
	// Quotes and list punctuation can nest ('keyword',) so strip until
	// nothing changes.
	for {
		trimmed := strings.Trim(kw, `"'`+"`")
		trimmed = strings.TrimRight(trimmed, ".,;")
		trimmed = strings.TrimSpace(trimmed)
		if trimmed == kw {
			break
		}
		kw = trimmed
	}
	kw = strings.ToLower(kw)

	var b strings.Builder
	b.Grow(len(kw))
	space := false
	for _, r := range kw {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

// DedupeKeywords normalizes and deduplicates a list of keywords,
// preserving first-seen order and dropping empties.
func DedupeKeywords(kws []string) []string {
	seen := make(map[string]struct{}, len(kws))
	out := make([]string, 0, len(kws))
	for _, kw := range kws {
		n := NormalizeKeyword(kw)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
