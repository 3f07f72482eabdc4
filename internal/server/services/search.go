package services

import (
	"strings"

	"github.com/dmitrijs2005/hasker/internal/server/models"
)

const (
	// SearchMaxLength is how many characters of the query are considered.
	SearchMaxLength = 255
	tagSearchPrefix = "tag:"
)

// ParseSearch interprets the search box input. "tag:<name>" searches tag
// names for <name> exactly as typed, spaces included; anything else is a text search for the whole string or any of its
// words. Empty input matches nothing.
func ParseSearch(raw string) models.SearchQuery {
	if r := []rune(raw); len(r) > SearchMaxLength {
		raw = string(r[:SearchMaxLength])
	}

	q := models.SearchQuery{Kind: models.SearchNone, Raw: raw}
	if raw == "" {
		return q
	}

	if rest, ok := strings.CutPrefix(raw, tagSearchPrefix); ok {
		if rest != "" {
			q.Kind = models.SearchTag
			q.Tag = rest
		}
		return q
	}

	q.Kind = models.SearchText
	q.Terms = []string{raw}
	seen := map[string]struct{}{raw: {}}
	for _, w := range strings.Fields(raw) {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		q.Terms = append(q.Terms, w)
	}
	return q
}
