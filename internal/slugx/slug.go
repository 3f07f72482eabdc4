// Package slugx turns question titles into URL slugs and makes them unique.
package slugx

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Fallback is used when a title has no characters that survive slugification.
const Fallback = "question"

var (
	disallowed = regexp.MustCompile(`[^\w\s-]`)
	separators = regexp.MustCompile(`[-\s]+`)
)

// Slugify converts s to a lower-case ASCII slug of at most maxLen bytes.
//
//	Slugify("To be or not to be?", 50) == "to-be-or-not-to-be"
func Slugify(s string, maxLen int) string {
	var b strings.Builder
	for _, r := range norm.NFKD.String(s) {
		if r < unicode.MaxASCII {
			b.WriteRune(r)
		}
	}

	v := disallowed.ReplaceAllString(b.String(), "")
	v = strings.ToLower(strings.TrimSpace(v))
	v = separators.ReplaceAllString(v, "-")

	if maxLen > 0 && len(v) > maxLen {
		v = v[:maxLen]
	}
	if v == "" {
		v = Fallback
	}
	return v
}

// ExistsFunc reports whether a slug is already taken.
type ExistsFunc func(ctx context.Context, slug string) (bool, error)

// Unique returns base when it is free, otherwise the first free candidate of
// base-1, base-2, ... with base cut so the result fits in maxLen.
func Unique(ctx context.Context, base string, maxLen int, exists ExistsFunc) (string, error) {
	slug := base
	for n := 1; ; n++ {
		taken, err := exists(ctx, slug)
		if err != nil {
			return "", err
		}
		if !taken {
			return slug, nil
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}

		suffix := strconv.Itoa(n)
		cut := maxLen - len(suffix) - 1
		if cut < 0 {
			cut = 0
		}
		if cut > len(base) {
			cut = len(base)
		}
		slug = base[:cut] + "-" + suffix
	}
}
