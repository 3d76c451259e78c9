package sanitizer

import (
	"regexp"
	"strings"
	"unicode"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

var (
	reNotSlug      = regexp.MustCompile(`[^0-9\p{L}]+`)
	reMultiHyphens = regexp.MustCompile(`-+`)
)

func trimAndLower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func dropControl(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func collapseHyphens(s string) string {
	s = reMultiHyphens.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// SanitizeTitle strips control characters and collapses whitespace runs.
func SanitizeTitle(input string) string {
	p := Pipeline{
		dropControl,
		TrimAndNormalize,
	}
	return p.Apply(input)
}

// SanitizeSlug lowercases and joins letter/digit runs with single hyphens:
// " Orion  Room#2 " becomes "orion-room-2".
func SanitizeSlug(input string) string {
	p := Pipeline{
		trimAndLower,
		func(s string) string { return reNotSlug.ReplaceAllString(s, "-") },
		collapseHyphens,
	}
	return p.Apply(input)
}

// SanitizeSlice applies strategy to each value and drops empties and
// duplicates, keeping first occurrences in order.
func SanitizeSlice(values []string, strategy Strategy) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))

	for _, v := range values {
		s := strategy(v)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	return out
}
