package extract

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold returns s with diacritics removed: the string is decomposed (NFKD) and
// combining marks are dropped, so "José" becomes "Jose". Characters without an
// ASCII base form pass through unchanged.
func Fold(s string) string {
	if s == "" {
		return ""
	}
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}

// Normalize lowercases s, removes diacritics, and strips every character
// outside [a-z0-9] and whitespace. The output is suitable for tokenizing
// into name parts.
func Normalize(s string) string {
	folded := strings.ToLower(Fold(s))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= '0' && r <= '9':
			return r
		case unicode.IsSpace(r):
			return r
		}
		return -1
	}, folded)
}
