package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxNameLen bounds a plausible person name. Cleaned names longer than this
// are directory or listing pages, not individuals.
const MaxNameLen = 60

var (
	// Trailing "| LinkedIn ..." or "- LinkedIn ..." suffix on result titles.
	linkedinSuffixRe = regexp.MustCompile(`(?i)\s?[|\-]\s?LinkedIn.*$`)
	// Job-title and company segments are appended after a spaced hyphen or en dash.
	titleSegmentRe = regexp.MustCompile(`\s[–-]\s`)
)

// CleanTitle extracts a person's name from a raw search result title. The
// trailing site suffix is stripped first, then only the first segment before
// a spaced hyphen or en dash is kept, dropping role and company decorations.
func CleanTitle(title string) string {
	cleaned := linkedinSuffixRe.ReplaceAllString(title, "")
	parts := titleSegmentRe.Split(cleaned, 2)
	return strings.TrimSpace(parts[0])
}

// NoiseReason reports why a cleaned name should be discarded, or "" if it
// looks like a real person. Length is measured in runes so accented names
// are not penalized for their encoding.
func NoiseReason(name string) string {
	if utf8.RuneCountInString(name) > MaxNameLen {
		return "name_too_long"
	}
	if strings.Contains(strings.ToLower(name), "profiles") {
		return "listing_page"
	}
	return ""
}
