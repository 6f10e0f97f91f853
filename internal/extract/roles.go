package extract

import "strings"

// MatchHints scans snippet text for each role term (case-insensitive) and
// returns the terms found, in the order the term list gives them. Duplicate
// and empty terms are skipped. A nil result means no term matched.
func MatchHints(snippet string, terms []string) []string {
	if snippet == "" || len(terms) == 0 {
		return nil
	}

	// Pre-lowercase the snippet once
	lower := strings.ToLower(snippet)

	var hints []string
	seen := make(map[string]struct{}, len(terms))
	for _, term := range terms {
		if term == "" {
			continue
		}
		lt := strings.ToLower(term)
		if _, dup := seen[lt]; dup {
			continue
		}
		if strings.Contains(lower, lt) {
			seen[lt] = struct{}{}
			hints = append(hints, term)
		}
	}
	return hints
}
