package infer

import (
	"strings"

	"github.com/FranksOps/auger/internal/extract"
)

// Policy selects how surname candidates are derived from a tokenized name.
type Policy string

const (
	// PolicySingle pairs the first token with the last token, yielding at
	// most one candidate address.
	PolicySingle Policy = "single"
	// PolicyMulti pairs the first token with the second and, when present,
	// third token independently. This suits compound-surname conventions
	// where either surname may back the mailbox name.
	PolicyMulti Policy = "multi"
)

// Valid reports whether p names a known policy.
func (p Policy) Valid() bool {
	return p == PolicySingle || p == PolicyMulti
}

// Emails expands the template for each surname candidate the policy derives
// from fullName. Recognized placeholders are {first}, {last}, {f} and {l};
// substitution is literal and the placeholders do not overlap. The result is
// deduplicated preserving order and is empty, never nil, when the template is
// empty or fewer than two name tokens remain after normalization.
func Emails(fullName, template string, policy Policy) []string {
	if template == "" {
		return []string{}
	}

	parts := strings.Fields(extract.Normalize(fullName))
	if len(parts) < 2 {
		return []string{}
	}
	first := parts[0]

	var surnames []string
	switch {
	case policy == PolicySingle:
		surnames = []string{parts[len(parts)-1]}
	case len(parts) == 2:
		surnames = []string{parts[1]}
	default:
		surnames = []string{parts[1], parts[2]}
	}

	emails := make([]string, 0, len(surnames))
	for _, last := range surnames {
		email := strings.NewReplacer(
			"{first}", first,
			"{last}", last,
			"{f}", first[:1],
			"{l}", last[:1],
		).Replace(template)

		dup := false
		for _, seen := range emails {
			if seen == email {
				dup = true
				break
			}
		}
		if !dup {
			emails = append(emails, email)
		}
	}
	return emails
}
