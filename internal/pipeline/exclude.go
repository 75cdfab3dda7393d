package pipeline

import (
	"strings"

	"jobmate/jobsearch-service/internal/model"
)

// ContainsExcludedTerm reports whether l mentions one of terms in its title,
// company or description. Matching ignores case; blank terms never match.
func ContainsExcludedTerm(l model.Listing, terms []string) bool {
	var text string
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		if text == "" {
			text = strings.ToLower(strings.Join([]string{l.Title, l.Company, l.Description}, "\n"))
		}
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}

// FilterExcluded drops listings that contain an excluded term.
func FilterExcluded(listings []model.Listing, terms []string) []model.Listing {
	out := make([]model.Listing, 0, len(listings))
	for _, l := range listings {
		if !ContainsExcludedTerm(l, terms) {
			out = append(out, l)
		}
	}
	return out
}
