package pipeline

import (
	"strings"

	"jobmate/jobsearch-service/internal/model"
)

// FilterRelevant keeps listings whose lowercased title contains the
// trimmed, lowercased keyword. A blank keyword keeps everything.
func FilterRelevant(listings []model.Listing, keyword string) []model.Listing {
	out := make([]model.Listing, 0, len(listings))
	k := strings.ToLower(strings.TrimSpace(keyword))
	if k == "" {
		return append(out, listings...)
	}
	for _, l := range listings {
		if strings.Contains(strings.ToLower(l.Title), k) {
			out = append(out, l)
		}
	}
	return out
}
