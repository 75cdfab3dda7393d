package pipeline

import (
	"slices"

	"jobmate/jobsearch-service/internal/model"
)

// RankAndTruncate returns at most n listings. When any listing carries a
// score they are ordered by score descending, ties keeping discovery order;
// otherwise discovery order is kept. Unscored listings rank last.
func RankAndTruncate(listings []model.Listing, n int) []model.Listing {
	out := append([]model.Listing(nil), listings...)
	if hasScores(out) {
		slices.SortStableFunc(out, func(a, b model.Listing) int {
			sa, sb := scoreOf(a), scoreOf(b)
			switch {
			case sa > sb:
				return -1
			case sa < sb:
				return 1
			default:
				return 0
			}
		})
	}
	n = max(n, 0)
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func hasScores(listings []model.Listing) bool {
	for _, l := range listings {
		if l.Score != nil {
			return true
		}
	}
	return false
}

func scoreOf(l model.Listing) float64 {
	if l.Score == nil {
		return -1
	}
	return *l.Score
}
