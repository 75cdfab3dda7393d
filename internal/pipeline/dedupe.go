package pipeline

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"jobmate/jobsearch-service/internal/model"
)

// Fingerprint is the hex xxhash64 digest of the lowercased
// "title|company|location" triple.
func Fingerprint(l model.Listing) string {
	key := norm(l.Title) + "|" + norm(l.Company) + "|" + norm(l.Location)
	return strconv.FormatUint(xxhash.Sum64String(key), 16)
}

func norm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Dedupe drops later listings whose fingerprint was already seen. The first
// occurrence wins and input order is preserved.
func Dedupe(listings []model.Listing) []model.Listing {
	seen := make(map[string]struct{}, len(listings))
	out := make([]model.Listing, 0, len(listings))
	for _, l := range listings {
		fp := Fingerprint(l)
		if _, dup := seen[fp]; dup {
			continue
		}
		seen[fp] = struct{}{}
		out = append(out, l)
	}
	return out
}
