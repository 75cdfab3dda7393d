package pipeline

import (
	"regexp"
	"strconv"
	"strings"

	"jobmate/jobsearch-service/internal/model"
)

var (
	salaryRangeRe  = regexp.MustCompile(`(\d+)\s*[kK]?\s*[-~至]\s*\$?(\d+)\s*[kK]`)
	salarySingleRe = regexp.MustCompile(`(\d+)\s*[kK]`)
)

// ParseSalaryK reads the thousands figures of a salary text such as
// "20k-40k", "30-50K" or "$120k-$150k". ok is false when no figure is found.
func ParseSalaryK(s string) (lo, hi int, ok bool) {
	if m := salaryRangeRe.FindStringSubmatch(s); m != nil {
		lo, _ = strconv.Atoi(m[1])
		hi, _ = strconv.Atoi(m[2])
		if hi < lo {
			lo, hi = hi, lo
		}
		return lo, hi, true
	}
	if m := salarySingleRe.FindStringSubmatch(s); m != nil {
		lo, _ = strconv.Atoi(m[1])
		return lo, lo, true
	}
	return 0, 0, false
}

// ApplyFilters applies the optional salary and experience constraints of q.
// Listings whose salary cannot be read, or that state no experience
// requirement, are kept.
func ApplyFilters(listings []model.Listing, q model.SearchQuery) []model.Listing {
	if q.SalaryMin == nil && q.SalaryMax == nil && q.ExperienceYears == "" {
		return append([]model.Listing(nil), listings...)
	}
	out := make([]model.Listing, 0, len(listings))
	for _, l := range listings {
		if salaryMatches(l.SalaryRange, q.SalaryMin, q.SalaryMax) && experienceMatches(l.ExperienceRequired, q.ExperienceYears) {
			out = append(out, l)
		}
	}
	return out
}

func salaryMatches(salary string, minK, maxK *int) bool {
	lo, hi, ok := ParseSalaryK(salary)
	if !ok {
		return true
	}
	if minK != nil && hi < *minK {
		return false
	}
	if maxK != nil && lo > *maxK {
		return false
	}
	return true
}

func experienceMatches(required, target string) bool {
	if target == "" {
		return true
	}
	required = strings.TrimSpace(required)
	if required == "" || required == model.AnyRequirement {
		return true
	}
	if strings.Contains(required, target) {
		return true
	}
	want := model.ExperienceBuckets[target]
	have := model.ExperienceBuckets[required]
	for _, w := range want {
		for _, h := range have {
			if w == h {
				return true
			}
		}
	}
	return false
}
