package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidQuery is returned for a malformed SearchQuery. It is the only
// error that propagates out of a pipeline search.
var ErrInvalidQuery = errors.New("invalid search query")

// MaxResultsLimit caps SearchQuery.MaxResults.
const MaxResultsLimit = 200

// DefaultMaxAgeDays is the freshness window used when a query leaves
// MaxAgeDays at zero.
const DefaultMaxAgeDays = 90

// Experience bucket labels accepted by SearchQuery.ExperienceYears.
const (
	Experience1To3   = "1-3年"
	Experience3To5   = "3-5年"
	Experience5To10  = "5-10年"
	Experience10Plus = "10年以上"
)

// ExperienceBuckets maps each bucket label to the set of years it covers.
var ExperienceBuckets = map[string][]int{
	Experience1To3:   {1, 2, 3},
	Experience3To5:   {3, 4, 5},
	Experience5To10:  {5, 6, 7, 8, 9, 10},
	Experience10Plus: {10, 11, 12, 13, 14, 15, 16, 17, 18, 19},
}

// SearchQuery is the caller's request.
type SearchQuery struct {
	Keyword         string            `json:"keyword"`
	Location        string            `json:"location"`
	MaxResults      int               `json:"max_results"`
	SalaryMin       *int              `json:"salary_min,omitempty"`
	SalaryMax       *int              `json:"salary_max,omitempty"`
	ExperienceYears string            `json:"experience_years,omitempty"`
	ExcludeTerms    []string          `json:"exclude_terms,omitempty"`
	SessionID       string            `json:"session_id,omitempty"`
	MaxAgeDays      int               `json:"max_age_days,omitempty"`
	Profile         *CandidateProfile `json:"profile,omitempty"`
}

// CandidateProfile describes the candidate listings are scored against.
type CandidateProfile struct {
	Skills          []string `json:"skills"`
	ExperienceYears int      `json:"experience_years"`
	City            string   `json:"city,omitempty"`
	Summary         string   `json:"summary,omitempty"`
}

// Validate checks the query contract. Errors wrap ErrInvalidQuery.
func (q SearchQuery) Validate() error {
	if strings.TrimSpace(q.Keyword) == "" {
		return fmt.Errorf("%w: keyword is required", ErrInvalidQuery)
	}
	if q.MaxResults < 1 || q.MaxResults > MaxResultsLimit {
		return fmt.Errorf("%w: max_results must be between 1 and %d, got %d", ErrInvalidQuery, MaxResultsLimit, q.MaxResults)
	}
	if q.SalaryMin != nil && *q.SalaryMin < 0 {
		return fmt.Errorf("%w: salary_min must not be negative", ErrInvalidQuery)
	}
	if q.SalaryMax != nil && *q.SalaryMax < 0 {
		return fmt.Errorf("%w: salary_max must not be negative", ErrInvalidQuery)
	}
	if q.SalaryMin != nil && q.SalaryMax != nil && *q.SalaryMin > *q.SalaryMax {
		return fmt.Errorf("%w: salary_min %d exceeds salary_max %d", ErrInvalidQuery, *q.SalaryMin, *q.SalaryMax)
	}
	if q.ExperienceYears != "" {
		if _, ok := ExperienceBuckets[q.ExperienceYears]; !ok {
			return fmt.Errorf("%w: unknown experience bucket %q", ErrInvalidQuery, q.ExperienceYears)
		}
	}
	if q.MaxAgeDays < 0 {
		return fmt.Errorf("%w: max_age_days must not be negative", ErrInvalidQuery)
	}
	return nil
}

// FreshnessWindow returns the effective max age in days.
func (q SearchQuery) FreshnessWindow() int {
	if q.MaxAgeDays == 0 {
		return DefaultMaxAgeDays
	}
	return q.MaxAgeDays
}
