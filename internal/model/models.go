// Package model defines shared data structures for the job search service.
package model

// Placeholders used by source clients when an upstream field is missing.
const (
	UnknownTitle     = "未知职位"
	UnknownCompany   = "未知公司"
	UnknownLocation  = "未知地区"
	NegotiableSalary = "面议"
	AnyRequirement   = "不限"
)

// PublishDateUnknown marks a listing whose publish date could not be
// resolved by the freshness filter.
const PublishDateUnknown = "unknown"

// Listing is one job posting as returned by a source, normalised to a
// common shape. Title and Company are always non-empty.
type Listing struct {
	Title              string   `json:"title"`
	Company            string   `json:"company"`
	Location           string   `json:"location"`
	SalaryRange        string   `json:"salary_range"`
	Description        string   `json:"description"`
	SourceURL          string   `json:"source_url,omitempty"`
	SourcePlatform     string   `json:"source_platform"`
	PublishDate        string   `json:"publish_date,omitempty"`
	ExperienceRequired string   `json:"experience_required,omitempty"`
	Education          string   `json:"education,omitempty"`
	DetailURL          string   `json:"detail_url,omitempty"`
	Score              *float64 `json:"match_score,omitempty"`
}

// Watch mirrors a search_watches row: a saved search that the scheduler
// re-runs periodically.
type Watch struct {
	ID           string   `json:"id"`
	Keywords     []string `json:"keywords"`
	Locations    []string `json:"locations"`
	MaxResults   int      `json:"max_results"`
	ExcludeTerms []string `json:"exclude_terms"` // any match discards the listing
	SalaryMin    *int     `json:"salary_min,omitempty"`
	SalaryMax    *int     `json:"salary_max,omitempty"`
	Active       bool     `json:"active"`
}
