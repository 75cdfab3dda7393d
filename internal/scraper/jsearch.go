package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"jobmate/jobsearch-service/internal/model"
)

const (
	jsearchHost     = "jsearch.p.rapidapi.com"
	jsearchPerPage  = 10
	jsearchMaxPages = 3
	jsearchPlatform = "JSearch (Google for Jobs)"
)

// JSearchClient queries the JSearch API on RapidAPI.
type JSearchClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     *zap.Logger
}

// NewJSearchClient constructs a client; an empty apiKey disables it.
func NewJSearchClient(baseURL, apiKey string, client *http.Client, log *zap.Logger) *JSearchClient {
	return &JSearchClient{baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, client: client, log: log.Named("jsearch")}
}

func (c *JSearchClient) Name() string { return "jsearch" }

type jsearchResponse struct {
	Data []jsearchJob `json:"data"`
}

type jsearchJob struct {
	Title       string   `json:"job_title"`
	Employer    string   `json:"employer_name"`
	City        string   `json:"job_city"`
	State       string   `json:"job_state"`
	Country     string   `json:"job_country"`
	Description string   `json:"job_description"`
	ApplyLink   string   `json:"job_apply_link"`
	GoogleLink  string   `json:"job_google_link"`
	PostedAt    string   `json:"job_posted_at_datetime_utc"`
	Currency    string   `json:"job_salary_currency"`
	MinSalary   *float64 `json:"job_min_salary"`
	MaxSalary   *float64 `json:"job_max_salary"`
	Experience  *struct {
		Months *int `json:"required_experience_in_months"`
	} `json:"job_required_experience"`
}

// Search issues one request covering up to jsearchMaxPages pages.
func (c *JSearchClient) Search(ctx context.Context, keyword, location string, limit int) ([]model.Listing, error) {
	if c.apiKey == "" {
		c.log.Debug("JSEARCH_API_KEY not set, skipping")
		return nil, nil
	}

	query := keyword
	if location != "" {
		query = keyword + " in " + location
	}
	params := url.Values{}
	params.Set("query", query)
	params.Set("page", "1")
	params.Set("num_pages", strconv.Itoa(jsearchPages(limit)))
	params.Set("date_posted", "month")

	body, err := get(ctx, c.client, c.baseURL+"/search?"+params.Encode(), map[string]string{
		"X-RapidAPI-Key":  c.apiKey,
		"X-RapidAPI-Host": jsearchHost,
	})
	if err != nil {
		return nil, err
	}

	var resp jsearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}

	out := make([]model.Listing, 0, len(resp.Data))
	for _, j := range resp.Data {
		out = append(out, j.toListing())
	}
	if len(out) > limit {
		out = out[:limit]
	}
	c.log.Info("search done", zap.String("query", query), zap.Int("count", len(out)))
	return out, nil
}

func jsearchPages(limit int) int {
	pages := (limit + jsearchPerPage - 1) / jsearchPerPage
	return max(1, min(pages, jsearchMaxPages))
}

func (j jsearchJob) toListing() model.Listing {
	var parts []string
	for _, p := range []string{j.City, j.State, j.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	link := j.ApplyLink
	if link == "" {
		link = j.GoogleLink
	}
	exp := model.AnyRequirement
	if j.Experience != nil && j.Experience.Months != nil {
		exp = experienceBucket(*j.Experience.Months / 12)
	}

	return normalize(model.Listing{
		Title:              j.Title,
		Company:            j.Employer,
		Location:           strings.Join(parts, ", "),
		SalaryRange:        jsearchSalary(j.MinSalary, j.MaxSalary, j.Currency),
		Description:        j.Description,
		SourceURL:          link,
		SourcePlatform:     jsearchPlatform,
		PublishDate:        dateOnly(j.PostedAt),
		ExperienceRequired: exp,
	})
}

func jsearchSalary(lo, hi *float64, currency string) string {
	if lo == nil || hi == nil || *lo <= 0 || *hi <= 0 {
		return ""
	}
	loK, hiK := int(*lo/1000), int(*hi/1000)
	switch strings.ToUpper(currency) {
	case "", "USD":
		return fmt.Sprintf("$%dk-$%dk", loK, hiK)
	case "CNY":
		return fmt.Sprintf("%dk-%dk", loK, hiK)
	default:
		return ""
	}
}

// experienceBucket maps whole years to the bucket labels used by queries.
func experienceBucket(years int) string {
	switch {
	case years >= 10:
		return model.Experience10Plus
	case years >= 5:
		return model.Experience5To10
	case years >= 3:
		return model.Experience3To5
	case years >= 1:
		return model.Experience1To3
	default:
		return model.AnyRequirement
	}
}
