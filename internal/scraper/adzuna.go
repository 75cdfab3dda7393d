package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"jobmate/jobsearch-service/internal/model"
)

const (
	adzunaBaseURL  = "https://api.adzuna.com/v1/api/jobs"
	adzunaPageSize = 50
	adzunaMaxPages = 3 // max 150 results per call
	adzunaPlatform = "Adzuna"
)

// AdzunaClient fetches job offers from the Adzuna public API.
// If AppID or AppKey is empty, Search returns (nil, nil) so the aggregator
// simply gets nothing from this source.
type AdzunaClient struct {
	AppID   string
	AppKey  string
	Country string // "fr", "gb", "us", …
	baseURL string
	client  *http.Client
	log     *zap.Logger
}

// NewAdzunaClient constructs a client with a shared HTTP client.
func NewAdzunaClient(appID, appKey, country string, client *http.Client, log *zap.Logger) *AdzunaClient {
	return &AdzunaClient{
		AppID:   appID,
		AppKey:  appKey,
		Country: country,
		baseURL: adzunaBaseURL,
		client:  client,
		log:     log.Named("adzuna"),
	}
}

func (c *AdzunaClient) Name() string { return "adzuna" }

// adzunaResponse mirrors the top-level Adzuna JSON response.
type adzunaResponse struct {
	Results []adzunaResult `json:"results"`
	Count   int            `json:"count"`
}

// adzunaResult mirrors a single Adzuna job listing.
type adzunaResult struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Company     named   `json:"company"`
	Location    named   `json:"location"`
	SalaryMin   float64 `json:"salary_min"`
	SalaryMax   float64 `json:"salary_max"`
	RedirectURL string  `json:"redirect_url"`
	Created     string  `json:"created"`
}

type named struct {
	DisplayName string `json:"display_name"`
}

// Search iterates through pages until no more results, limit is reached,
// or adzunaMaxPages is reached.
func (c *AdzunaClient) Search(ctx context.Context, keyword, location string, limit int) ([]model.Listing, error) {
	if c.AppID == "" || c.AppKey == "" {
		c.log.Debug("ADZUNA_APP_ID / ADZUNA_APP_KEY not set, skipping")
		return nil, nil
	}

	var out []model.Listing
	for page := 1; page <= adzunaMaxPages && len(out) < limit; page++ {
		batch, err := c.fetchPage(ctx, keyword, location, page)
		if err != nil {
			return out, fmt.Errorf("page %d: %w", page, err)
		}
		if len(batch) == 0 {
			break
		}
		out = append(out, batch...)
		if len(batch) < adzunaPageSize {
			break
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	c.log.Info("search done", zap.String("keyword", keyword), zap.Int("count", len(out)))
	return out, nil
}

func (c *AdzunaClient) fetchPage(ctx context.Context, keyword, location string, page int) ([]model.Listing, error) {
	endpoint := fmt.Sprintf("%s/%s/search/%d", c.baseURL, c.Country, page)

	params := url.Values{}
	params.Set("app_id", c.AppID)
	params.Set("app_key", c.AppKey)
	params.Set("results_per_page", strconv.Itoa(adzunaPageSize))
	params.Set("what", keyword)
	if location != "" {
		params.Set("where", location)
	}
	params.Set("content-type", "application/json")
	params.Set("sort_by", "date")

	body, err := get(ctx, c.client, endpoint+"?"+params.Encode(), map[string]string{
		"Accept": "application/json",
	})
	if err != nil {
		return nil, err
	}

	var resp adzunaResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}

	listings := make([]model.Listing, 0, len(resp.Results))
	for _, r := range resp.Results {
		listings = append(listings, normalize(model.Listing{
			Title:          r.Title,
			Company:        r.Company.DisplayName,
			Location:       r.Location.DisplayName,
			SalaryRange:    adzunaSalary(r.SalaryMin, r.SalaryMax),
			Description:    r.Description,
			SourceURL:      r.RedirectURL,
			SourcePlatform: adzunaPlatform,
			PublishDate:    dateOnly(r.Created),
		}))
	}
	return listings, nil
}

func adzunaSalary(lo, hi float64) string {
	switch {
	case lo > 0 && hi > lo:
		return fmt.Sprintf("%.0fk-%.0fk", lo/1000, hi/1000)
	case lo > 0:
		return fmt.Sprintf("%.0fk", lo/1000)
	default:
		return ""
	}
}
