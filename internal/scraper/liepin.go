package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"jobmate/jobsearch-service/internal/model"
)

const (
	liepinMaxPages = 2
	liepinMinBatch = 5
	liepinPlatform = "猎聘"
	liepinJobURL   = "https://www.liepin.com/job/%s.shtml"
	liepinCard     = ".job-card, .job-card-pc-container"
)

var liepinJobList = regexp.MustCompile(`(?s)"jobList":\s*(\[.*?\])\s*,\s*"count"`)

// LiepinClient scrapes the Liepin search result pages.
type LiepinClient struct {
	baseURL string
	client  *http.Client
	log     *zap.Logger
}

// NewLiepinClient constructs a client against baseURL.
func NewLiepinClient(baseURL string, client *http.Client, log *zap.Logger) *LiepinClient {
	return &LiepinClient{baseURL: baseURL, client: client, log: log.Named("liepin")}
}

func (c *LiepinClient) Name() string { return "liepin" }

// Search reads up to liepinMaxPages result pages.
func (c *LiepinClient) Search(ctx context.Context, keyword, location string, limit int) ([]model.Listing, error) {
	dq, _ := cityCode(liepinCities, location)

	var out []model.Listing
	for page := 0; page < liepinMaxPages && len(out) < limit; page++ {
		params := url.Values{}
		params.Set("key", keyword)
		if dq != "" {
			params.Set("dq", dq)
		}
		params.Set("currentPage", strconv.Itoa(page))

		body, err := get(ctx, c.client, c.baseURL+"?"+params.Encode(), map[string]string{
			"Referer": "https://www.liepin.com/",
		})
		if err != nil {
			return out, fmt.Errorf("page %d: %w", page, err)
		}

		batch, err := parseLiepinPage(body, location)
		if err != nil {
			return out, fmt.Errorf("page %d: %w", page, err)
		}
		c.log.Info("page fetched",
			zap.String("keyword", keyword),
			zap.Int("page", page),
			zap.Int("count", len(batch)),
		)
		out = append(out, batch...)
		if len(batch) < liepinMinBatch {
			break
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// parseLiepinPage reads result cards, falling back to the embedded
// jobList JSON when the page carries no card markup.
func parseLiepinPage(body []byte, location string) ([]model.Listing, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	titles := doc.Find(".job-title-box [title]")
	if titles.Length() == 0 {
		return parseLiepinJSON(body)
	}

	listings := make([]model.Listing, 0, titles.Length())
	titles.Each(func(_ int, t *goquery.Selection) {
		card := t.Closest(liepinCard)
		if card.Length() == 0 {
			card = t.Closest("a").Parent()
		}
		company := card.Find(".company-name").First()
		companyName, ok := company.Attr("title")
		if !ok {
			companyName = company.Text()
		}
		companyName = strings.TrimSpace(companyName)
		href, _ := t.Closest("a").Attr("href")
		if href == "" {
			href = "https://www.liepin.com/zhaopin/"
		}
		listings = append(listings, normalize(model.Listing{
			Title:          t.AttrOr("title", ""),
			Company:        companyName,
			Location:       location,
			SalaryRange:    strings.TrimSpace(card.Find(".job-salary").First().Text()),
			SourceURL:      href,
			SourcePlatform: liepinPlatform,
		}))
	})
	return listings, nil
}

type liepinJob struct {
	JobID    json.Number `json:"jobId"`
	JobName  string      `json:"jobName"`
	CompName string      `json:"compName"`
	CityName string      `json:"cityName"`
	Salary   string      `json:"salary"`
}

func parseLiepinJSON(body []byte) ([]model.Listing, error) {
	m := liepinJobList.FindSubmatch(body)
	if m == nil {
		return nil, nil
	}
	var jobs []liepinJob
	if err := json.Unmarshal(m[1], &jobs); err != nil {
		return nil, fmt.Errorf("json unmarshal jobList: %w", err)
	}

	listings := make([]model.Listing, 0, len(jobs))
	for _, j := range jobs {
		l := model.Listing{
			Title:          j.JobName,
			Company:        j.CompName,
			Location:       j.CityName,
			SalaryRange:    j.Salary,
			SourcePlatform: liepinPlatform,
		}
		if id := j.JobID.String(); id != "" {
			l.SourceURL = fmt.Sprintf(liepinJobURL, id)
		}
		listings = append(listings, normalize(l))
	}
	return listings, nil
}
