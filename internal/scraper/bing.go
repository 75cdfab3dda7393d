package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"jobmate/jobsearch-service/internal/model"
)

const (
	bingMaxResults = 10
	bingTitleRunes = 40
	bingCompany    = "点击查看来源"
	bingPlatform   = "网页快照"
)

var hiringTerms = []string{"招聘", "职位", "架构师", "专家", "工程师"}

// BingClient scrapes search-engine result titles as a last-resort source.
type BingClient struct {
	baseURL string
	client  *http.Client
	log     *zap.Logger
	now     func() time.Time
}

// NewBingClient constructs a client against baseURL.
func NewBingClient(baseURL string, client *http.Client, log *zap.Logger) *BingClient {
	return &BingClient{baseURL: baseURL, client: client, log: log.Named("bing"), now: time.Now}
}

func (c *BingClient) Name() string { return "bing" }

// Search visits one result page and keeps up to bingMaxResults titles that
// look like job postings.
func (c *BingClient) Search(ctx context.Context, keyword, location string, limit int) ([]model.Listing, error) {
	q := fmt.Sprintf("%s 招聘 %s %d", keyword, location, c.now().Year())
	target := c.baseURL + "?" + url.Values{"q": {q}}.Encode()
	keep := min(limit, bingMaxResults)

	collector := colly.NewCollector(
		colly.StdlibContext(ctx),
		colly.UserAgent(UserAgent),
		colly.AllowURLRevisit(),
	)
	collector.SetClient(c.client)

	var out []model.Listing
	collector.OnHTML("h2 a[href]", func(e *colly.HTMLElement) {
		if len(out) >= keep {
			return
		}
		title := strings.TrimSpace(e.Text)
		if !looksLikeHiring(title, keyword) {
			return
		}
		out = append(out, normalize(model.Listing{
			Title:          truncateRunes(title, bingTitleRunes),
			Company:        bingCompany,
			Location:       location,
			SourceURL:      e.Request.AbsoluteURL(e.Attr("href")),
			SourcePlatform: bingPlatform,
		}))
	})

	if err := collector.Visit(target); err != nil {
		return out, fmt.Errorf("visit: %w", err)
	}
	c.log.Info("search done", zap.String("query", q), zap.Int("count", len(out)))
	return out, nil
}

func looksLikeHiring(title, keyword string) bool {
	if keyword != "" && strings.Contains(strings.ToLower(title), strings.ToLower(keyword)) {
		return true
	}
	for _, t := range hiringTerms {
		if strings.Contains(title, t) {
			return true
		}
	}
	return false
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}
