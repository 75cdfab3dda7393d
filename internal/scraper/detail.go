package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrListingExpired means the detail page reports the posting is gone.
	ErrListingExpired = errors.New("listing expired")
	// ErrDateUnavailable means the page was read but carries no usable date.
	ErrDateUnavailable = errors.New("publish date unavailable")
)

const (
	// DefaultDetailTimeout bounds a single detail-page request.
	DefaultDetailTimeout = 8 * time.Second

	dateLayout          = "2006-01-02"
	challengeMarker     = "百度安全验证"
	challengeMaxBodyLen = 3000
)

var (
	pageDataRe    = regexp.MustCompile(`(?s)window\.pageData\s*=\s*(\{.*?\});`)
	publishTimeRe = regexp.MustCompile(`publishtime[":\s]*"?(\d{4}-\d{2}-\d{2})`)
	datePubRe     = regexp.MustCompile(`datePublished[":\s]*"?(\d{4}-\d{2}-\d{2})`)
	expiredTexts  = []string{"页面不存在", "NOT FOUND"}
)

// DetailFetcher resolves the publish date of a listing from its detail page.
type DetailFetcher struct {
	client *http.Client
	log    *zap.Logger
}

// NewDetailFetcher constructs a fetcher; client should carry the short
// detail timeout.
func NewDetailFetcher(client *http.Client, log *zap.Logger) *DetailFetcher {
	return &DetailFetcher{client: client, log: log.Named("detail")}
}

type pageData struct {
	Result struct {
		PublishTime string `json:"publishtime"`
		JobDetail   struct {
			StartDate string `json:"startDate"`
		} `json:"jobDetail"`
	} `json:"result"`
}

// PublishDate fetches rawURL once. It returns ErrListingExpired for a
// delisted posting, ErrDateUnavailable when no date can be read, and any
// transport error as is.
func (f *DetailFetcher) PublishDate(ctx context.Context, rawURL string) (time.Time, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return time.Time{}, err
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return time.Time{}, fmt.Errorf("http GET: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusGone:
		return time.Time{}, ErrListingExpired
	default:
		return time.Time{}, &StatusError{URL: rawURL, Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return time.Time{}, fmt.Errorf("read body: %w", err)
	}
	t, err := extractPublishDate(string(body))
	if errors.Is(err, ErrDateUnavailable) {
		f.log.Debug("no publish date on detail page", zap.String("url", rawURL), zap.Int("bytes", len(body)))
	}
	return t, err
}

func extractPublishDate(html string) (time.Time, error) {
	for _, marker := range expiredTexts {
		if strings.Contains(html, marker) {
			return time.Time{}, ErrListingExpired
		}
	}
	if strings.Contains(html, challengeMarker) && len(html) < challengeMaxBodyLen {
		return time.Time{}, ErrDateUnavailable
	}

	if m := pageDataRe.FindStringSubmatch(html); m != nil {
		var pd pageData
		if err := json.Unmarshal([]byte(m[1]), &pd); err == nil {
			raw := pd.Result.PublishTime
			if raw == "" {
				raw = pd.Result.JobDetail.StartDate
			}
			if t, err := ParseDate(raw); err == nil {
				return t, nil
			}
		}
	}
	for _, re := range []*regexp.Regexp{publishTimeRe, datePubRe} {
		if m := re.FindStringSubmatch(html); m != nil {
			if t, err := ParseDate(m[1]); err == nil {
				return t, nil
			}
		}
	}
	return time.Time{}, ErrDateUnavailable
}

// ParseDate reads a YYYY-MM-DD date, ignoring any "T..." time suffix.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, "T "); i >= 0 {
		s = s[:i]
	}
	return time.ParseInLocation(dateLayout, s, time.UTC)
}

// dateOnly normalizes an upstream timestamp to YYYY-MM-DD, or "" when it
// cannot be read.
func dateOnly(s string) string {
	t, err := ParseDate(s)
	if err != nil {
		return ""
	}
	return t.Format(dateLayout)
}
