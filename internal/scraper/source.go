// Package scraper implements the upstream job-listing sources and the
// detail-page lookups used by the freshness filter. Every source turns its
// own response shape into model.Listing; nothing source-specific leaves
// this package.
package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"jobmate/jobsearch-service/internal/model"
)

const (
	// DefaultTimeout bounds a single upstream request.
	DefaultTimeout = 15 * time.Second

	// UserAgent is sent on every upstream request; several boards reject
	// non-browser agents outright.
	UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// maxBodyBytes caps how much of a response is read.
	maxBodyBytes = 8 << 20
)

// NewHTTPClient returns the client shared by all sources of one process.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// StatusError reports a non-200 upstream response.
type StatusError struct {
	URL  string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("GET %s returned %d", e.URL, e.Code)
	}
	return fmt.Sprintf("GET %s returned %d: %s", e.URL, e.Code, e.Body)
}

// get performs a GET and returns the body of a 200 response. Non-200
// responses yield a *StatusError.
func get(ctx context.Context, client *http.Client, rawURL string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", UserAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http GET: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: rawURL, Code: resp.StatusCode, Body: snippet(string(body), 200)}
	}
	return body, nil
}

// orDefault returns s trimmed, or def when s is blank.
func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}

// normalize fills placeholders so that Title and Company are never empty.
func normalize(l model.Listing) model.Listing {
	l.Title = orDefault(l.Title, model.UnknownTitle)
	l.Company = orDefault(l.Company, model.UnknownCompany)
	l.Location = orDefault(l.Location, model.UnknownLocation)
	l.SalaryRange = orDefault(l.SalaryRange, model.NegotiableSalary)
	return l
}

func snippet(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "…"
}
