package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func serveDetail(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDetailFetcher_PublishDate(t *testing.T) {
	padding := strings.Repeat("x", challengeMaxBodyLen)
	cases := []struct {
		name    string
		status  int
		body    string
		want    string
		wantErr error
	}{
		{"page data publishtime", 200, `<script>window.pageData = {"result":{"publishtime":"2026-10-01"}};</script>`, "2026-10-01", nil},
		{"page data start date", 200, `<script>window.pageData = {"result":{"jobDetail":{"startDate":"2026-09-30T00:00:00"}}};</script>`, "2026-09-30", nil},
		{"raw publishtime", 200, `<div data-x='"publishtime":"2026-08-15"'></div>`, "2026-08-15", nil},
		{"schema date", 200, `{"@type":"JobPosting","datePublished":"2026-07-01"}`, "2026-07-01", nil},
		{"not found status", 404, "", "", ErrListingExpired},
		{"gone status", 410, "", "", ErrListingExpired},
		{"not found text", 200, "<h1>页面不存在</h1>", "", ErrListingExpired},
		{"challenge page", 200, "<title>百度安全验证</title>", "", ErrDateUnavailable},
		{"no date", 200, "<html>" + padding + "</html>", "", ErrDateUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := serveDetail(t, tc.status, tc.body)
			f := NewDetailFetcher(srv.Client(), zap.NewNop())

			got, err := f.PublishDate(context.Background(), srv.URL)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.Format(dateLayout))
		})
	}
}

func TestDetailFetcher_OtherStatusIsNotExpired(t *testing.T) {
	srv := serveDetail(t, http.StatusInternalServerError, "")
	f := NewDetailFetcher(srv.Client(), zap.NewNop())

	_, err := f.PublishDate(context.Background(), srv.URL)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrListingExpired)
	var se *StatusError
	assert.ErrorAs(t, err, &se)
}

func TestDetailFetcher_LongChallengePageStillParsed(t *testing.T) {
	body := "百度安全验证" + strings.Repeat(" ", challengeMaxBodyLen) + `"publishtime":"2026-10-02"`
	srv := serveDetail(t, 200, body)
	f := NewDetailFetcher(srv.Client(), zap.NewNop())

	got, err := f.PublishDate(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-02", got.Format(dateLayout))
}

func TestDetailFetcher_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	f := NewDetailFetcher(&http.Client{Timeout: 50 * time.Millisecond}, zap.NewNop())
	_, err := f.PublishDate(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-10-17T12:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("yesterday")
	assert.Error(t, err)

	assert.Equal(t, "", dateOnly(""))
	assert.Equal(t, "2026-01-02", dateOnly("2026-01-02 10:00"))
}
