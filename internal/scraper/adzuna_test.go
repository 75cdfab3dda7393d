package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAdzunaClient_MissingCredentialsSkips(t *testing.T) {
	c := NewAdzunaClient("", "", "fr", http.DefaultClient, zap.NewNop())
	got, err := c.Search(context.Background(), "dev", "Paris", 10)
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestAdzunaClient_Search(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		assert.Equal(t, "id", r.URL.Query().Get("app_id"))
		assert.Equal(t, "date", r.URL.Query().Get("sort_by"))

		n := adzunaPageSize
		if strings.HasSuffix(r.URL.Path, "/2") {
			n = 2
		}
		results := make([]map[string]any, 0, n)
		for i := 0; i < n; i++ {
			results = append(results, map[string]any{
				"title":        fmt.Sprintf("Développeur Go %d", i),
				"company":      map[string]any{"display_name": "Acme"},
				"location":     map[string]any{"display_name": "Paris"},
				"salary_min":   45000.0,
				"salary_max":   55000.0,
				"redirect_url": fmt.Sprintf("https://adzuna.example/%d", i),
				"created":      "2026-10-10T09:30:00Z",
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"results": results, "count": 52})
	}))
	defer srv.Close()

	c := NewAdzunaClient("id", "key", "fr", srv.Client(), zap.NewNop())
	c.baseURL = srv.URL
	got, err := c.Search(context.Background(), "Go", "Paris", 100)
	require.NoError(t, err)
	assert.Len(t, got, adzunaPageSize+2)
	assert.Equal(t, []string{"/fr/search/1", "/fr/search/2"}, paths)

	assert.Equal(t, "Acme", got[0].Company)
	assert.Equal(t, "45k-55k", got[0].SalaryRange)
	assert.Equal(t, "2026-10-10", got[0].PublishDate)
	assert.Equal(t, adzunaPlatform, got[0].SourcePlatform)
}
