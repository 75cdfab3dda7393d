package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"jobmate/jobsearch-service/internal/model"
	"jobmate/jobsearch-service/internal/scraper"
)

// fakeSource returns canned listings keyed by location ("*" matches any).
type fakeSource struct {
	name   string
	byLoc  map[string][]model.Listing
	err    error
	panics bool
	delay  time.Duration
	mu     sync.Mutex
	calls  []string
	limits []int
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Search(ctx context.Context, keyword, location string, limit int) ([]model.Listing, error) {
	f.mu.Lock()
	f.calls = append(f.calls, location)
	f.limits = append(f.limits, limit)
	f.mu.Unlock()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.panics {
		panic("boom")
	}
	out, ok := f.byLoc[location]
	if !ok {
		out = f.byLoc["*"]
	}
	return out, f.err
}

func listing(title, company string) model.Listing {
	return model.Listing{Title: title, Company: company, Location: "深圳"}
}

func titles(ls []model.Listing) []string {
	out := make([]string, len(ls))
	for i, l := range ls {
		out[i] = l.Title
	}
	return out
}

func newPipeline(sources []Source, fallback Source) *Pipeline {
	return New(Config{Sources: sources, Fallback: fallback, Logger: zap.NewNop()})
}

func TestSearch_ConcreteRelevanceScenario(t *testing.T) {
	a := &fakeSource{name: "a", byLoc: map[string][]model.Listing{"*": {
		listing("安全架构师", "A"), listing("产品经理", "B"),
	}}}
	c := &fakeSource{name: "c", byLoc: map[string][]model.Listing{"*": {
		listing("高级安全架构师", "C"),
	}}}

	got, err := newPipeline([]Source{a, c}, nil).Search(context.Background(),
		model.SearchQuery{Keyword: "安全架构师", Location: "深圳", MaxResults: 10})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].Company)
	assert.Equal(t, "C", got[1].Company)
}

func TestSearch_PaddedKeywordStillMatches(t *testing.T) {
	a := &fakeSource{name: "a", byLoc: map[string][]model.Listing{"*": {
		listing("Java工程师", "A"), listing("高级Java开发", "B"), listing("产品经理", "C"),
	}}}

	got, err := newPipeline([]Source{a}, nil).Search(context.Background(),
		model.SearchQuery{Keyword: "Java ", MaxResults: 5})
	require.NoError(t, err)
	assert.Equal(t, []string{"Java工程师", "高级Java开发"}, titles(got))
}

func TestSearch_DuplicateAcrossSources(t *testing.T) {
	dup := model.Listing{Title: "Java工程师", Company: "腾讯", Location: "深圳"}
	a := &fakeSource{name: "a", byLoc: map[string][]model.Listing{"*": {dup}}}
	b := &fakeSource{name: "b", byLoc: map[string][]model.Listing{"*": {dup}}}

	got, err := newPipeline([]Source{a, b}, nil).Search(context.Background(),
		model.SearchQuery{Keyword: "Java", MaxResults: 10})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSearch_PartialSourceFailure(t *testing.T) {
	good := &fakeSource{name: "good", byLoc: map[string][]model.Listing{"*": {listing("Go开发", "A")}}}
	bad := &fakeSource{name: "bad", err: errors.New("connection refused")}
	panicky := &fakeSource{name: "panicky", panics: true}

	got, err := newPipeline([]Source{bad, panicky, good}, nil).Search(context.Background(),
		model.SearchQuery{Keyword: "Go", MaxResults: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"Go开发"}, titles(got))
}

func TestSearch_PartialResultsWithErrorAreKept(t *testing.T) {
	s := &fakeSource{name: "s", err: errors.New("page 2: timeout"),
		byLoc: map[string][]model.Listing{"*": {listing("Go开发", "A")}}}

	got, err := newPipeline([]Source{s}, nil).Search(context.Background(),
		model.SearchQuery{Keyword: "Go", MaxResults: 10})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSearch_FallbackChain(t *testing.T) {
	primary := &fakeSource{name: "p", byLoc: map[string][]model.Listing{
		"深圳": {listing("产品经理", "X")},
		"":   {listing("安全专家", "Nationwide")},
	}}
	bing := &fakeSource{name: "bing", byLoc: map[string][]model.Listing{"*": {listing("安全专家 招聘", "web")}}}

	got, err := newPipeline([]Source{primary}, bing).Search(context.Background(),
		model.SearchQuery{Keyword: "安全专家", Location: "深圳", MaxResults: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"安全专家"}, titles(got))
	assert.Equal(t, []string{"深圳", ""}, primary.calls)
	assert.Empty(t, bing.calls)
}

func TestSearch_SearchEngineIsLastResort(t *testing.T) {
	primary := &fakeSource{name: "p"}
	bing := &fakeSource{name: "bing", byLoc: map[string][]model.Listing{"*": {listing("安全专家 招聘", "web")}}}

	got, err := newPipeline([]Source{primary}, bing).Search(context.Background(),
		model.SearchQuery{Keyword: "安全专家", Location: "深圳", MaxResults: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"安全专家 招聘"}, titles(got))
	assert.Equal(t, []string{"深圳"}, bing.calls)
}

func TestSearch_NoLocationSkipsNationwideStage(t *testing.T) {
	primary := &fakeSource{name: "p"}
	got, err := newPipeline([]Source{primary}, nil).Search(context.Background(),
		model.SearchQuery{Keyword: "x", MaxResults: 3})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Len(t, primary.calls, 1)
}

func TestSearch_CandidateCapAndTruncation(t *testing.T) {
	var many []model.Listing
	for i := 0; i < 40; i++ {
		many = append(many, listing(fmt.Sprintf("Go开发 %02d", i), "A"))
	}
	s := &fakeSource{name: "s", byLoc: map[string][]model.Listing{"*": many}}

	got, err := newPipeline([]Source{s}, nil).Search(context.Background(),
		model.SearchQuery{Keyword: "go", MaxResults: 5})
	require.NoError(t, err)
	assert.Len(t, got, 5)
	assert.Equal(t, "Go开发 00", got[0].Title)
	assert.Equal(t, []int{25}, s.limits)
}

func TestSearch_InvalidQuery(t *testing.T) {
	s := &fakeSource{name: "s"}
	_, err := newPipeline([]Source{s}, nil).Search(context.Background(), model.SearchQuery{Keyword: " ", MaxResults: 5})
	assert.ErrorIs(t, err, model.ErrInvalidQuery)
	assert.Empty(t, s.calls)
}

func TestSearch_ExcludeTerms(t *testing.T) {
	s := &fakeSource{name: "s", byLoc: map[string][]model.Listing{"*": {
		listing("Go开发", "外包科技"), listing("Go开发", "正经公司"),
	}}}
	got, err := newPipeline([]Source{s}, nil).Search(context.Background(),
		model.SearchQuery{Keyword: "Go", MaxResults: 5, ExcludeTerms: []string{"外包"}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "正经公司", got[0].Company)
}

func TestSearch_ProfileRanksByScore(t *testing.T) {
	s := &fakeSource{name: "s", byLoc: map[string][]model.Listing{"*": {
		{Title: "Go开发", Company: "A", Location: "北京"},
		{Title: "高级Go开发", Company: "B", Location: "深圳", Description: "kubernetes"},
	}}}
	q := model.SearchQuery{Keyword: "Go", MaxResults: 5, Profile: &model.CandidateProfile{
		Skills: []string{"Kubernetes"}, City: "深圳", Summary: "高级开发",
	}}

	got, err := newPipeline([]Source{s}, nil).Search(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "B", got[0].Company)
	require.NotNil(t, got[0].Score)
	assert.Greater(t, *got[0].Score, *got[1].Score)
}

type memSeen struct {
	mu  sync.Mutex
	set map[string]bool
	err error
}

func (m *memSeen) Seen(_ context.Context, session string, fps []string) ([]bool, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]bool, len(fps))
	for i, fp := range fps {
		out[i] = m.set[session+fp]
	}
	return out, nil
}

func (m *memSeen) Mark(_ context.Context, session string, fps []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, fp := range fps {
		m.set[session+fp] = true
	}
	return nil
}

func TestSearch_SessionDedup(t *testing.T) {
	s := &fakeSource{name: "s", byLoc: map[string][]model.Listing{"*": {
		listing("Go开发 1", "A"), listing("Go开发 2", "A"), listing("Go开发 3", "A"),
	}}}
	seen := &memSeen{set: map[string]bool{}}
	p := New(Config{Sources: []Source{s}, Seen: seen, Logger: zap.NewNop()})
	q := model.SearchQuery{Keyword: "Go", MaxResults: 2, SessionID: "sess"}

	first, err := p.Search(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, []string{"Go开发 1", "Go开发 2"}, titles(first))

	second, err := p.Search(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, []string{"Go开发 3"}, titles(second))

	q.SessionID = "other"
	third, err := p.Search(context.Background(), q)
	require.NoError(t, err)
	assert.Len(t, third, 2)
}

func TestSearch_SessionDedupFailsOpen(t *testing.T) {
	s := &fakeSource{name: "s", byLoc: map[string][]model.Listing{"*": {listing("Go开发", "A")}}}
	p := New(Config{Sources: []Source{s}, Seen: &memSeen{err: errors.New("redis down")}, Logger: zap.NewNop()})

	got, err := p.Search(context.Background(), model.SearchQuery{Keyword: "Go", MaxResults: 2, SessionID: "x"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

type mapFetcher struct {
	dates    map[string]time.Time
	errs     map[string]error
	delay    time.Duration
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (f *mapFetcher) PublishDate(_ context.Context, url string) (time.Time, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if url == "panic" {
		panic("bad page")
	}
	if err, ok := f.errs[url]; ok {
		return time.Time{}, err
	}
	if d, ok := f.dates[url]; ok {
		return d, nil
	}
	return time.Time{}, scraper.ErrDateUnavailable
}

func TestSearch_FreshnessStage(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	s := &fakeSource{name: "s", byLoc: map[string][]model.Listing{"*": {
		{Title: "Go fresh", Company: "A", DetailURL: "fresh"},
		{Title: "Go stale", Company: "B", DetailURL: "stale"},
		{Title: "Go gone", Company: "C", DetailURL: "gone"},
		{Title: "Go unknown", Company: "D", DetailURL: "timeout"},
	}}}
	fetcher := &mapFetcher{
		dates: map[string]time.Time{"fresh": now.AddDate(0, 0, -3), "stale": now.AddDate(0, 0, -120)},
		errs:  map[string]error{"gone": scraper.ErrListingExpired, "timeout": context.DeadlineExceeded},
	}
	ff := NewFreshnessFilter(fetcher, 2, zap.NewNop(), nil)
	ff.now = func() time.Time { return now }

	p := New(Config{Sources: []Source{s}, Freshness: ff, Logger: zap.NewNop()})
	got, err := p.Search(context.Background(), model.SearchQuery{Keyword: "go", MaxResults: 10})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2026-10-14", got[0].PublishDate)
	assert.Equal(t, model.PublishDateUnknown, got[1].PublishDate)
}
