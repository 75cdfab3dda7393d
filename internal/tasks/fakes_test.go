package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"jobmate/jobsearch-service/internal/model"
)

// memStore is an in-memory TaskStore + QueryStore that enforces the same
// guarded transitions as the Postgres store.
type memStore struct {
	mu      sync.Mutex
	tasks   map[string]*Task
	jobs    []CrawledJob
	watches []model.Watch
	saveErr error
	now     time.Time
}

func newMemStore() *memStore {
	return &memStore{
		tasks: make(map[string]*Task),
		now:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (s *memStore) tick() time.Time {
	s.now = s.now.Add(time.Second)
	return s.now
}

func (s *memStore) CreateTask(_ context.Context, keyword, location string) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	at := s.tick()
	t := &Task{ID: uuid.NewString(), Keyword: keyword, Location: location, Status: StatusPending, CreatedAt: at, UpdatedAt: at}
	s.tasks[t.ID] = t
	cp := *t
	return &cp, nil
}

func (s *memStore) Transition(_ context.Context, id string, from, to Status, out Outcome) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !IsTransitionAllowed(from, to) {
		return nil, ErrForbiddenTransition
	}
	t, ok := s.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	if t.Status != from {
		return nil, ErrForbiddenTransition
	}
	t.Status = to
	t.UpdatedAt = s.tick()
	if IsTerminal(to) {
		t.TotalFound, t.TotalSaved = out.TotalFound, out.TotalSaved
		at := t.UpdatedAt
		t.CompletedAt = &at
	}
	if out.ErrorMessage != "" {
		msg := out.ErrorMessage
		t.ErrorMessage = &msg
	}
	cp := *t
	return &cp, nil
}

func (s *memStore) SaveListing(_ context.Context, taskID, hash string, l model.Listing) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return "", false, s.saveErr
	}
	for _, j := range s.jobs {
		if j.JobHash == hash {
			return "", false, nil
		}
	}
	j := CrawledJob{ID: uuid.NewString(), TaskID: taskID, Listing: l, JobHash: hash, ParseStatus: ParsePending, CreatedAt: s.tick()}
	s.jobs = append(s.jobs, j)
	return j.ID, true, nil
}

func (s *memStore) SetParsed(_ context.Context, jobID string, data json.RawMessage, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.jobs {
		if s.jobs[i].ID == jobID {
			s.jobs[i].ParsedData = data
			s.jobs[i].ParseStatus = status
			return nil
		}
	}
	return ErrNotFound
}

func (s *memStore) GetTask(_ context.Context, id string) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *memStore) ListTasks(_ context.Context, limit int) ([]Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) ListTaskJobs(_ context.Context, taskID string) ([]CrawledJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]CrawledJob, 0)
	for _, j := range s.jobs {
		if j.TaskID == taskID {
			out = append(out, j)
		}
	}
	return out, nil
}

func (s *memStore) ListCrawledJobs(_ context.Context, f JobFilter) ([]CrawledJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]CrawledJob, 0)
	for _, j := range s.jobs {
		if f.Keyword != "" && !containsFold(j.Title, f.Keyword) {
			continue
		}
		if f.Location != "" && !containsFold(j.Location, f.Location) {
			continue
		}
		out = append(out, j)
	}
	return out, nil
}

func (s *memStore) DeleteCrawledJob(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, j := range s.jobs {
		if j.ID == id {
			s.jobs = append(s.jobs[:i], s.jobs[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (s *memStore) CreateWatch(_ context.Context, w model.Watch) (*model.Watch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w.ID = uuid.NewString()
	w.Active = true
	s.watches = append(s.watches, w)
	return &w, nil
}

func (s *memStore) ListWatches(context.Context) ([]model.Watch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Watch{}, s.watches...), nil
}

func (s *memStore) DeactivateWatch(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.watches {
		if s.watches[i].ID == id && s.watches[i].Active {
			s.watches[i].Active = false
			return nil
		}
	}
	return ErrNotFound
}

func (s *memStore) job(id string) CrawledJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.jobs {
		if j.ID == id {
			return j
		}
	}
	return CrawledJob{}
}

// fakeSearcher returns listings per keyword, or err for keywords in fail.
type fakeSearcher struct {
	mu      sync.Mutex
	byKw    map[string][]model.Listing
	fail    map[string]error
	queries []model.SearchQuery
}

func (f *fakeSearcher) Search(ctx context.Context, q model.SearchQuery) ([]model.Listing, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()
	if err := f.fail[q.Keyword]; err != nil {
		return nil, err
	}
	return f.byKw[q.Keyword], ctx.Err()
}

type fakeParser struct {
	fail map[string]bool
}

func (p fakeParser) ParseListing(_ context.Context, l model.Listing) (json.RawMessage, error) {
	if p.fail[l.Title] {
		return nil, errors.New("model refused")
	}
	return json.RawMessage(`{"title":"` + l.Title + `"}`), nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) statuses() []Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Status, len(p.events))
	for i, e := range p.events {
		out[i] = e.Status
	}
	return out
}

func listing(title, company string) model.Listing {
	return model.Listing{Title: title, Company: company, Location: "深圳", SourcePlatform: "test"}
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
