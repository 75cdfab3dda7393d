package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"jobmate/jobsearch-service/internal/model"
)

// DefaultMaxResults applies when a request body omits max_results.
const DefaultMaxResults = 20

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// QueryStore is the read/admin side of the store used by the HTTP API.
type QueryStore interface {
	GetTask(ctx context.Context, id string) (*Task, error)
	ListTasks(ctx context.Context, limit int) ([]Task, error)
	ListTaskJobs(ctx context.Context, taskID string) ([]CrawledJob, error)
	ListCrawledJobs(ctx context.Context, f JobFilter) ([]CrawledJob, error)
	DeleteCrawledJob(ctx context.Context, id string) error
	CreateWatch(ctx context.Context, w model.Watch) (*model.Watch, error)
	ListWatches(ctx context.Context) ([]model.Watch, error)
	DeactivateWatch(ctx context.Context, id string) error
}

// Handler exposes search tasks over HTTP.
type Handler struct {
	store  QueryStore
	runner *Runner
	search Searcher
	log    *zap.Logger
}

// NewHandler returns a configured Handler.
func NewHandler(store QueryStore, runner *Runner, search Searcher, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{store: store, runner: runner, search: search, log: log.Named("http")}
}

// RegisterRoutes mounts every search route on mux.
//
//	POST   /searches             → start a background search task (202)
//	GET    /searches             → recent tasks (?limit=)
//	GET    /searches/{id}        → one task
//	GET    /searches/{id}/jobs   → listings saved by a task
//	POST   /jobs/search          → run the pipeline synchronously, nothing persisted
//	GET    /crawled-jobs         → stored listings (?keyword=&location=&limit=)
//	DELETE /crawled-jobs/{id}    → remove a stored listing
//	POST   /watches              → save a search re-run by the scheduler
//	GET    /watches              → all watches
//	DELETE /watches/{id}         → deactivate a watch
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /searches", h.startSearch)
	mux.HandleFunc("GET /searches", h.listTasks)
	mux.HandleFunc("GET /searches/{id}", h.getTask)
	mux.HandleFunc("GET /searches/{id}/jobs", h.taskJobs)
	mux.HandleFunc("POST /jobs/search", h.searchNow)
	mux.HandleFunc("GET /crawled-jobs", h.listCrawledJobs)
	mux.HandleFunc("DELETE /crawled-jobs/{id}", h.deleteCrawledJob)
	mux.HandleFunc("POST /watches", h.createWatch)
	mux.HandleFunc("GET /watches", h.listWatches)
	mux.HandleFunc("DELETE /watches/{id}", h.deactivateWatch)
}

// ─── Searches ────────────────────────────────────────────────────────────────

func (h *Handler) startSearch(w http.ResponseWriter, r *http.Request) {
	q, ok := decodeQuery(w, r)
	if !ok {
		return
	}
	t, err := h.runner.Start(r.Context(), q)
	if err != nil {
		h.fail(w, "startSearch", err)
		return
	}
	writeJSON(w, http.StatusAccepted, t)
}

func (h *Handler) listTasks(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(w, r)
	if !ok {
		return
	}
	list, err := h.store.ListTasks(r.Context(), limit)
	if err != nil {
		h.fail(w, "listTasks", err)
		return
	}
	jsonOK(w, list)
}

func (h *Handler) getTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	t, err := h.store.GetTask(r.Context(), id)
	if err != nil {
		h.fail(w, "getTask", err)
		return
	}
	jsonOK(w, t)
}

func (h *Handler) taskJobs(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if _, err := h.store.GetTask(r.Context(), id); err != nil {
		h.fail(w, "taskJobs", err)
		return
	}
	jobs, err := h.store.ListTaskJobs(r.Context(), id)
	if err != nil {
		h.fail(w, "taskJobs", err)
		return
	}
	jsonOK(w, jobs)
}

func (h *Handler) searchNow(w http.ResponseWriter, r *http.Request) {
	q, ok := decodeQuery(w, r)
	if !ok {
		return
	}
	listings, err := h.search.Search(r.Context(), q)
	if err != nil {
		h.fail(w, "searchNow", err)
		return
	}
	jsonOK(w, map[string]any{"total": len(listings), "jobs": nonNilListings(listings)})
}

// ─── Crawled jobs ────────────────────────────────────────────────────────────

func (h *Handler) listCrawledJobs(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(w, r)
	if !ok {
		return
	}
	jobs, err := h.store.ListCrawledJobs(r.Context(), JobFilter{
		Keyword:  r.URL.Query().Get("keyword"),
		Location: r.URL.Query().Get("location"),
		Limit:    limit,
	})
	if err != nil {
		h.fail(w, "listCrawledJobs", err)
		return
	}
	jsonOK(w, jobs)
}

func (h *Handler) deleteCrawledJob(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.store.DeleteCrawledJob(r.Context(), id); err != nil {
		h.fail(w, "deleteCrawledJob", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ─── Watches ─────────────────────────────────────────────────────────────────

func (h *Handler) createWatch(w http.ResponseWriter, r *http.Request) {
	var body model.Watch
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if body.MaxResults < 0 {
		h.fail(w, "createWatch", &ValidationError{Msg: "max_results must not be negative"})
		return
	}
	if body.MaxResults == 0 {
		body.MaxResults = DefaultWatchResults
	}
	queries := WatchQueries(body)
	if len(queries) == 0 {
		h.fail(w, "createWatch", &ValidationError{Msg: "keywords must contain at least one non-blank keyword"})
		return
	}
	for _, q := range queries {
		if err := q.Validate(); err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	created, err := h.store.CreateWatch(r.Context(), body)
	if err != nil {
		h.fail(w, "createWatch", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) listWatches(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.ListWatches(r.Context())
	if err != nil {
		h.fail(w, "listWatches", err)
		return
	}
	jsonOK(w, list)
}

func (h *Handler) deactivateWatch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.store.DeactivateWatch(r.Context(), id); err != nil {
		h.fail(w, "deactivateWatch", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	var verr *ValidationError
	switch {
	case errors.Is(err, model.ErrInvalidQuery), errors.As(err, &verr):
		jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		jsonError(w, "not found", http.StatusNotFound)
	case errors.Is(err, context.Canceled):
		jsonError(w, "request cancelled", http.StatusServiceUnavailable)
	default:
		h.log.Error(op+" failed", zap.Error(err))
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}

func decodeQuery(w http.ResponseWriter, r *http.Request) (model.SearchQuery, bool) {
	var q model.SearchQuery
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&q); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return q, false
	}
	if q.MaxResults == 0 {
		q.MaxResults = DefaultMaxResults
	}
	return q, true
}

func pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		jsonError(w, "id must be a UUID", http.StatusBadRequest)
		return "", false
	}
	return id, true
}

func queryLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		jsonError(w, "limit must be a positive integer", http.StatusBadRequest)
		return 0, false
	}
	return n, true
}

func nonNilListings(l []model.Listing) []model.Listing {
	if l == nil {
		return []model.Listing{}
	}
	return l
}

func jsonOK(w http.ResponseWriter, v any) {
	writeJSON(w, http.StatusOK, v)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
