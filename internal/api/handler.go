package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/opensource-finance/baobab/internal/catalog"
	"github.com/opensource-finance/baobab/internal/climate"
	"github.com/opensource-finance/baobab/internal/compare"
	"github.com/opensource-finance/baobab/internal/domain"
	"github.com/opensource-finance/baobab/internal/observability"
	"github.com/opensource-finance/baobab/internal/outlook"
	"github.com/opensource-finance/baobab/internal/rules"
	"github.com/opensource-finance/baobab/internal/worker"
)

// Deps are the components served by the API. Repo, Cache, Bus and Metrics
// may be nil; the endpoints that need them then degrade or report 503.
type Deps struct {
	Catalog     *catalog.Catalog
	Projector   *climate.Projector
	Recommender *rules.Engine
	Comparer    *compare.Comparer
	Outlook     *outlook.Processor

	Repo    domain.Repository
	Cache   domain.Cache
	Bus     domain.EventBus
	Metrics *observability.Metrics

	// ResultTTL is how long synchronous comparison results stay cached.
	ResultTTL time.Duration
	Version   string
}

// Handler holds dependencies for API handlers.
type Handler struct {
	Deps
}

// NewHandler creates a new API handler.
func NewHandler(deps Deps) *Handler {
	if deps.ResultTTL <= 0 {
		deps.ResultTTL = time.Hour
	}
	return &Handler{Deps: deps}
}

// CompareResponse is the response for POST /compare.
type CompareResponse struct {
	Result  *domain.ComparisonResult `json:"result"`
	Outlook *outlook.Outlook         `json:"outlook"`
	Cached  bool                     `json:"cached"`
}

// Compare handles POST /compare: cache, comparer, repository, then the bus.
func (h *Handler) Compare(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req domain.ComparisonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	key := req.CacheKey()

	if h.Cache != nil {
		cached, err := h.Cache.GetComparison(ctx, key)
		switch {
		case err != nil:
			slog.Warn("cache lookup failed", "key", key, "error", err)
			h.observeCache("error")
		case cached != nil:
			h.observeCache("hit")
			writeJSON(w, http.StatusOK, CompareResponse{
				Result:  cached,
				Outlook: h.Outlook.Summarize(cached),
				Cached:  true,
			})
			return
		default:
			h.observeCache("miss")
		}
	}

	result, err := h.Comparer.Compare(ctx, req)
	if err != nil {
		writeError(w, err)
		return
	}

	if h.Repo != nil {
		if err := h.Repo.SaveComparison(ctx, result); err != nil {
			slog.Error("failed to save comparison", "comparison_id", result.ID, "error", err)
		}
	}
	if h.Cache != nil {
		if err := h.Cache.SetComparison(ctx, key, result, h.ResultTTL); err != nil {
			slog.Warn("failed to cache comparison", "comparison_id", result.ID, "error", err)
		}
	}

	o := h.Outlook.Summarize(result)
	if h.Bus != nil {
		if err := worker.PublishResult(ctx, h.Bus, h.Metrics, "", result, o); err != nil {
			slog.Error("failed to publish comparison", "comparison_id", result.ID, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, CompareResponse{Result: result, Outlook: o})
}

func (h *Handler) observeCache(result string) {
	if h.Metrics != nil {
		h.Metrics.CacheLookups.WithLabelValues(result).Inc()
	}
}

// SubmitResponse is the response for POST /comparisons.
type SubmitResponse struct {
	JobID    string `json:"jobId"`
	Status   string `json:"status"`
	Location string `json:"location"`
}

// SubmitComparison handles POST /comparisons by queueing a job for the worker.
func (h *Handler) SubmitComparison(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Bus == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "event bus not available",
		})
		return
	}

	var req domain.ComparisonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	req = req.Normalized()
	if len(req.ScenarioIDs) == 0 || len(req.Years) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "scenarios and years are required",
		})
		return
	}

	job := domain.ComparisonJob{
		JobID:   uuid.New().String(),
		TraceID: GetTraceID(ctx),
		Request: req,
	}
	payload, _ := json.Marshal(job)
	if err := h.Bus.Publish(ctx, domain.TopicComparisonRequested, payload); err != nil {
		slog.Error("failed to queue comparison", "job_id", job.JobID, "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "failed to queue comparison",
		})
		return
	}

	writeJSON(w, http.StatusAccepted, SubmitResponse{
		JobID:    job.JobID,
		Status:   "queued",
		Location: "/comparisons/" + job.JobID,
	})
}

// ListComparisons handles GET /comparisons.
func (h *Handler) ListComparisons(w http.ResponseWriter, r *http.Request) {
	if h.Repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	q := r.URL.Query()
	filter := domain.ComparisonFilter{
		RegionID:   q.Get("region"),
		CropID:     q.Get("crop"),
		ScenarioID: q.Get("scenario"),
	}
	if v := q.Get("min_tier"); v != "" {
		tier, err := domain.ParseRiskTier(v)
		if err != nil {
			writeError(w, err)
			return
		}
		filter.MinTier = &tier
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "limit must be a non-negative integer",
			})
			return
		}
		filter.Limit = n
	}

	summaries, err := h.Repo.ListComparisons(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"comparisons": summaries,
		"count":       len(summaries),
	})
}

// GetComparison handles GET /comparisons/{id}.
func (h *Handler) GetComparison(w http.ResponseWriter, r *http.Request) {
	result, ok := h.loadComparison(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetOutlook handles GET /comparisons/{id}/outlook.
func (h *Handler) GetOutlook(w http.ResponseWriter, r *http.Request) {
	result, ok := h.loadComparison(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.Outlook.Summarize(result))
}

func (h *Handler) loadComparison(w http.ResponseWriter, r *http.Request) (*domain.ComparisonResult, bool) {
	if h.Repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return nil, false
	}

	id := chi.URLParam(r, "id")
	result, err := h.Repo.GetComparison(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return result, true
}

// ListScenarios handles GET /scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	scenarios := h.Catalog.ListScenarios()
	writeJSON(w, http.StatusOK, map[string]any{
		"scenarios": scenarios,
		"count":     len(scenarios),
	})
}

// GetScenario handles GET /scenarios/{id}.
func (h *Handler) GetScenario(w http.ResponseWriter, r *http.Request) {
	scenario, err := h.Catalog.GetScenario(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scenario)
}

// ListRegions handles GET /regions.
func (h *Handler) ListRegions(w http.ResponseWriter, r *http.Request) {
	regions := h.Catalog.ListRegions()
	writeJSON(w, http.StatusOK, map[string]any{
		"regions": regions,
		"count":   len(regions),
	})
}

// ListCrops handles GET /crops.
func (h *Handler) ListCrops(w http.ResponseWriter, r *http.Request) {
	crops := h.Catalog.ListCrops()
	writeJSON(w, http.StatusOK, map[string]any{
		"crops": crops,
		"count": len(crops),
	})
}

// Project handles GET /projections?scenario=&region=&year=.
func (h *Handler) Project(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	year, err := strconv.Atoi(q.Get("year"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "year must be an integer",
		})
		return
	}

	projection, err := h.Projector.Project(q.Get("scenario"), q.Get("region"), year)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, projection)
}

// Recommend handles GET /recommendations?scenario=&tier=&crop=.
func (h *Handler) Recommend(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tier, err := domain.ParseRiskTier(q.Get("tier"))
	if err != nil {
		writeError(w, err)
		return
	}

	recs, err := h.Recommender.Recommend(q.Get("scenario"), tier, q.Get("crop"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"recommendations": recs,
		"count":           len(recs),
	})
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status := "healthy"
	checks := map[string]string{}

	check := func(name string, ping func() error) {
		if err := ping(); err != nil {
			checks[name] = err.Error()
			status = "degraded"
			return
		}
		checks[name] = "ok"
	}
	if h.Repo != nil {
		check("repository", func() error { return h.Repo.Ping(ctx) })
	}
	if h.Cache != nil {
		check("cache", func() error { return h.Cache.Ping(ctx) })
	}
	if h.Bus != nil {
		check("eventBus", func() error { return h.Bus.Ping(ctx) })
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  status,
		"version": h.Version,
		"checks":  checks,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ready":           true,
		"scenarios":       len(h.Catalog.ListScenarios()),
		"recommendations": h.Recommender.Count(),
	})
}

// writeError maps domain errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrOutOfRange):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInvalidRequest):
		status = http.StatusBadRequest
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
