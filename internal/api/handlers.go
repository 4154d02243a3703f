package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/internal/jobs"
	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/internal/scraper"
)

// Defaults fill in fields a run request leaves empty.
type Defaults struct {
	Queries  []string
	Sites    []string
	MaxPages int
}

type Handlers struct {
	jobs     *jobs.Manager
	defaults Defaults
	logger   *slog.Logger
}

func NewHandlers(jobs *jobs.Manager, defaults Defaults, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		jobs:     jobs,
		defaults: defaults,
		logger:   logger.With("component", "api"),
	}
}

type CreateRunRequest struct {
	Queries  []string `json:"queries"`
	Sites    []string `json:"sites"`
	MaxPages int      `json:"max_pages"`
}

type CreateRunResponse struct {
	RunID   string      `json:"run_id"`
	Status  jobs.Status `json:"status"`
	Message string      `json:"message"`
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CreateRun queues a new scrape run.
func (h *Handlers) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	queries := compact(req.Queries)
	if len(queries) == 0 {
		queries = h.defaults.Queries
	}
	if len(queries) == 0 {
		h.respondError(w, http.StatusBadRequest, "at least one query is required")
		return
	}

	sites := compact(req.Sites)
	if len(sites) == 0 {
		sites = h.defaults.Sites
	}
	for _, site := range sites {
		if !scraper.IsKnownSite(site) {
			h.respondError(w, http.StatusBadRequest, "unknown site: "+site)
			return
		}
	}

	if req.MaxPages <= 0 {
		req.MaxPages = h.defaults.MaxPages
	}
	if req.MaxPages <= 0 {
		req.MaxPages = 1
	}

	run, err := h.jobs.Submit(queries, sites, req.MaxPages)
	if err != nil {
		if errors.Is(err, jobs.ErrQueueFull) {
			h.respondError(w, http.StatusServiceUnavailable, "run queue is full")
			return
		}
		h.logger.Error("failed to submit run", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to submit run")
		return
	}

	h.respondJSON(w, http.StatusAccepted, CreateRunResponse{
		RunID:   run.ID,
		Status:  run.Status,
		Message: "Run queued",
	})
}

func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	if runID == "" {
		h.respondError(w, http.StatusBadRequest, "run ID is required")
		return
	}

	run, err := h.jobs.Get(runID)
	if err != nil {
		h.respondError(w, http.StatusNotFound, "run not found")
		return
	}

	h.respondJSON(w, http.StatusOK, run)
}

func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.jobs.List())
}

func (h *Handlers) GetRunRecords(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	if runID == "" {
		h.respondError(w, http.StatusBadRequest, "run ID is required")
		return
	}

	records, err := h.jobs.Records(runID)
	if err != nil {
		h.respondError(w, http.StatusNotFound, "run not found")
		return
	}

	h.respondJSON(w, http.StatusOK, records)
}

func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.jobs.Stats())
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

func compact(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
