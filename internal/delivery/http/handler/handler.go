package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/user/photo-gallery/internal/delivery/http/request"
	"github.com/user/photo-gallery/internal/delivery/http/response"
	"github.com/user/photo-gallery/internal/entity"
	"github.com/user/photo-gallery/internal/repository"
	"github.com/user/photo-gallery/internal/usecase"
)

const (
	maxBodyBytes     = 1 << 20
	defaultRunsLimit = 20
	maxRunsLimit     = 200
)

// Pinger reports whether a backing service is reachable.
type Pinger func(ctx context.Context) error

type Handler struct {
	generator usecase.GalleryGenerator
	selector  usecase.Selector
	runs      repository.RunRepository
	defaults  entity.GalleryConfig
	pingers   map[string]Pinger
	logger    *zap.Logger
}

// NewHandler creates the HTTP handlers. defaults holds the configured gallery
// options that requests may override; pingers feed the health check.
func NewHandler(
	generator usecase.GalleryGenerator,
	selector usecase.Selector,
	runs repository.RunRepository,
	defaults entity.GalleryConfig,
	pingers map[string]Pinger,
	logger *zap.Logger,
) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		generator: generator,
		selector:  selector,
		runs:      runs,
		defaults:  defaults,
		pingers:   pingers,
		logger:    logger,
	}
}

// HandleGenerate runs a generation synchronously and returns its outcome.
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var req request.GenerateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	candidates := req.Files
	if req.Directory != "" {
		found, err := h.selector.CollectDirectory(req.Directory)
		if err != nil {
			h.writeJSONError(w, "Cannot read directory: "+req.Directory, http.StatusBadRequest)
			return
		}
		candidates = append(candidates, found...)
	}

	descriptors, err := h.selector.Select(r.Context(), candidates)
	if err != nil {
		if errors.Is(err, usecase.ErrNoFilesSelected) {
			h.writeJSONError(w, usecase.MsgNoFilesSelected, http.StatusBadRequest)
			return
		}
		h.logger.Error("Failed to resolve selection", zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	cfg := req.Settings.Apply(h.defaults)
	if _, err := cfg.Normalize(); err != nil {
		h.writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	outcome := h.generator.Generate(r.Context(), descriptors, cfg, nil)

	status := http.StatusCreated
	if !outcome.Succeeded() {
		status = http.StatusUnprocessableEntity
	}
	h.writeJSON(w, status, response.FromOutcome(outcome))
}

func (h *Handler) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.writeJSONError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxRunsLimit)
	}

	runs, err := h.runs.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list runs", zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	resp := response.RunListResponse{Runs: make([]response.RunResponse, 0, len(runs))}
	for _, run := range runs {
		resp.Runs = append(resp.Runs, response.FromRun(run))
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := h.runs.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrRunNotFound) {
			h.writeJSONError(w, "Run not found", http.StatusNotFound)
			return
		}
		h.logger.Error("Failed to get run", zap.String("id", id), zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, response.FromRun(run))
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	healthStatus := map[string]string{"status": "ok"}
	healthy := true
	for name, ping := range h.pingers {
		if err := ping(ctx); err != nil {
			healthStatus[name] = "unhealthy"
			healthy = false
			h.logger.Error("Health check failed", zap.String("service", name), zap.Error(err))
			continue
		}
		healthStatus[name] = "healthy"
	}

	if !healthy {
		healthStatus["status"] = "degraded"
		h.writeJSON(w, http.StatusServiceUnavailable, healthStatus)
		return
	}
	h.writeJSON(w, http.StatusOK, healthStatus)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to write JSON response", zap.Error(err))
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
