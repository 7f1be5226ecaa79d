package server

import (
	"encoding/json"
	"net/http"

	"ClipForge/cache"
	"ClipForge/config"
	"ClipForge/logger"
	"ClipForge/model"
	"ClipForge/repository"
)

// APIHandler handles all API requests.
type APIHandler struct {
	files   cache.FileCache
	jobRepo repository.JobRepository
	cfg     *config.Config
}

// NewAPIHandler creates a new API handler.
func NewAPIHandler(files cache.FileCache, jobRepo repository.JobRepository, cfg *config.Config) *APIHandler {
	return &APIHandler{
		files:   files,
		jobRepo: jobRepo,
		cfg:     cfg,
	}
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("failed to encode response", logger.ErrorField(err))
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// HealthHandler reports liveness.
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListJobsHandler returns the most recent export jobs.
func (h *APIHandler) ListJobsHandler(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.jobRepo.ListRecentJobs(r.Context(), 50)
	if err != nil {
		logger.Error("failed to list export jobs", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to list export jobs")
		return
	}
	if jobs == nil {
		jobs = []*model.ExportJob{}
	}
	respondJSON(w, http.StatusOK, jobs)
}
