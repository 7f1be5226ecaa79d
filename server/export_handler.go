package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"ClipForge/cache"
	"ClipForge/core/export"
	"ClipForge/core/smf"
	"ClipForge/logger"
	"ClipForge/model"
	"ClipForge/storage"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// ExportHandler runs the merge/split/encode pipeline for one uploaded file
// and streams the resulting ZIP. The request body is an export.Request;
// blank clip settings fall back to the configured defaults with the PPQ of
// the source file.
func (h *APIHandler) ExportHandler(w http.ResponseWriter, r *http.Request) {
	fileID := mux.Vars(r)["id"]
	parsed, err := h.files.Get(r.Context(), fileID)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			respondError(w, http.StatusNotFound, "file not found or expired")
			return
		}
		logger.Error("failed to load cached file", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to load file")
		return
	}

	var req export.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if len(req.Outputs) > len(smf.BusIDs) {
		respondError(w, http.StatusBadRequest,
			fmt.Sprintf("at most %d output buses are supported", len(smf.BusIDs)))
		return
	}
	if req.Settings.StepsPerBar == 0 {
		req.Settings.StepsPerBar = h.cfg.ClipStepsPerBar
	}
	if req.Settings.MaxStepsPerClip == 0 {
		req.Settings.MaxStepsPerClip = h.cfg.ClipMaxSteps
	}

	bundle, err := export.Build(parsed, req)
	if err != nil {
		var cfgErr *smf.ConfigError
		switch {
		case errors.As(err, &cfgErr):
			respondError(w, http.StatusBadRequest, cfgErr.Error())
		case errors.Is(err, export.ErrNothingToExport):
			respondError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			logger.Error("export failed", logger.String("fileId", fileID), logger.ErrorField(err))
			respondError(w, http.StatusInternalServerError, "export failed")
		}
		return
	}

	archive, err := bundle.Zip()
	if err != nil {
		logger.Error("failed to build archive", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to build archive")
		return
	}

	jobID := uuid.NewString()
	h.recordJob(r.Context(), jobID, fileID, parsed.Name, req, bundle, archive)

	logger.Info("export finished",
		logger.String("fileId", fileID),
		logger.String("jobId", jobID),
		logger.Int("buses", len(req.Outputs)),
		logger.Int("clips", len(bundle.Files)))

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", parsed.Name+"_clips.zip"))
	w.Header().Set("X-Job-Id", jobID)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(archive); err != nil {
		logger.Error("failed to stream archive", logger.ErrorField(err))
	}
}

// recordJob persists the job row and archives the ZIP; both are
// best-effort and never fail the export the user already has in hand.
func (h *APIHandler) recordJob(ctx context.Context, jobID, fileID, sourceName string,
	req export.Request, bundle *export.Bundle, archive []byte) {

	archivePath := ""
	if storage.GetMinioClient() != nil {
		putCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		key := storage.ExportObjectKey(jobID)
		if err := storage.PutBytes(putCtx, h.cfg.MinioBucket, key, archive, "application/zip"); err != nil {
			logger.Warn("failed to archive export", logger.String("key", key), logger.ErrorField(err))
		} else {
			archivePath = key
		}
	}

	manifestJSON, err := json.Marshal(bundle.Manifest)
	if err != nil {
		logger.Error("failed to marshal manifest", logger.ErrorField(err))
		return
	}
	job := &model.ExportJob{
		JobID:        jobID,
		FileID:       fileID,
		SourceName:   sourceName,
		BusCount:     len(req.Outputs),
		ClipCount:    len(bundle.Files),
		ManifestJSON: string(manifestJSON),
		ArchivePath:  archivePath,
		CreatedAt:    time.Now(),
	}
	if err := h.jobRepo.CreateJob(ctx, job); err != nil {
		logger.Warn("failed to record export job", logger.String("jobId", jobID), logger.ErrorField(err))
	}
}
