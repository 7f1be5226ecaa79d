package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"ClipForge/cache"
	"ClipForge/core/smf"
	"ClipForge/logger"
	"ClipForge/model"
	"ClipForge/storage"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// UploadFileHandler accepts a multipart .mid upload, decodes it, caches
// the parsed result under a fresh file ID and returns the track summary
// the mapping UI needs.
//
// Expected multipart form field:
// - file: the Standard MIDI File (format 0 or 1)
func (h *APIHandler) UploadFileHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.cfg.MaxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse multipart form: %v", err))
		return
	}

	upload, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing 'file' in form")
		return
	}
	defer upload.Close()

	data, err := io.ReadAll(upload)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	parsed, err := smf.Decode(header.Filename, data)
	if err != nil {
		var decErr *smf.DecodeError
		if errors.As(err, &decErr) {
			logger.Warn("rejected undecodable upload",
				logger.String("name", header.Filename),
				logger.ErrorField(err))
			respondError(w, http.StatusUnprocessableEntity, decErr.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "decode failed")
		return
	}

	fileID := uuid.NewString()
	if err := h.files.Put(r.Context(), fileID, parsed); err != nil {
		logger.Error("failed to cache parsed file", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to store parsed file")
		return
	}

	// Keep the original bytes when archival storage is configured.
	if storage.GetMinioClient() != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()
		key := storage.UploadObjectKey(fileID, header.Filename)
		if err := storage.PutBytes(ctx, h.cfg.MinioBucket, key, data, "audio/midi"); err != nil {
			// Archival is best-effort; the session cache already has the file.
			logger.Warn("failed to archive upload", logger.String("key", key), logger.ErrorField(err))
		}
	}

	logger.Info("file uploaded",
		logger.String("fileId", fileID),
		logger.String("name", header.Filename),
		logger.Int("tracks", len(parsed.Tracks)),
		logger.Int("durationTicks", parsed.Duration))

	respondJSON(w, http.StatusCreated, model.SummarizeFile(fileID, parsed))
}

// GetFileHandler returns the summary of a previously uploaded file.
func (h *APIHandler) GetFileHandler(w http.ResponseWriter, r *http.Request) {
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
	respondJSON(w, http.StatusOK, model.SummarizeFile(fileID, parsed))
}
