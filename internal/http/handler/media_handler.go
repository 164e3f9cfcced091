package handler

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path"

	"github.com/civicworks/civic-api/internal/storage"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// MediaHandler serves uploaded objects from local storage
type MediaHandler struct {
	store  storage.Storage
	logger *zap.Logger
}

func NewMediaHandler(store storage.Storage, logger *zap.Logger) *MediaHandler {
	return &MediaHandler{store: store, logger: logger}
}

// Get godoc
// @Summary Download uploaded media
// @Tags Media
// @Produce octet-stream
// @Param key path string true "Object key"
// @Success 200
// @Failure 404 {object} domain.APIError
// @Router /media/{key} [get]
func (h *MediaHandler) Get(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	if !storage.ValidKey(key) {
		respondWithError(w, http.StatusNotFound, "Media not found")
		return
	}

	reader, err := h.store.Download(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			respondWithError(w, http.StatusNotFound, "Media not found")
			return
		}
		h.logger.Error("failed to read media", zap.Error(err), zap.String("key", key))
		respondWithError(w, http.StatusInternalServerError, "Failed to read media")
		return
	}
	defer reader.Close()

	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = io.Copy(w, reader)
}
