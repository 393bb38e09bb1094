package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/raine/snapshelf/internal/ingest"
	"github.com/rs/zerolog/log"
)

const invalidFileTypeMessage = "Invalid file type. Please upload an image (JPEG, PNG, etc.)"

func (h *Handler) ingestImage(w http.ResponseWriter, r *http.Request) {
	ownerID := ownerFromContext(r.Context())

	// Leave room for the multipart framing and the other form fields.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxImageBytes+1<<20)
	if err := r.ParseMultipartForm(h.maxImageBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "IMAGE_TOO_LARGE", "image is too large")
			return
		}
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "image file is required")
		return
	}
	defer file.Close()

	if !strings.HasPrefix(header.Header.Get("Content-Type"), "image/") {
		writeError(w, http.StatusBadRequest, "INVALID_FILE_TYPE", invalidFileTypeMessage)
		return
	}

	image, err := io.ReadAll(io.LimitReader(file, h.maxImageBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", fmt.Sprintf("Failed to read image file: %v", err))
		return
	}
	if int64(len(image)) > h.maxImageBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "IMAGE_TOO_LARGE", "image is too large")
		return
	}

	location := strings.TrimSpace(r.FormValue("storage_location"))
	if location == "" {
		location = ingest.DefaultStorageLocation
	}

	result, err := h.ingester.IngestFromImage(r.Context(), image, location)
	if err != nil {
		log.Error().Err(err).Str("ownerId", ownerID).Msg("image ingestion failed")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to predict expiry dates")
		return
	}
	if !result.Success {
		msg := result.ErrorMessage
		if msg == "" {
			msg = "Failed to process image"
		}
		writeError(w, http.StatusBadRequest, "INGESTION_FAILED", msg)
		return
	}

	drafts, err := h.store.CreateDrafts(ingest.BuildDrafts(ownerID, location, h.detectedBy, result.Items))
	if err != nil {
		writeStoreError(w, err)
		return
	}

	log.Info().Str("ownerId", ownerID).Int("draftCount", len(drafts)).Msg("drafts created from image")
	writeJSON(w, http.StatusCreated, drafts)
}
