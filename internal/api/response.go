package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/raine/snapshelf/internal/storage"
	"github.com/rs/zerolog/log"
)

type errorPayload struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Missing []string `json:"missing,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: errorPayload{Code: code, Message: message}})
}

// writeStoreError maps storage errors to responses in one place.
func writeStoreError(w http.ResponseWriter, err error) {
	var incomplete *storage.IncompleteDraftError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "resource not found")
	case errors.As(err, &incomplete):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: errorPayload{
			Code:    "INCOMPLETE_DRAFT",
			Message: incomplete.Error(),
			Missing: incomplete.Missing,
		}})
	default:
		log.Error().Err(err).Msg("storage error")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}
