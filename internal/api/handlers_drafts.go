package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/raine/snapshelf/internal/food"
	"github.com/raine/snapshelf/internal/storage"
)

type updateDraftRequest struct {
	Name           *string  `json:"name"`
	Quantity       *float64 `json:"quantity"`
	Unit           *string  `json:"unit"`
	ExpirationDate *string  `json:"expiration_date"`
	Category       *string  `json:"category"`
	Location       *string  `json:"location"`
	Notes          *string  `json:"notes"`
}

// toPatch validates the request and normalizes vocabulary fields.
func (req updateDraftRequest) toPatch() (storage.DraftPatch, error) {
	patch := storage.DraftPatch{
		Quantity: req.Quantity,
		Location: req.Location,
		Notes:    req.Notes,
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return patch, fmt.Errorf("name must not be empty")
		}
		patch.Name = &name
	}
	if req.Quantity != nil && *req.Quantity < 0 {
		return patch, fmt.Errorf("quantity must not be negative")
	}
	if req.Unit != nil {
		unit := food.NormalizeUnit(*req.Unit)
		if unit == "" && strings.TrimSpace(*req.Unit) != "" {
			return patch, fmt.Errorf("unknown unit %q", *req.Unit)
		}
		u := string(unit)
		patch.Unit = &u
	}
	if req.Category != nil {
		c := string(food.NormalizeCategory(*req.Category))
		patch.Category = &c
	}
	if req.ExpirationDate != nil {
		t, err := time.Parse(storage.DateLayout, *req.ExpirationDate)
		if err != nil {
			return patch, fmt.Errorf("expiration_date must be YYYY-MM-DD")
		}
		patch.ExpirationDate = &t
	}

	return patch, nil
}

func (h *Handler) listDrafts(w http.ResponseWriter, r *http.Request) {
	drafts, err := h.store.ListDrafts(ownerFromContext(r.Context()))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if drafts == nil {
		drafts = []storage.Draft{}
	}
	writeJSON(w, http.StatusOK, drafts)
}

func (h *Handler) updateDraft(w http.ResponseWriter, r *http.Request) {
	var req updateDraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json body")
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	draft, err := h.store.UpdateDraft(ownerFromContext(r.Context()), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

func (h *Handler) deleteDraft(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteDraft(ownerFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) confirmDraft(w http.ResponseWriter, r *http.Request) {
	item, err := h.store.ConfirmDraft(ownerFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}
