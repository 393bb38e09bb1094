package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/raine/snapshelf/internal/storage"
)

type updateQuantityRequest struct {
	Quantity *float64 `json:"quantity"`
}

func (h *Handler) listInventory(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.ListInventory(ownerFromContext(r.Context()))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if items == nil {
		items = []storage.InventoryItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) getInventoryItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.store.GetInventoryItem(ownerFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if item == nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Inventory item not found")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) updateInventoryQuantity(w http.ResponseWriter, r *http.Request) {
	var req updateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json body")
		return
	}
	if req.Quantity == nil || *req.Quantity <= 0 {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "quantity must be greater than 0")
		return
	}

	item, err := h.store.UpdateInventoryQuantity(ownerFromContext(r.Context()), chi.URLParam(r, "id"), *req.Quantity)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) deleteInventoryItem(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteInventoryItem(ownerFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
