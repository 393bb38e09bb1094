// Package api exposes the ingestion pipeline, drafts and inventory over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/raine/snapshelf/internal/ingest"
	"github.com/raine/snapshelf/internal/storage"
)

// DefaultMaxImageBytes caps the size of an uploaded photo.
const DefaultMaxImageBytes = 10 << 20

// Ingester runs the photo ingestion pipeline.
type Ingester interface {
	IngestFromImage(ctx context.Context, image []byte, storageLocation string) (*ingest.Result, error)
}

// Store is the persistence the HTTP API needs.
type Store interface {
	CreateDrafts(drafts []storage.Draft) ([]storage.Draft, error)
	ListDrafts(ownerID string) ([]storage.Draft, error)
	UpdateDraft(ownerID, id string, patch storage.DraftPatch) (*storage.Draft, error)
	DeleteDraft(ownerID, id string) error
	ConfirmDraft(ownerID, id string) (*storage.InventoryItem, error)

	ListInventory(ownerID string) ([]storage.InventoryItem, error)
	GetInventoryItem(ownerID, id string) (*storage.InventoryItem, error)
	UpdateInventoryQuantity(ownerID, id string, quantity float64) (*storage.InventoryItem, error)
	DeleteInventoryItem(ownerID, id string) error
}

// Handler holds the dependencies of the HTTP handlers.
type Handler struct {
	ingester      Ingester
	store         Store
	verifier      *TokenVerifier
	detectedBy    string
	maxImageBytes int64
}

// NewHandler creates a Handler. detectedBy names the vision model in draft
// notes.
func NewHandler(ingester Ingester, store Store, verifier *TokenVerifier, detectedBy string) *Handler {
	return &Handler{
		ingester:      ingester,
		store:         store,
		verifier:      verifier,
		detectedBy:    detectedBy,
		maxImageBytes: DefaultMaxImageBytes,
	}
}

// WithMaxImageBytes sets the upload size limit.
func (h *Handler) WithMaxImageBytes(n int64) *Handler {
	if n > 0 {
		h.maxImageBytes = n
	}
	return h
}

// NewRouter builds the HTTP routes.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(h.authMiddleware)

		r.Post("/ingest/image", h.ingestImage)

		r.Route("/drafts", func(r chi.Router) {
			r.Get("/", h.listDrafts)
			r.Patch("/{id}", h.updateDraft)
			r.Delete("/{id}", h.deleteDraft)
			r.Post("/{id}/confirm", h.confirmDraft)
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Get("/", h.listInventory)
			r.Get("/{id}", h.getInventoryItem)
			r.Patch("/{id}/quantity", h.updateInventoryQuantity)
			r.Delete("/{id}", h.deleteInventoryItem)
		})
	})

	return r
}
