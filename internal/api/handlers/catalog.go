package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/dom/tft-catalog/internal/domain"
)

// CatalogReader is satisfied by *cache.CatalogCache.
type CatalogReader interface {
	Get(ctx context.Context) (domain.Catalog, error)
}

type CatalogHandler struct {
	readers map[domain.Kind]CatalogReader
}

func NewCatalogHandler(readers map[domain.Kind]CatalogReader) *CatalogHandler {
	return &CatalogHandler{readers: readers}
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// List serves the whole catalog of one kind as a JSON array.
func (h *CatalogHandler) List(kind domain.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reader, ok := h.readers[kind]
		if !ok {
			log.Printf("ERROR [catalog.List] kind=%s: no reader configured", kind)
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "Unknown catalog"})
			return
		}

		catalog, err := reader.Get(r.Context())
		if err != nil {
			log.Printf("ERROR [catalog.List] kind=%s: %v", kind, err)
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Failed to load " + string(kind) + " data"})
			return
		}
		if catalog == nil {
			catalog = domain.Catalog{}
		}

		writeJSON(w, http.StatusOK, catalog)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR [handlers.writeJSON]: %v", err)
	}
}
