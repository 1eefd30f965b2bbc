package api

import (
	"net/http"

	"github.com/dom/tft-catalog/internal/api/handlers"
	"github.com/dom/tft-catalog/internal/api/middleware"
	"github.com/dom/tft-catalog/internal/cache"
	"github.com/dom/tft-catalog/internal/domain"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

func NewRouter(caches map[domain.Kind]*cache.CatalogCache) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.CORS())

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	readers := make(map[domain.Kind]handlers.CatalogReader, len(caches))
	for kind, c := range caches {
		readers[kind] = c
	}
	catalogHandler := handlers.NewCatalogHandler(readers)

	r.Route("/api", func(r chi.Router) {
		r.Get("/champions", catalogHandler.List(domain.KindChampion))
		r.Get("/items", catalogHandler.List(domain.KindItem))
	})

	return r
}
