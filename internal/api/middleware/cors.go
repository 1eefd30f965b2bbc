package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS lets the front-end read the catalogs from another origin. The API is
// read-only and unauthenticated, so any origin is allowed.
func CORS() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	})
}
