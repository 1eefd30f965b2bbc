package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dom/tft-catalog/internal/api"
	"github.com/dom/tft-catalog/internal/cache"
	"github.com/dom/tft-catalog/internal/config"
	"github.com/dom/tft-catalog/internal/domain"
	"github.com/dom/tft-catalog/internal/repository/file"
	"github.com/dom/tft-catalog/internal/repository/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Initialize catalog sources
	sources := make(map[domain.Kind]cache.Source, len(domain.Kinds))
	switch cfg.CacheSource {
	case config.CacheSourcePostgres:
		db, err := postgres.NewConnection(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("failed to connect to database: %v", err)
		}
		for _, kind := range domain.Kinds {
			sources[kind] = postgres.NewCatalogSource(db, kind)
		}
	default:
		for _, kind := range domain.Kinds {
			sources[kind] = file.NewCatalogFile(cfg.OutputPath(kind))
		}
	}

	// Initialize caches
	caches := make(map[domain.Kind]*cache.CatalogCache, len(sources))
	for kind, src := range sources {
		caches[kind] = cache.New(src, cfg.CacheTTL)
	}

	router := api.NewRouter(caches)

	// Create server
	srv := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on port %s (source=%s, ttl=%s)", cfg.Port, cfg.CacheSource, cfg.CacheTTL)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	// SIGHUP drops the caches so a fresh refresh is picked up without waiting
	// for the TTL; SIGINT/SIGTERM shut down.
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	for sig := range signals {
		if sig != syscall.SIGHUP {
			break
		}
		for _, c := range caches {
			c.Invalidate()
		}
		log.Println("Catalog caches invalidated")
	}

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
