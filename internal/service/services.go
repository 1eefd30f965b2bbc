package service

import (
	"github.com/dom/tft-catalog/internal/config"
	"github.com/dom/tft-catalog/internal/domain"
	"github.com/dom/tft-catalog/internal/repository"
	"github.com/dom/tft-catalog/internal/repository/file"
)

type Services struct {
	Catalog *CatalogService
	Refresh *RefreshService
}

// NewServices wires the pipeline. repos may be nil when no database is set up.
func NewServices(repos *repository.Repositories, cfg *config.Config) *Services {
	policy := domain.PolicyLogAndContinue
	if cfg.RefreshStrict {
		policy = domain.PolicyFail
	}

	var mirror repository.CatalogRepository
	if repos != nil {
		mirror = repos.Catalog
	}

	catalog := NewCatalogService(cfg)
	return &Services{
		Catalog: catalog,
		Refresh: NewRefreshService(catalog, file.Persister{Policy: policy}, mirror, cfg, policy),
	}
}
