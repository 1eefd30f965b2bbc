package repository

import (
	"context"

	"github.com/dom/tft-catalog/internal/domain"
)

type CatalogRepository interface {
	UpsertMany(ctx context.Context, entries []*domain.CatalogEntry) error
	ReplaceKind(ctx context.Context, kind domain.Kind, entries []*domain.CatalogEntry) error
	GetAll(ctx context.Context, kind domain.Kind) ([]*domain.CatalogEntry, error)
	GetByID(ctx context.Context, kind domain.Kind, id string) (*domain.CatalogEntry, error)
}

// A nil *Repositories means no database is configured.
type Repositories struct {
	Catalog CatalogRepository
}
