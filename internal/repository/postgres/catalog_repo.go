package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dom/tft-catalog/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type catalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) *catalogRepository {
	return &catalogRepository{db: db}
}

// UpsertMany inserts or updates entries. When the same kind and id appear more
// than once the last entry wins, since one insert cannot touch a row twice.
func (r *catalogRepository) UpsertMany(ctx context.Context, entries []*domain.CatalogEntry) error {
	entries = lastPerKey(entries)
	if len(entries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "kind"}, {Name: "id"}},
		UpdateAll: true,
	}).CreateInBatches(entries, 200).Error
}

// ReplaceKind swaps every row of one kind for entries in a single transaction,
// so ids dropped upstream disappear from the mirror too.
func (r *catalogRepository) ReplaceKind(ctx context.Context, kind domain.Kind, entries []*domain.CatalogEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("kind = ?", kind).Delete(&domain.CatalogEntry{}).Error; err != nil {
			return err
		}
		return NewCatalogRepository(tx).UpsertMany(ctx, entries)
	})
}

func lastPerKey(entries []*domain.CatalogEntry) []*domain.CatalogEntry {
	type key struct {
		kind domain.Kind
		id   string
	}
	index := make(map[key]int, len(entries))
	out := make([]*domain.CatalogEntry, 0, len(entries))
	for _, e := range entries {
		k := key{e.Kind, e.ID}
		if i, ok := index[k]; ok {
			out[i] = e
			continue
		}
		index[k] = len(out)
		out = append(out, e)
	}
	return out
}

func (r *catalogRepository) GetAll(ctx context.Context, kind domain.Kind) ([]*domain.CatalogEntry, error) {
	var entries []*domain.CatalogEntry
	err := r.db.WithContext(ctx).Where("kind = ?", kind).Order("position ASC").Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *catalogRepository) GetByID(ctx context.Context, kind domain.Kind, id string) (*domain.CatalogEntry, error) {
	var entry domain.CatalogEntry
	err := r.db.WithContext(ctx).First(&entry, "kind = ? AND id = ?", kind, id).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// CatalogSource serves one kind of the mirror as a catalog, in upstream order.
type CatalogSource struct {
	repo *catalogRepository
	kind domain.Kind
}

func NewCatalogSource(db *gorm.DB, kind domain.Kind) *CatalogSource {
	return &CatalogSource{repo: NewCatalogRepository(db), kind: kind}
}

func (s *CatalogSource) Load(ctx context.Context) (domain.Catalog, error) {
	entries, err := s.repo.GetAll(ctx, s.kind)
	if err != nil {
		return nil, fmt.Errorf("load %s mirror: %w", s.kind, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no %s rows in mirror", domain.ErrCatalogNotFound, s.kind)
	}

	catalog := make(domain.Catalog, 0, len(entries))
	for _, e := range entries {
		var record domain.Record
		if err := json.Unmarshal(e.Data, &record); err != nil {
			return nil, fmt.Errorf("%w: %s %s: %w", domain.ErrParse, s.kind, e.ID, err)
		}
		catalog = append(catalog, record)
	}
	return catalog, nil
}
