package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/dom/tft-catalog/internal/config"
	"github.com/dom/tft-catalog/internal/domain"
	"github.com/dom/tft-catalog/internal/repository"
	"github.com/google/uuid"
)

type CatalogPersister interface {
	Persist(catalog domain.Catalog, path string) error
}

// RefreshService runs fetch → persist → mirror for each kind, one after the
// other. The first fetch failure ends the run. Persist and mirror failures end
// it only under PolicyFail.
type RefreshService struct {
	catalogs  *CatalogService
	persister CatalogPersister
	mirror    repository.CatalogRepository
	cfg       *config.Config
	policy    domain.ErrorPolicy
}

// NewRefreshService builds a refresh. mirror may be nil.
func NewRefreshService(catalogs *CatalogService, persister CatalogPersister, mirror repository.CatalogRepository, cfg *config.Config, policy domain.ErrorPolicy) *RefreshService {
	return &RefreshService{
		catalogs:  catalogs,
		persister: persister,
		mirror:    mirror,
		cfg:       cfg,
		policy:    policy,
	}
}

type RefreshResult struct {
	RunID   uuid.UUID
	Version string
	Counts  map[domain.Kind]int
}

// Run refreshes the given kinds, or all of them when none are given. Under
// PolicyLogAndContinue a failure is logged and Run still returns nil.
func (s *RefreshService) Run(ctx context.Context, kinds ...domain.Kind) (*RefreshResult, error) {
	kinds = inRefreshOrder(kinds)

	result := &RefreshResult{
		RunID:  uuid.New(),
		Counts: make(map[domain.Kind]int, len(kinds)),
	}

	if err := s.run(ctx, result, kinds); err != nil {
		log.Printf("ERROR [refresh.Run] run=%s: Error fetching data: %v", result.RunID, err)
		if s.policy == domain.PolicyFail {
			return result, err
		}
	}

	return result, nil
}

func (s *RefreshService) run(ctx context.Context, result *RefreshResult, kinds []domain.Kind) error {
	version, err := s.catalogs.ResolveVersion(ctx)
	if err != nil {
		return fmt.Errorf("resolve version: %w", err)
	}
	result.Version = version
	log.Printf("Refreshing catalogs run=%s version=%s", result.RunID, version)

	for _, kind := range kinds {
		catalog, err := s.catalogs.FetchKind(ctx, version, kind)
		if err != nil {
			return err
		}
		log.Printf("Fetched %s names", kind)
		result.Counts[kind] = len(catalog)

		if err := s.persister.Persist(catalog, s.cfg.OutputPath(kind)); err != nil {
			return err
		}

		if s.mirror != nil {
			if err := s.mirrorCatalog(ctx, result, kind, catalog); err != nil {
				log.Printf("ERROR [refresh.mirror] run=%s kind=%s: %v", result.RunID, kind, err)
				if s.policy == domain.PolicyFail {
					return err
				}
			}
		}
	}

	return nil
}

func (s *RefreshService) mirrorCatalog(ctx context.Context, result *RefreshResult, kind domain.Kind, catalog domain.Catalog) error {
	now := time.Now()
	entries := make([]*domain.CatalogEntry, 0, len(catalog))
	for i, record := range catalog {
		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", kind, record.ID(), err)
		}
		entries = append(entries, &domain.CatalogEntry{
			Kind:         kind,
			ID:           record.ID(),
			Name:         record.Name(),
			Position:     i,
			Data:         data,
			Version:      result.Version,
			SyncRunID:    result.RunID,
			LastSyncedAt: now,
		})
	}

	if err := s.mirror.ReplaceKind(ctx, kind, entries); err != nil {
		return fmt.Errorf("mirror %s catalog: %w", kind, err)
	}
	log.Printf("Mirrored %d %s records", len(entries), kind)
	return nil
}

// inRefreshOrder returns the requested kinds once each, champions before
// items. No kinds means all of them.
func inRefreshOrder(kinds []domain.Kind) []domain.Kind {
	if len(kinds) == 0 {
		return domain.Kinds
	}
	requested := make(map[domain.Kind]bool, len(kinds))
	for _, kind := range kinds {
		requested[kind] = true
	}
	ordered := make([]domain.Kind, 0, len(requested))
	for _, kind := range domain.Kinds {
		if requested[kind] {
			ordered = append(ordered, kind)
		}
	}
	return ordered
}
