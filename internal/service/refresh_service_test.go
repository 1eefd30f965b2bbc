package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dom/tft-catalog/internal/config"
	"github.com/dom/tft-catalog/internal/domain"
	"github.com/dom/tft-catalog/internal/repository/file"
	"github.com/dom/tft-catalog/internal/service"
	"github.com/dom/tft-catalog/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedBoth(t *testing.T, upstream *testutil.Upstream) {
	t.Helper()
	seedItems(t, upstream)
	upstream.SetCatalog(t, testutil.TestVersion, "tft-champion.json",
		testutil.NewRecordBuilder("TFT14_Zed").WithTier(5).Build(t),
		testutil.NewRecordBuilder("TFT14_NPC_Minion").Build(t),
		testutil.NewRecordBuilder("TFT14_Ahri").WithTier(2).Build(t),
	)
}

func newRefresh(cfg *config.Config, policy domain.ErrorPolicy, mirror *fakeMirror) *service.RefreshService {
	svc := service.NewCatalogService(cfg)
	if mirror == nil {
		return service.NewRefreshService(svc, file.Persister{Policy: policy}, nil, cfg, policy)
	}
	return service.NewRefreshService(svc, file.Persister{Policy: policy}, mirror, cfg, policy)
}

// fakeMirror records what a refresh mirrors
type fakeMirror struct {
	replaced map[domain.Kind][]*domain.CatalogEntry
	err      error
}

func newFakeMirror() *fakeMirror {
	return &fakeMirror{replaced: make(map[domain.Kind][]*domain.CatalogEntry)}
}

func (m *fakeMirror) UpsertMany(_ context.Context, entries []*domain.CatalogEntry) error {
	return m.err
}

func (m *fakeMirror) ReplaceKind(_ context.Context, kind domain.Kind, entries []*domain.CatalogEntry) error {
	if m.err != nil {
		return m.err
	}
	m.replaced[kind] = entries
	return nil
}

func (m *fakeMirror) GetAll(_ context.Context, kind domain.Kind) ([]*domain.CatalogEntry, error) {
	return m.replaced[kind], nil
}

func (m *fakeMirror) GetByID(_ context.Context, kind domain.Kind, id string) (*domain.CatalogEntry, error) {
	for _, e := range m.replaced[kind] {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, domain.ErrCatalogNotFound
}

func TestRefreshService_Run(t *testing.T) {
	upstream := testutil.NewUpstream(t)
	seedBoth(t, upstream)
	cfg := testutil.TestConfig(upstream.URL(), t.TempDir())

	result, err := newRefresh(cfg, domain.PolicyFail, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, testutil.TestVersion, result.Version)
	assert.Equal(t, 2, result.Counts[domain.KindChampion])
	assert.Equal(t, 3, result.Counts[domain.KindItem])

	champions, err := file.NewCatalogFile(cfg.OutputPath(domain.KindChampion)).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"TFT14_Zed", "TFT14_Ahri"}, champions.IDs())

	items, err := file.NewCatalogFile(cfg.OutputPath(domain.KindItem)).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"TFT_Item_Deathblade", "TFT_Item_BFSword", "TFT_Item_Bloodthirster"}, items.IDs())
	assert.Equal(t, "/images/sprites/champions/Deathblade.webp", testutil.ImageOf(t, items[0]).SpriteURL)
}

func TestRefreshService_Run_OnlyKind(t *testing.T) {
	upstream := testutil.NewUpstream(t)
	seedBoth(t, upstream)
	cfg := testutil.TestConfig(upstream.URL(), t.TempDir())

	result, err := newRefresh(cfg, domain.PolicyFail, nil).Run(context.Background(), domain.KindItem)
	require.NoError(t, err)
	assert.NotContains(t, result.Counts, domain.KindChampion)

	_, err = os.Stat(cfg.OutputPath(domain.KindChampion))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(cfg.OutputPath(domain.KindItem))
	assert.NoError(t, err)
}

func TestRefreshService_Run_FetchFailureStopsChain(t *testing.T) {
	tests := []struct {
		name    string
		policy  domain.ErrorPolicy
		wantErr bool
	}{
		{name: "log and continue", policy: domain.PolicyLogAndContinue, wantErr: false},
		{name: "fail", policy: domain.PolicyFail, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Only items exist upstream, so the champion fetch 404s first
			upstream := testutil.NewUpstream(t)
			seedItems(t, upstream)
			cfg := testutil.TestConfig(upstream.URL(), t.TempDir())

			_, err := newRefresh(cfg, tt.policy, nil).Run(context.Background())
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, domain.ErrServer))
			} else {
				assert.NoError(t, err)
			}

			assert.Equal(t, 0, upstream.Hits(testutil.CatalogPath(testutil.TestVersion, "tft-item.json")),
				"items are not fetched after champions fail")
			_, statErr := os.Stat(cfg.OutputPath(domain.KindItem))
			assert.True(t, os.IsNotExist(statErr))
		})
	}
}

func TestRefreshService_Run_PersistFailure(t *testing.T) {
	tests := []struct {
		name      string
		policy    domain.ErrorPolicy
		wantErr   bool
		itemsHits int
	}{
		{name: "log and continue", policy: domain.PolicyLogAndContinue, wantErr: false, itemsHits: 1},
		{name: "fail", policy: domain.PolicyFail, wantErr: true, itemsHits: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upstream := testutil.NewUpstream(t)
			seedBoth(t, upstream)

			// A regular file where the data directory should be
			blocker := filepath.Join(t.TempDir(), "data")
			require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
			cfg := testutil.TestConfig(upstream.URL(), blocker)

			_, err := newRefresh(cfg, tt.policy, nil).Run(context.Background())
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, domain.ErrFileIO))
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.itemsHits, upstream.Hits(testutil.CatalogPath(testutil.TestVersion, "tft-item.json")))
		})
	}
}

func TestRefreshService_Run_Mirror(t *testing.T) {
	upstream := testutil.NewUpstream(t)
	seedBoth(t, upstream)
	cfg := testutil.TestConfig(upstream.URL(), t.TempDir())
	mirror := newFakeMirror()

	result, err := newRefresh(cfg, domain.PolicyFail, mirror).Run(context.Background())
	require.NoError(t, err)

	items := mirror.replaced[domain.KindItem]
	require.Len(t, items, 3)
	for i, e := range items {
		assert.Equal(t, domain.KindItem, e.Kind)
		assert.Equal(t, i, e.Position)
		assert.Equal(t, result.RunID, e.SyncRunID)
		assert.Equal(t, testutil.TestVersion, e.Version)
	}
	assert.Equal(t, "TFT_Item_Deathblade", items[0].ID)
	assert.Equal(t, "Deathblade", items[0].Name)
	assert.Contains(t, string(items[0].Data), `"spriteUrl":"/images/sprites/champions/Deathblade.webp"`)

	assert.Len(t, mirror.replaced[domain.KindChampion], 2)
}

func TestRefreshService_Run_MirrorFailure(t *testing.T) {
	tests := []struct {
		name      string
		policy    domain.ErrorPolicy
		wantErr   bool
		itemsHits int
	}{
		{name: "log and continue", policy: domain.PolicyLogAndContinue, wantErr: false, itemsHits: 1},
		{name: "fail", policy: domain.PolicyFail, wantErr: true, itemsHits: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upstream := testutil.NewUpstream(t)
			seedBoth(t, upstream)
			cfg := testutil.TestConfig(upstream.URL(), t.TempDir())
			mirror := newFakeMirror()
			mirror.err = errors.New("connection reset")

			result, err := newRefresh(cfg, tt.policy, mirror).Run(context.Background())
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "mirror champion catalog")
			} else {
				require.NoError(t, err)
				assert.Equal(t, 3, result.Counts[domain.KindItem])
			}

			// Files are written before mirroring
			_, statErr := os.Stat(cfg.OutputPath(domain.KindChampion))
			assert.NoError(t, statErr)
			_, statErr = os.Stat(cfg.OutputPath(domain.KindItem))
			assert.Equal(t, tt.itemsHits == 1, statErr == nil)
			assert.Equal(t, tt.itemsHits, upstream.Hits(testutil.CatalogPath(testutil.TestVersion, "tft-item.json")))
		})
	}
}

func TestRefreshService_Run_KindOrder(t *testing.T) {
	// Champions are missing upstream, so a champions-first run stops before items
	upstream := testutil.NewUpstream(t)
	seedItems(t, upstream)
	cfg := testutil.TestConfig(upstream.URL(), t.TempDir())

	_, err := newRefresh(cfg, domain.PolicyFail, nil).Run(context.Background(), domain.KindItem, domain.KindChampion, domain.KindItem)
	require.Error(t, err)

	var fetchErr *domain.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, domain.KindChampion, fetchErr.Kind)
	assert.Equal(t, 0, upstream.Hits(testutil.CatalogPath(testutil.TestVersion, "tft-item.json")))
}

func TestRefreshService_Run_LatestVersion(t *testing.T) {
	upstream := testutil.NewUpstream(t)
	upstream.SetVersions("15.10.1", testutil.TestVersion)
	upstream.SetCatalog(t, "15.10.1", "tft-champion.json", testutil.NewRecordBuilder("TFT15_Ezreal").Build(t))
	upstream.SetCatalog(t, "15.10.1", "tft-item.json", testutil.NewRecordBuilder("TFT_Item_Deathblade").Build(t))
	cfg := testutil.TestConfig(upstream.URL(), t.TempDir())
	cfg.DataDragonVersion = config.LatestVersion

	result, err := newRefresh(cfg, domain.PolicyFail, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "15.10.1", result.Version)

	items, err := file.NewCatalogFile(cfg.OutputPath(domain.KindItem)).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, upstream.BaseURL("15.10.1")+"/img/tft-item/Deathblade.png", testutil.ImageOf(t, items[0]).FullURL)
}
