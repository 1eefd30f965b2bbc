package testutil

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dom/tft-catalog/internal/api"
	"github.com/dom/tft-catalog/internal/cache"
	"github.com/dom/tft-catalog/internal/config"
	"github.com/dom/tft-catalog/internal/domain"
	"github.com/dom/tft-catalog/internal/repository/file"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB manages a testcontainers PostgreSQL instance
type TestDB struct {
	Container testcontainers.Container
	DB        *gorm.DB
	DSN       string
}

// NewTestDB creates a new PostgreSQL testcontainer and returns a connection.
// It skips the test in -short mode.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx := context.Background()

	container, err := tcPostgres.Run(ctx,
		"postgres:15-alpine",
		tcPostgres.WithDatabase("test_tft_catalog"),
		tcPostgres.WithUsername("test"),
		tcPostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	db, err := gorm.Open(gormPostgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&domain.CatalogEntry{}); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	testDB := &TestDB{
		Container: container,
		DB:        db,
		DSN:       dsn,
	}

	t.Cleanup(func() {
		testDB.Cleanup()
	})

	return testDB
}

// Cleanup terminates the container
func (tdb *TestDB) Cleanup() {
	if tdb.Container != nil {
		ctx := context.Background()
		tdb.Container.Terminate(ctx)
	}
}

// TestConfig returns a configuration pointing at a fake upstream and a data dir
func TestConfig(upstreamURL, dataDir string) *config.Config {
	return &config.Config{
		Port:              "0", // Random port
		Environment:       "test",
		DataDragonHost:    upstreamURL,
		DataDragonVersion: TestVersion,
		Locale:            "en_US",
		FetchTimeout:      2 * time.Second,
		FetchRetryDelay:   10 * time.Millisecond,
		CacheTTL:          time.Hour,
		CacheSource:       config.CacheSourceFile,
		DataDir:           dataDir,
		Kinds:             config.DefaultKinds(),
	}
}

// TestServer holds all components for HTTP testing
type TestServer struct {
	Server *httptest.Server
	Caches map[domain.Kind]*cache.CatalogCache
	Config *config.Config
}

// NewTestServer serves file-backed caches from a temporary data directory
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()

	cfg := TestConfig("http://upstream.invalid", t.TempDir())

	caches := make(map[domain.Kind]*cache.CatalogCache, len(domain.Kinds))
	for _, kind := range domain.Kinds {
		caches[kind] = cache.New(file.NewCatalogFile(cfg.OutputPath(kind)), cfg.CacheTTL)
	}

	server := httptest.NewServer(api.NewRouter(caches))

	ts := &TestServer{
		Server: server,
		Caches: caches,
		Config: cfg,
	}

	t.Cleanup(func() {
		server.Close()
	})

	return ts
}

// APIURL returns the full API URL for a given path
func (ts *TestServer) APIURL(path string) string {
	return fmt.Sprintf("%s/api%s", ts.Server.URL, path)
}

// WriteCatalog persists catalog where the server's cache will read it
func (ts *TestServer) WriteCatalog(t *testing.T, kind domain.Kind, catalog domain.Catalog) {
	t.Helper()

	if err := file.NewCatalogFile(ts.Config.OutputPath(kind)).Save(catalog); err != nil {
		t.Fatalf("failed to write %s catalog: %v", kind, err)
	}
}
