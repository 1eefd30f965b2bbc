package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dom/tft-catalog/internal/domain"
	"github.com/joho/godotenv"
)

const (
	DefaultDataDragonHost    = "https://ddragon.leagueoflegends.com"
	DefaultDataDragonVersion = "15.9.1"

	// LatestVersion makes the refresh resolve the newest version from Data Dragon.
	LatestVersion = "latest"

	CacheSourceFile     = "file"
	CacheSourcePostgres = "postgres"
)

type Config struct {
	// Server
	Port        string
	Environment string

	// Database
	DatabaseURL string

	// Data Dragon
	DataDragonHost    string
	DataDragonVersion string
	Locale            string

	// Fetch
	FetchTimeout    time.Duration
	FetchRetries    int
	FetchRetryDelay time.Duration // First backoff interval between retries

	// Cache
	CacheTTL    time.Duration
	CacheSource string

	// Refresh
	DataDir       string
	RefreshStrict bool

	// Per-kind catalog settings, keyed by kind
	Kinds map[domain.Kind]KindConfig
}

func Load() (*Config, error) {
	// A missing .env is fine; real environment variables always win.
	_ = godotenv.Load()

	// Malformed numbers and booleans are collected and reported together.
	var errs []error
	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		Environment:       getEnv("ENVIRONMENT", "development"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		DataDragonHost:    strings.TrimRight(getEnv("DDRAGON_HOST", DefaultDataDragonHost), "/"),
		DataDragonVersion: getEnv("DDRAGON_VERSION", DefaultDataDragonVersion),
		Locale:            getEnv("DDRAGON_LOCALE", "en_US"),
		FetchTimeout:      time.Duration(getEnvInt("FETCH_TIMEOUT_MS", 5000, &errs)) * time.Millisecond,
		FetchRetries:      getEnvInt("FETCH_RETRIES", 0, &errs),
		FetchRetryDelay:   time.Duration(getEnvInt("FETCH_RETRY_DELAY_MS", 500, &errs)) * time.Millisecond,
		CacheTTL:          time.Duration(getEnvInt("CACHE_TTL_MS", 3600000, &errs)) * time.Millisecond,
		CacheSource:       getEnv("CACHE_SOURCE", CacheSourceFile),
		DataDir:           getEnv("DATA_DIR", "./data"),
		RefreshStrict:     getEnvBool("REFRESH_STRICT", false, &errs),
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	kinds, err := LoadKinds(getEnv("CATALOG_CONFIG", ""))
	if err != nil {
		return nil, err
	}
	cfg.Kinds = kinds

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that config values are usable.
func (c *Config) Validate() error {
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("config: fetch timeout must be positive, got %v", c.FetchTimeout)
	}
	if c.FetchRetries < 0 {
		return fmt.Errorf("config: fetch retries must be non-negative, got %d", c.FetchRetries)
	}
	if c.FetchRetryDelay < 0 {
		return fmt.Errorf("config: fetch retry delay must be non-negative, got %v", c.FetchRetryDelay)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("config: cache ttl must be positive, got %v", c.CacheTTL)
	}
	switch c.CacheSource {
	case CacheSourceFile:
	case CacheSourcePostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL is required when CACHE_SOURCE=postgres")
		}
	default:
		return fmt.Errorf("config: cache source must be %q or %q, got %q", CacheSourceFile, CacheSourcePostgres, c.CacheSource)
	}
	if c.DataDragonVersion == "" {
		return errors.New("config: DDRAGON_VERSION cannot be empty")
	}
	for _, kind := range domain.Kinds {
		kc, ok := c.Kinds[kind]
		if !ok {
			return fmt.Errorf("config: missing settings for %s catalog", kind)
		}
		if kc.Output == "" {
			return fmt.Errorf("config: %s output path cannot be empty", kind)
		}
	}
	return nil
}

// BaseURL is the versioned CDN root, e.g. https://ddragon.leagueoflegends.com/cdn/15.9.1.
func (c *Config) BaseURL(version string) string {
	return fmt.Sprintf("%s/cdn/%s", c.DataDragonHost, version)
}

// CatalogURL is the upstream endpoint for one kind.
func (c *Config) CatalogURL(version string, kind domain.Kind) string {
	return fmt.Sprintf("%s/data/%s/%s", c.BaseURL(version), c.Locale, c.Kinds[kind].Path)
}

// OutputPath returns the persisted file for a kind.
func (c *Config) OutputPath(kind domain.Kind) string {
	out := c.Kinds[kind].Output
	if filepath.IsAbs(out) {
		return out
	}
	return filepath.Join(c.DataDir, out)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int, errs *[]error) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	intVal, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		*errs = append(*errs, fmt.Errorf("config: %s must be an integer, got %q", key, value))
		return fallback
	}
	return intVal
}

func getEnvBool(key string, fallback bool, errs *[]error) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		*errs = append(*errs, fmt.Errorf("config: %s must be a boolean, got %q", key, value))
		return fallback
	}
	return b
}
