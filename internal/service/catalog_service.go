package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dom/tft-catalog/internal/config"
	"github.com/dom/tft-catalog/internal/domain"
)

const defaultFetchTimeout = 5 * time.Second

// FetchOptions describes a single catalog request.
type FetchOptions struct {
	URL     string                   // Upstream catalog document
	BaseURL string                   // Versioned CDN root for derived image URLs
	Kind    domain.Kind              // Decides image URL layout
	Filter  func(domain.Record) bool // Nil keeps every record
	Timeout time.Duration            // Zero means 5s
}

type CatalogService struct {
	cfg        *config.Config
	httpClient *http.Client
}

func NewCatalogService(cfg *config.Config) *CatalogService {
	return &CatalogService{
		cfg: cfg,
		// Deadlines come from FetchOptions.Timeout via the request context.
		httpClient: &http.Client{},
	}
}

// Fetch downloads, filters and enriches one catalog. Failures come back as
// *domain.FetchError. Only timeouts and connection failures are retried, and
// only when FETCH_RETRIES is set; server and parse errors fail at once.
func (s *CatalogService) Fetch(ctx context.Context, opts FetchOptions) (domain.Catalog, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultFetchTimeout
	}

	attempt := func() (domain.Catalog, error) {
		catalog, err := s.fetchOnce(ctx, opts)
		if err != nil && !retryable(err) {
			return nil, backoff.Permanent(err)
		}
		return catalog, err
	}
	notify := func(err error, wait time.Duration) {
		log.Printf("WARN [catalog.Fetch] kind=%s retrying in %s: %v", opts.Kind, wait, err)
	}

	catalog, err := backoff.RetryNotifyWithData(attempt, s.backOff(ctx), notify)
	if err != nil {
		log.Printf("ERROR [catalog.Fetch] kind=%s url=%s: %v", opts.Kind, opts.URL, err)
		return nil, &domain.FetchError{Kind: opts.Kind, Err: err}
	}

	return catalog, nil
}

// backOff allows FetchRetries extra attempts with exponential delays starting
// at FetchRetryDelay. Zero retries means a single attempt.
func (s *CatalogService) backOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff(backoff.WithInitialInterval(s.cfg.FetchRetryDelay))
	return backoff.WithMaxRetries(backoff.WithContext(exp, ctx), uint64(s.cfg.FetchRetries))
}

func (s *CatalogService) fetchOnce(ctx context.Context, opts FetchOptions) (domain.Catalog, error) {
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opts.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, classify(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &domain.ServerError{StatusCode: resp.StatusCode, Reason: reasonPhrase(resp)}
	}

	records, err := decodeCatalog(resp.Body)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: reading body: %w", domain.ErrTimeout, err)
		}
		return nil, err
	}

	enricher := NewEnricher(opts.BaseURL, s.sprites())
	catalog := make(domain.Catalog, 0, len(records))
	for _, r := range records {
		if opts.Filter != nil && !opts.Filter(r) {
			continue
		}
		enriched, err := enricher.Enhance(r, opts.Kind)
		if err != nil {
			return nil, err
		}
		catalog = append(catalog, enriched)
	}

	return catalog, nil
}

// FetchKind fetches a catalog using the configured settings for kind.
func (s *CatalogService) FetchKind(ctx context.Context, version string, kind domain.Kind) (domain.Catalog, error) {
	kc, ok := s.cfg.Kinds[kind]
	if !ok {
		return nil, fmt.Errorf("unknown catalog kind %q", kind)
	}

	filter := PrefixFilter{Include: kc.Include, Exclude: kc.Exclude}
	return s.Fetch(ctx, FetchOptions{
		URL:     s.cfg.CatalogURL(version, kind),
		BaseURL: s.cfg.BaseURL(version),
		Kind:    kind,
		Filter:  filter.Allows,
		Timeout: s.cfg.FetchTimeout,
	})
}

func (s *CatalogService) FetchChampions(ctx context.Context, version string) (domain.Catalog, error) {
	return s.FetchKind(ctx, version, domain.KindChampion)
}

func (s *CatalogService) FetchItems(ctx context.Context, version string) (domain.Catalog, error) {
	return s.FetchKind(ctx, version, domain.KindItem)
}

// ResolveVersion returns the configured Data Dragon version, asking upstream
// for the newest one when it is set to "latest".
func (s *CatalogService) ResolveVersion(ctx context.Context) (string, error) {
	if s.cfg.DataDragonVersion != config.LatestVersion {
		return s.cfg.DataDragonVersion, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.DataDragonHost+"/api/versions.json", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", classify(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &domain.ServerError{StatusCode: resp.StatusCode, Reason: reasonPhrase(resp)}
	}

	var versions []string
	if err := json.NewDecoder(resp.Body).Decode(&versions); err != nil {
		return "", fmt.Errorf("%w: versions: %w", domain.ErrParse, err)
	}

	if len(versions) == 0 {
		return "", fmt.Errorf("no versions available")
	}

	return versions[0], nil
}

func (s *CatalogService) sprites() map[domain.Kind]SpriteTemplate {
	sprites := make(map[domain.Kind]SpriteTemplate, len(s.cfg.Kinds))
	for kind, kc := range s.cfg.Kinds {
		if kc.SpriteDir == "" {
			continue
		}
		sprites[kind] = SpriteTemplate{Dir: kc.SpriteDir, Ext: kc.SpriteExt}
	}
	return sprites
}

// decodeCatalog reads {"data": {id: record, ...}} and returns the records in
// document order.
func decodeCatalog(r io.Reader) ([]domain.Record, error) {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(r).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrParse, err)
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return nil, fmt.Errorf("%w: missing data field", domain.ErrParse)
	}

	dec := json.NewDecoder(bytes.NewReader(envelope.Data))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil, fmt.Errorf("%w: data is not an object", domain.ErrParse)
	}

	var records []domain.Record
	for dec.More() {
		key, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrParse, err)
		}
		var record domain.Record
		if err := dec.Decode(&record); err != nil || record == nil {
			return nil, fmt.Errorf("%w: entry %v is not an object", domain.ErrParse, key)
		}
		records = append(records, record)
	}

	return records, nil
}

func classify(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", domain.ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		return err
	default:
		return fmt.Errorf("%w: %w", domain.ErrNetwork, err)
	}
}

func retryable(err error) bool {
	return errors.Is(err, domain.ErrTimeout) || errors.Is(err, domain.ErrNetwork)
}

// reasonPhrase extracts "Not Found" from "404 Not Found".
func reasonPhrase(resp *http.Response) string {
	reason := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if reason == "" {
		reason = http.StatusText(resp.StatusCode)
	}
	return reason
}
