// Package file stores catalogs as pretty-printed JSON files.
package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/dom/tft-catalog/internal/domain"
)

// CatalogFile is one persisted catalog on disk.
type CatalogFile struct {
	path string
}

func NewCatalogFile(path string) *CatalogFile {
	return &CatalogFile{path: path}
}

// Save writes catalog as a 2-space indented JSON array. The data goes to a
// temporary file next to the target which is then renamed over it, so readers
// never see a half-written file.
func (f *CatalogFile) Save(catalog domain.Catalog) error {
	if catalog == nil {
		catalog = domain.Catalog{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(catalog); err != nil {
		return fmt.Errorf("%w: encoding %s: %w", domain.ErrFileIO, f.path, err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: creating %s: %w", domain.ErrFileIO, dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: creating temp file in %s: %w", domain.ErrFileIO, dir, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: writing %s: %w", domain.ErrFileIO, tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: closing %s: %w", domain.ErrFileIO, tmp.Name(), err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("%w: chmod %s: %w", domain.ErrFileIO, tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("%w: replacing %s: %w", domain.ErrFileIO, f.path, err)
	}

	return nil
}

// Load reads and parses the file. It never touches the network.
func (f *CatalogFile) Load(_ context.Context) (domain.Catalog, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w: %s", domain.ErrCatalogNotFound, domain.ErrFileIO, f.path)
		}
		return nil, fmt.Errorf("%w: reading %s: %w", domain.ErrFileIO, f.path, err)
	}

	var catalog domain.Catalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %w", domain.ErrParse, f.path, err)
	}
	if catalog == nil {
		return nil, fmt.Errorf("%w: %s does not hold a catalog", domain.ErrParse, f.path)
	}

	return catalog, nil
}

// Persister writes catalogs to disk under an ErrorPolicy.
type Persister struct {
	Policy domain.ErrorPolicy
}

// Persist saves catalog to path. A failure is always logged; it is returned
// only under domain.PolicyFail.
func (p Persister) Persist(catalog domain.Catalog, path string) error {
	if err := NewCatalogFile(path).Save(catalog); err != nil {
		log.Printf("ERROR [persist] path=%s: %v", path, err)
		if p.Policy == domain.PolicyFail {
			return err
		}
		return nil
	}

	log.Printf("Data written to %s successfully", path)
	return nil
}
