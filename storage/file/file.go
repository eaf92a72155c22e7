// Package file provides a filesystem implementation of billing.CatalogStore.
// The catalog is persisted as a JSON artifact; the file doubles as the
// first-run marker, so deleting it forces a fresh remote provisioning on the
// next start.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mihaimyh/gobilling/pkg/billing"
)

// CatalogStore implements billing.CatalogStore using a JSON file on disk.
type CatalogStore struct {
	path string
}

// NewCatalogStore creates a catalog store backed by the given file path.
func NewCatalogStore(path string) (*CatalogStore, error) {
	if path == "" {
		return nil, fmt.Errorf("catalog file path is required")
	}
	return &CatalogStore{path: path}, nil
}

// Load implements billing.CatalogStore. A missing file means no catalog has
// been provisioned yet and returns (nil, nil).
func (s *CatalogStore) Load(ctx context.Context) (*billing.Catalog, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}

	var catalog billing.Catalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("decoding catalog file %s: %w", s.path, err)
	}
	return &catalog, nil
}

// Save implements billing.CatalogStore. The artifact is written atomically
// via a rename so a crash mid-write never leaves a truncated catalog behind.
func (s *CatalogStore) Save(ctx context.Context, catalog *billing.Catalog) error {
	if catalog == nil {
		return fmt.Errorf("invalid catalog")
	}

	data, err := json.MarshalIndent(catalog, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding catalog: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating catalog directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp catalog file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing catalog file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing catalog file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing catalog file: %w", err)
	}
	return nil
}
