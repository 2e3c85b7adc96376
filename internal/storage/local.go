package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage keeps snapshots on the local filesystem. Used in development
// and when no Azure storage account is configured.
type LocalStorage struct {
	dir string
}

// Ensure LocalStorage implements StorageInterface
var _ StorageInterface = (*LocalStorage)(nil)

// NewLocalStorage creates a file-backed store rooted at dir
func NewLocalStorage(dir string) (*LocalStorage, error) {
	if dir == "" {
		return nil, fmt.Errorf("storage directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", dir, err)
	}
	return &LocalStorage{dir: dir}, nil
}

// Store writes a snapshot file
func (s *LocalStorage) Store(filename string, data []byte) error {
	return os.WriteFile(filepath.Join(s.dir, filename), data, 0o644)
}

// Retrieve reads a snapshot file
func (s *LocalStorage) Retrieve(filename string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, filename))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	return data, nil
}

// List returns filenames under the given prefix
func (s *LocalStorage) List(prefix string) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list storage directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if prefix == "" || strings.HasPrefix(entry.Name(), prefix) {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// Delete removes a snapshot file
func (s *LocalStorage) Delete(filename string) error {
	return os.Remove(filepath.Join(s.dir, filename))
}
