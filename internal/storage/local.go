package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LocalBackend implements the Backend interface for the local filesystem
type LocalBackend struct {
	dataDir string
}

// NewLocalBackend creates a new local storage backend rooted at dataDir
func NewLocalBackend(dataDir string) (*LocalBackend, error) {
	// Ensure the data directory exists
	if err := os.MkdirAll(dataDir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dataDir, err)
	}

	return &LocalBackend{dataDir: dataDir}, nil
}

// ReadFile reads the named file from the data directory
func (s *LocalBackend) ReadFile(_ context.Context, name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(s.dataDir, name))
}

// WriteFile writes data to the named file, replacing any previous contents
func (s *LocalBackend) WriteFile(_ context.Context, name string, data []byte) error {
	path := filepath.Join(s.dataDir, name)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	return os.WriteFile(path, data, 0644)
}

// Exists checks if the named file exists
func (s *LocalBackend) Exists(_ context.Context, name string) (bool, error) {
	_, err := os.Stat(filepath.Join(s.dataDir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Close is a no-op for local storage
func (s *LocalBackend) Close() error {
	return nil
}
