package storage

import (
	"context"
	"fmt"

	"github.com/jaki95/tracklist-collector/config"
)

const (
	TypeLocal = "local"
	TypeGCS   = "gcs"
)

// Backend defines the interface for reading and writing the collector's
// data files. File names are relative to the configured data directory
// or object prefix.
type Backend interface {
	ReadFile(ctx context.Context, name string) ([]byte, error)

	WriteFile(ctx context.Context, name string, data []byte) error

	Exists(ctx context.Context, name string) (bool, error)

	Close() error
}

// New creates a storage backend based on the configured storage type.
func New(ctx context.Context, cfg *config.Config) (Backend, error) {
	switch cfg.Storage.Type {
	case TypeLocal:
		return NewLocalBackend(cfg.Storage.DataDir)
	case TypeGCS:
		return NewGCSBackend(ctx, cfg.Storage.Bucket, cfg.Storage.ObjectPrefix, cfg.Storage.CredentialsFile)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Storage.Type)
	}
}
