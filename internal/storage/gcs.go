package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSBackend implements the Backend interface for Google Cloud Storage
type GCSBackend struct {
	client       *storage.Client
	bucket       string
	objectPrefix string
}

// NewGCSBackend creates a new GCSBackend instance
func NewGCSBackend(ctx context.Context, bucketName, objectPrefix, credentialsFile string) (*GCSBackend, error) {
	var client *storage.Client
	var err error

	// Create a client
	if credentialsFile != "" {
		client, err = storage.NewClient(ctx, option.WithCredentialsFile(credentialsFile))
	} else {
		// Use application default credentials
		client, err = storage.NewClient(ctx)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &GCSBackend{
		client:       client,
		bucket:       bucketName,
		objectPrefix: objectPrefix,
	}, nil
}

func (s *GCSBackend) objectName(name string) string {
	if s.objectPrefix != "" {
		return s.objectPrefix + "/" + name
	}
	return name
}

// ReadFile reads the named object from the bucket
func (s *GCSBackend) ReadFile(ctx context.Context, name string) ([]byte, error) {
	r, err := s.client.Bucket(s.bucket).Object(s.objectName(name)).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open GCS object %s: %w", name, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read GCS object %s: %w", name, err)
	}

	return data, nil
}

// WriteFile writes data to the named object, replacing any previous contents
func (s *GCSBackend) WriteFile(ctx context.Context, name string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, time.Minute*5)
	defer cancel()

	wc := s.client.Bucket(s.bucket).Object(s.objectName(name)).NewWriter(ctx)
	if _, err := wc.Write(data); err != nil {
		return fmt.Errorf("failed to write GCS object %s: %w", name, err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer: %w", err)
	}

	return nil
}

// Exists checks if the named object exists in the bucket
func (s *GCSBackend) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.client.Bucket(s.bucket).Object(s.objectName(name)).Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Close closes the GCS client
func (s *GCSBackend) Close() error {
	return s.client.Close()
}
