package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tailored-api/apiserver/config"
)

// ErrObjectNotFound is returned by backends that can detect a missing key.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
}

// Storage wraps an ObjectStorage backend with a stable API.
type Storage struct {
	backend ObjectStorage
}

// NewStorage constructs a Storage wrapper for the provided backend.
func NewStorage(backend ObjectStorage) *Storage {
	return &Storage{backend: backend}
}

// Open builds the backend selected by cfg.Backend.
func Open(ctx context.Context, cfg config.StorageConfig) (*Storage, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", config.StorageBackendMemory:
		return NewStorage(NewMemory(cfg.Bucket)), nil
	case config.StorageBackendMinio:
		client, err := NewMinioClient(cfg.Minio, cfg.Bucket)
		if err != nil {
			return nil, fmt.Errorf("minio: %w", err)
		}
		return NewStorage(client), nil
	case config.StorageBackendGCS:
		client, err := NewGCSClient(ctx, cfg.GCS, cfg.Bucket)
		if err != nil {
			return nil, fmt.Errorf("gcs: %w", err)
		}
		return NewStorage(client), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// EnsureBucket ensures the configured bucket exists.
func (s *Storage) EnsureBucket(ctx context.Context) error {
	return s.backend.EnsureBucket(ctx)
}

// Put uploads an object to the configured bucket.
func (s *Storage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	return s.backend.Put(ctx, key, r, size, contentType)
}

// Get opens a reader for an object in the configured bucket.
func (s *Storage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	return s.backend.Get(ctx, key)
}

// Delete removes an object from the configured bucket.
func (s *Storage) Delete(ctx context.Context, key string) error {
	return s.backend.Delete(ctx, key)
}

// Bucket returns the configured bucket name.
func (s *Storage) Bucket() string {
	return s.backend.Bucket()
}
