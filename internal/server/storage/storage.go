// Package storage keeps uploaded media (user avatars) either on the local
// filesystem or in an S3-compatible bucket.
package storage

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/hasker/internal/server/config"
)

// Storage stores blobs by slash-separated key.
type Storage interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	// Delete removes key; a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// URL returns an address the browser can load key from.
	URL(ctx context.Context, key string) (string, error)
}

// MediaURLPrefix is where the local backend is mounted by the HTTP server.
const MediaURLPrefix = "/media/"

// New builds the backend selected by cfg.StorageBackend.
func New(ctx context.Context, cfg *config.Config) (Storage, error) {
	switch cfg.StorageBackend {
	case config.StorageLocal:
		return NewLocalStorage(cfg.MediaDir, MediaURLPrefix)
	case config.StorageS3:
		return NewS3Storage(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.StorageBackend)
	}
}
