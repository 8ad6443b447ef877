// Package storage stores export artifacts in S3 compatible object storage or
// a local directory.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	infraconfig "github.com/sac/membership/internal/infrastructure/config"
	"go.uber.org/zap"
)

// ObjectStorage is implemented by every storage backend
type ObjectStorage interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	DownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, error)
}

// New creates the backend selected by storage.type
func New(ctx context.Context, cfg *infraconfig.StorageConfig, logger *zap.Logger) (ObjectStorage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("storage configuration is required")
	}
	switch cfg.Type {
	case "s3":
		s, err := NewS3Storage(cfg, WithLogger(logger))
		if err != nil {
			return nil, err
		}
		if err := s.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return s, nil
	case "local", "":
		return NewLocalStorage(cfg.LocalDir)
	}
	return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
}

// ExportKey builds the object key of an export artifact:
// exports/<kind>/<layer>/<timestamp>.<ext>
func ExportKey(kind, layer string, at time.Time, ext string) string {
	if layer == "" {
		layer = "all"
	}
	name := at.UTC().Format("20060102T150405Z") + "." + strings.TrimPrefix(ext, ".")
	return path.Join("exports", cleanSegment(kind), cleanSegment(layer), name)
}

func cleanSegment(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "..", "_")
	return s
}

func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("storage key is required")
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, "..") {
		return fmt.Errorf("invalid storage key %q", key)
	}
	return nil
}
