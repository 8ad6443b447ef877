package storage

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/sac/membership/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func testS3Config() *config.StorageConfig {
	return &config.StorageConfig{
		Type:      "s3",
		Bucket:    "sac-exports",
		AccessKey: "test-key",
		SecretKey: "test-secret",
		Endpoint:  "http://localhost:9000",
		Region:    "eu-central-2",
		PathStyle: true,
	}
}

func TestNewS3Storage_Validation(t *testing.T) {
	t.Run("nil config returns error", func(t *testing.T) {
		_, err := NewS3Storage(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration is required")
	})

	t.Run("missing bucket returns error", func(t *testing.T) {
		cfg := testS3Config()
		cfg.Bucket = ""
		_, err := NewS3Storage(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket is required")
	})

	t.Run("access key without secret returns error", func(t *testing.T) {
		cfg := testS3Config()
		cfg.SecretKey = ""
		_, err := NewS3Storage(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must be set together")
	})

	t.Run("valid config creates storage", func(t *testing.T) {
		s, err := NewS3Storage(testS3Config())
		require.NoError(t, err)
		assert.Equal(t, "sac-exports", s.Bucket())
		assert.Equal(t, 15*time.Minute, s.presignExpiration)
	})

	t.Run("endpoint without scheme is accepted", func(t *testing.T) {
		cfg := testS3Config()
		cfg.Endpoint = "minio.internal:9000"
		_, err := NewS3Storage(cfg)
		require.NoError(t, err)
	})
}

func TestS3StorageOptions(t *testing.T) {
	t.Run("WithLogger sets custom logger", func(t *testing.T) {
		logger := zaptest.NewLogger(t)
		s, err := NewS3Storage(testS3Config(), WithLogger(logger))
		require.NoError(t, err)
		assert.Same(t, logger, s.logger)
	})

	t.Run("WithPresignExpiration sets custom duration", func(t *testing.T) {
		s, err := NewS3Storage(testS3Config(), WithPresignExpiration(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, time.Hour, s.presignExpiration)
	})
}

func TestS3Storage_DownloadURL(t *testing.T) {
	s, err := NewS3Storage(testS3Config())
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("empty key returns error", func(t *testing.T) {
		u, err := s.DownloadURL(ctx, "", time.Minute)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "storage key is required")
		assert.Empty(t, u)
	})

	t.Run("generates presigned URL", func(t *testing.T) {
		u, err := s.DownloadURL(ctx, "exports/sac_mitglieder/bern/20240101T000000Z.csv", 0)
		require.NoError(t, err)
		assert.True(t, strings.Contains(u, "localhost:9000"))
		assert.True(t, strings.Contains(u, "sac-exports"))
		assert.Contains(t, u, "X-Amz-Expires=900")
	})
}

func TestS3Storage_KeyValidation(t *testing.T) {
	s, err := NewS3Storage(testS3Config())
	require.NoError(t, err)
	ctx := context.Background()

	assert.Error(t, s.Put(ctx, "", strings.NewReader("x"), "text/plain"))
	assert.Error(t, s.Delete(ctx, "../etc/passwd"))
	_, err = s.Exists(ctx, "/absolute")
	assert.Error(t, err)
	_, err = s.Get(ctx, "")
	assert.Error(t, err)
}

// Integration tests need an S3 compatible server, e.g. MinIO on localhost:9000
func newIntegrationStorage(t *testing.T) *S3Storage {
	t.Helper()
	if os.Getenv("INTEGRATION_TEST") != "1" {
		t.Skip("Skipping integration test. Set INTEGRATION_TEST=1 and run MinIO to enable.")
	}

	cfg := testS3Config()
	cfg.Bucket = "sac-integration"
	cfg.AccessKey = "minioadmin"
	cfg.SecretKey = "minioadmin"

	s, err := NewS3Storage(cfg, WithLogger(zap.NewNop()))
	require.NoError(t, err)
	require.NoError(t, s.EnsureBucket(context.Background()))
	return s
}

func TestIntegration_PutGetDelete(t *testing.T) {
	s := newIntegrationStorage(t)
	ctx := context.Background()
	key := "exports/test/integration.csv"

	require.NoError(t, s.Put(ctx, key, strings.NewReader("a;b\n"), "text/csv"))

	exists, err := s.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, s.Delete(ctx, key))
	exists, err = s.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)
}
