package uploader

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"sluice/internal/config"
	"sluice/internal/logging"
	"sluice/internal/services"
)

// Service uploads reassembled artifacts to object storage.
type Service interface {
	// Upload stores the file at path under the returned object key.
	Upload(ctx context.Context, path string) (key string, size int64, err error)
	// PresignedURL returns a time-limited download link for an object key.
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
	// Enabled reports whether uploads are configured.
	Enabled() bool
}

// objectPrefix namespaces artifacts inside the bucket.
const objectPrefix = "captures/"

type s3Service struct {
	client *minio.Client
	bucket string
	logger *slog.Logger
}

type noopService struct{}

// NewService builds an upload service from configuration. When uploads are
// disabled it returns a noop implementation so callers never need nil checks.
func NewService(cfg *config.Config, logger *slog.Logger) (Service, error) {
	if !cfg.Upload.Enabled {
		return noopService{}, nil
	}

	client, err := minio.New(cfg.Upload.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Upload.AccessKey, cfg.Upload.SecretKey, ""),
		Secure: cfg.Upload.Secure,
	})
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "uploader", "connect", cfg.Upload.Endpoint, err)
	}

	return &s3Service{
		client: client,
		bucket: cfg.Upload.Bucket,
		logger: logging.NewComponentLogger(logger, "uploader"),
	}, nil
}

// ObjectKey returns the bucket key an artifact path maps to.
func ObjectKey(path string) string {
	return objectPrefix + filepath.Base(path)
}

func (s *s3Service) Upload(ctx context.Context, path string) (string, int64, error) {
	key := ObjectKey(path)
	info, err := s.client.FPutObject(ctx, s.bucket, key, path, minio.PutObjectOptions{})
	if err != nil {
		return "", 0, services.Wrap(services.ErrTransient, "uploader", "put object", key, err)
	}
	s.logger.Info("artifact uploaded",
		logging.String("object_key", key),
		logging.Int64("size_bytes", info.Size),
		logging.String(logging.FieldEventType, "artifact_uploaded"),
	)
	return key, info.Size, nil
}

func (s *s3Service) PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, expiry, nil)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "uploader", "presign", key, err)
	}
	return u.String(), nil
}

func (s *s3Service) Enabled() bool { return true }

func (noopService) Upload(_ context.Context, path string) (string, int64, error) {
	return "", 0, fmt.Errorf("uploads disabled, keeping %s local", path)
}

func (noopService) PresignedURL(context.Context, string, time.Duration) (string, error) {
	return "", fmt.Errorf("uploads disabled")
}

func (noopService) Enabled() bool { return false }
