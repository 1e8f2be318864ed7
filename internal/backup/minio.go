package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	coreconfig "github.com/serikovn/nexpr-update/core/config"
	"github.com/serikovn/nexpr-update/core/logger"
)

// MinioUploader writes snapshot objects into one bucket.
type MinioUploader struct {
	mc     *minio.Client
	bucket string
}

// NewMinioUploader connects to the configured endpoint. No request is made
// until EnsureBucket or Upload.
func NewMinioUploader(cfg coreconfig.MinioConfig) (*MinioUploader, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, errors.New("backup: minio endpoint and bucket are required")
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return &MinioUploader{mc: mc, bucket: cfg.Bucket}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (u *MinioUploader) EnsureBucket(ctx context.Context) error {
	exists, err := u.mc.BucketExists(ctx, u.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", u.bucket, err)
	}
	if exists {
		return nil
	}
	if err := u.mc.MakeBucket(ctx, u.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", u.bucket, err)
	}
	logger.LogEvent(ctx, logger.Backup, slog.LevelInfo, "bucket.created", slog.String("bucket", u.bucket))
	return nil
}

// Upload stores data under key as a JSON object.
func (u *MinioUploader) Upload(ctx context.Context, key string, data []byte) error {
	_, err := u.mc.PutObject(ctx, u.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("upload %s/%s: %w", u.bucket, key, err)
	}
	logger.LogEvent(ctx, logger.Backup, slog.LevelDebug, "object.uploaded",
		slog.String("bucket", u.bucket),
		slog.String("key", key),
		slog.Int("bytes", len(data)),
	)
	return nil
}
