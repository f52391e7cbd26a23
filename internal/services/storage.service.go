package services

import (
	"context"
	"errors"
	"io"
	"medwatch/config"
	"medwatch/internal/logger"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var ErrStorageNotConfigured = errors.New("object storage not configured")

// StorageService keeps inspection evidence (photos, scanned seizure forms) in
// an S3-compatible bucket. Optional: the portal runs without it, evidence
// endpoints just report the misconfiguration.
type StorageService struct {
	client *minio.Client
	bucket string
	log    logger.Logger
}

func NewStorageService(cfg config.Config) (*StorageService, error) {
	log := logger.New("StorageService")

	if cfg.S3Endpoint == "" {
		log.Warn("S3_ENDPOINT not set, evidence storage disabled")
		return &StorageService{log: log}, nil
	}

	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
	})
	if err != nil {
		return nil, log.Err("failed to initialize object storage client", err)
	}

	log.Info("object storage initialized", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3Bucket)
	return &StorageService{
		client: client,
		bucket: cfg.S3Bucket,
		log:    log,
	}, nil
}

// Configured reports whether an object storage backend is wired.
func (s *StorageService) Configured() bool {
	return s.client != nil
}

// EnsureBucket makes sure the evidence bucket exists before use.
func (s *StorageService) EnsureBucket(ctx context.Context) error {
	log := s.log.Function("EnsureBucket")

	if !s.Configured() {
		return ErrStorageNotConfigured
	}

	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return log.Err("failed to check evidence bucket", err, "bucket", s.bucket)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return log.Err("failed to create evidence bucket", err, "bucket", s.bucket)
		}
		log.Info("evidence bucket created", "bucket", s.bucket)
	}

	return nil
}

// Upload stores one evidence object.
func (s *StorageService) Upload(
	ctx context.Context,
	objectKey string,
	reader io.Reader,
	size int64,
	contentType string,
) error {
	log := s.log.TraceFromContext(ctx).Function("Upload")

	if !s.Configured() {
		return ErrStorageNotConfigured
	}

	opts := minio.PutObjectOptions{ContentType: contentType}
	if _, err := s.client.PutObject(ctx, s.bucket, objectKey, reader, size, opts); err != nil {
		return log.Err("failed to upload evidence object", err, "objectKey", objectKey)
	}

	log.Info("evidence uploaded", "objectKey", objectKey, "size", size)
	return nil
}

// PresignedGetURL returns a signed download URL for an evidence object.
func (s *StorageService) PresignedGetURL(
	ctx context.Context,
	objectKey string,
	expiry time.Duration,
) (string, error) {
	log := s.log.TraceFromContext(ctx).Function("PresignedGetURL")

	if !s.Configured() {
		return "", ErrStorageNotConfigured
	}

	u, err := s.client.PresignedGetObject(ctx, s.bucket, objectKey, expiry, url.Values{})
	if err != nil {
		return "", log.Err("failed to presign evidence object", err, "objectKey", objectKey)
	}

	return u.String(), nil
}

// Delete removes an evidence object.
func (s *StorageService) Delete(ctx context.Context, objectKey string) error {
	log := s.log.TraceFromContext(ctx).Function("Delete")

	if !s.Configured() {
		return ErrStorageNotConfigured
	}

	if err := s.client.RemoveObject(ctx, s.bucket, objectKey, minio.RemoveObjectOptions{}); err != nil {
		return log.Err("failed to delete evidence object", err, "objectKey", objectKey)
	}

	log.Info("evidence deleted", "objectKey", objectKey)
	return nil
}
