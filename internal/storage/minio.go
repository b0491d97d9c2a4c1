// Package storage provides the object-store sink for ingested content,
// backed by MinIO (or any S3-compatible endpoint).
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/sshaikhIntervision/Brinkmann/internal/config"
	"github.com/sshaikhIntervision/Brinkmann/internal/logger"
)

// ObjectStore is the sink for ingested blobs. Put overwrites any existing
// object under the same name; re-ingestion is idempotent.
type ObjectStore interface {
	Put(ctx context.Context, objectName string, data []byte, contentType string) error
}

// MinIOStore implements ObjectStore against a MinIO bucket.
type MinIOStore struct {
	client *miniogo.Client
	bucket string
	log    logger.Interface
}

// NewMinIOStore creates the store and verifies the target bucket exists,
// creating it when missing.
func NewMinIOStore(ctx context.Context, cfg config.MinIOConfig, log logger.Interface) (*MinIOStore, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("minio endpoint is required")
	}

	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	store := &MinIOStore{client: client, bucket: cfg.Bucket, log: log}
	if err := store.ensureBucket(ctx); err != nil {
		return nil, err
	}

	log.Info("object store initialized", "endpoint", cfg.Endpoint, "bucket", cfg.Bucket)
	return store, nil
}

// Put uploads data under the given object name, overwriting any previous
// content. Safe for concurrent use; the backing service serializes per-key
// writes.
func (s *MinIOStore) Put(ctx context.Context, objectName string, data []byte, contentType string) error {
	if objectName == "" {
		return errors.New("object name is empty")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := s.client.PutObject(
		ctx,
		s.bucket,
		objectName,
		bytes.NewReader(data),
		int64(len(data)),
		miniogo.PutObjectOptions{ContentType: contentType},
	)
	if err != nil {
		return fmt.Errorf("upload object %s: %w", objectName, err)
	}

	s.log.Debug("uploaded object", "object_name", objectName, "size", len(data))
	return nil
}

// HealthCheck verifies connectivity and bucket existence.
func (s *MinIOStore) HealthCheck(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("object store health check: %w", err)
	}
	if !exists {
		return fmt.Errorf("bucket %s does not exist", s.bucket)
	}
	return nil
}

// ensureBucket creates the bucket when it does not exist yet.
func (s *MinIOStore) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, miniogo.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", s.bucket, err)
	}
	s.log.Info("created bucket", "bucket", s.bucket)
	return nil
}
