// Package minio stores complaint evidence photos in an S3-compatible bucket.
package minio

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/config"
)

// EvidenceStore implements evidence storage on MinIO.
type EvidenceStore struct {
	client *minio.Client
	bucket string
	logger *zap.Logger
}

// NewEvidenceStore connects to MinIO and makes sure the bucket exists.
func NewEvidenceStore(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (*EvidenceStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
		logger.Info("created evidence bucket", zap.String("bucket", cfg.Bucket))
	}
	return &EvidenceStore{client: client, bucket: cfg.Bucket, logger: logger}, nil
}

// Store uploads the object and returns an s3:// style URI.
func (s *EvidenceStore) Store(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	info, err := s.client.PutObject(ctx, s.bucket, key, body, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("upload evidence: %w", err)
	}
	s.logger.Debug("evidence stored", zap.String("key", key), zap.Int64("size", info.Size))
	return s.uri(key), nil
}

// Retrieve opens a stored object by the URI Store returned.
func (s *EvidenceStore) Retrieve(ctx context.Context, uri string) (io.ReadCloser, error) {
	key, err := s.keyOf(uri)
	if err != nil {
		return nil, err
	}
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("download evidence: %w", err)
	}
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, fmt.Errorf("stat evidence: %w", err)
	}
	return obj, nil
}

func (s *EvidenceStore) uri(key string) string {
	return "s3://" + s.bucket + "/" + key
}

func (s *EvidenceStore) keyOf(uri string) (string, error) {
	prefix := "s3://" + s.bucket + "/"
	if !strings.HasPrefix(uri, prefix) {
		return "", fmt.Errorf("evidence uri %q is not in bucket %s", uri, s.bucket)
	}
	return strings.TrimPrefix(uri, prefix), nil
}
