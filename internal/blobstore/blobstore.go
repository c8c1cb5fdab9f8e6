// Package blobstore wraps MinIO/S3 interactions for raw uploaded bytes.
package blobstore

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/nordquist/paperflow/internal/config"
)

// Store holds the MinIO client plus the raw bucket name.
type Store struct {
	client    *minio.Client
	rawBucket string
	region    string
}

// New creates a MinIO client from the Config.
func New(cfg *config.Config) (*Store, error) {
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
		Region: cfg.S3Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}
	return &Store{
		client:    client,
		rawBucket: cfg.RawBucket,
		region:    cfg.S3Region,
	}, nil
}

// EnsureBucket makes sure the raw bucket exists before use.
func (s *Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.rawBucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.rawBucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.rawBucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return fmt.Errorf("make bucket %s: %w", s.rawBucket, err)
		}
	}
	return nil
}

// UploadRaw stores the original uploaded bytes.
func (s *Store) UploadRaw(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error {
	opts := minio.PutObjectOptions{ContentType: contentType}
	_, err := s.client.PutObject(ctx, s.rawBucket, objectKey, reader, size, opts)
	if err != nil {
		return fmt.Errorf("upload raw object: %w", err)
	}
	return nil
}

// Materialize downloads a raw object into a temp file and returns its path.
// Extractors operate on file paths, so the worker needs the bytes on disk.
// The caller owns the file and must remove it.
func (s *Store) Materialize(ctx context.Context, objectKey string) (string, error) {
	obj, err := s.client.GetObject(ctx, s.rawBucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("get raw object: %w", err)
	}
	defer obj.Close()
	tmp, err := os.CreateTemp("", "paperflow-raw-*"+filepath.Ext(objectKey))
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, obj); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("download raw object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return tmp.Name(), nil
}

// PresignRawURL returns a signed GET URL for the original upload.
func (s *Store) PresignRawURL(ctx context.Context, objectKey string, ttl time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.rawBucket, objectKey, ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign raw object: %w", err)
	}
	return u.String(), nil
}
