package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/nicholaszhao/uptime-report-pdf/packages/go/config"
	"github.com/nicholaszhao/uptime-report-pdf/packages/go/models"
)

// ObjectStore defines the object-storage operations the report pipeline needs
type ObjectStore interface {
	// Get returns the full content of an object
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	// Put writes data under key, replacing any existing object
	Put(ctx context.Context, bucket, key string, data []byte, opts PutOptions) error
	// List calls fn once per result page for every object whose key starts with prefix.
	// A missing prefix yields no pages and no error.
	List(ctx context.Context, bucket, prefix string, fn func(page []models.ObjectInfo) error) error
	// BucketExists reports whether the bucket is reachable
	BucketExists(ctx context.Context, bucket string) (bool, error)
}

// PutOptions carries the HTTP metadata stored with an object
type PutOptions struct {
	ContentType  string
	CacheControl string
}

// ObjectNotFoundError indicates the requested key does not exist
type ObjectNotFoundError struct {
	Bucket string
	Key    string
}

func (e *ObjectNotFoundError) Error() string {
	return fmt.Sprintf("object not found: %s", URI(e.Bucket, e.Key))
}

// BucketNotFoundError indicates the bucket does not exist
type BucketNotFoundError struct {
	Bucket string
}

func (e *BucketNotFoundError) Error() string {
	return fmt.Sprintf("bucket not found: %s", e.Bucket)
}

// IsObjectNotFoundError checks if an error is an ObjectNotFoundError
func IsObjectNotFoundError(err error) bool {
	var notFound *ObjectNotFoundError
	return errors.As(err, &notFound)
}

// IsBucketNotFoundError checks if an error is a BucketNotFoundError
func IsBucketNotFoundError(err error) bool {
	var notFound *BucketNotFoundError
	return errors.As(err, &notFound)
}

// URI formats a bucket/key pair as s3://bucket/key
func URI(bucket, key string) string {
	return fmt.Sprintf("s3://%s/%s", bucket, key)
}

// New creates the ObjectStore selected by cfg.StorageBackend
func New(ctx context.Context, cfg *config.Config) (ObjectStore, error) {
	switch cfg.StorageBackend {
	case "s3":
		return NewS3Storage(ctx, cfg.S3Region)
	case "minio":
		return NewMinIOStorage(MinIOConfig{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			UseSSL:    bool(cfg.MinIOUseSSL),
		})
	case "local":
		return NewLocalStorage(cfg.LocalPath)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
