package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/nicholaszhao/uptime-report-pdf/packages/go/models"
)

// listPageSize is how many listed objects are handed to the callback at once
// by backends whose listing API is a flat stream
const listPageSize = 1000

// MinIOStorage implements ObjectStore for S3-compatible MinIO endpoints
type MinIOStorage struct {
	client   *minio.Client
	pageSize int
}

// MinIOConfig holds MinIO connection settings.
type MinIOConfig struct {
	Endpoint  string // e.g., "localhost:9000"
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// NewMinIOStorage creates a new MinIO storage client. No connection is made
// until the first request.
func NewMinIOStorage(cfg MinIOConfig) (*MinIOStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &MinIOStorage{client: client, pageSize: listPageSize}, nil
}

// Get retrieves an object from MinIO
func (m *MinIOStorage) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, classifyMinIOError(err, bucket, key, "failed to get object from minio")
	}
	defer obj.Close()

	// GetObject is lazy; errors such as NoSuchKey surface on the first read
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, classifyMinIOError(err, bucket, key, "failed to read object from minio")
	}
	return data, nil
}

// Put stores an object in MinIO.
func (m *MinIOStorage) Put(ctx context.Context, bucket, key string, data []byte, opts PutOptions) error {
	_, err := m.client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  opts.ContentType,
		CacheControl: opts.CacheControl,
	})
	if err != nil {
		return classifyMinIOError(err, bucket, key, "failed to upload to minio")
	}

	return nil
}

// List streams objects under prefix and delivers them in pages
func (m *MinIOStorage) List(ctx context.Context, bucket, prefix string, fn func(page []models.ObjectInfo) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	objects := m.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true})
	return pageObjects(objects, bucket, m.pageSize, fn)
}

// pageObjects drains a listing stream into pages of at most size objects.
// Returning early leaves the stream to be stopped by the caller's context.
func pageObjects(objects <-chan minio.ObjectInfo, bucket string, size int, fn func(page []models.ObjectInfo) error) error {
	page := make([]models.ObjectInfo, 0, size)
	for obj := range objects {
		if obj.Err != nil {
			return classifyMinIOError(obj.Err, bucket, "", "failed to list minio objects")
		}
		page = append(page, models.ObjectInfo{
			Key:          obj.Key,
			LastModified: obj.LastModified,
			Size:         obj.Size,
		})
		if len(page) == size {
			if err := fn(page); err != nil {
				return err
			}
			page = make([]models.ObjectInfo, 0, size)
		}
	}

	if len(page) > 0 {
		return fn(page)
	}
	return nil
}

// BucketExists checks the bucket on the MinIO endpoint
func (m *MinIOStorage) BucketExists(ctx context.Context, bucket string) (bool, error) {
	exists, err := m.client.BucketExists(ctx, bucket)
	if err != nil {
		return false, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	return exists, nil
}

func classifyMinIOError(err error, bucket, key, op string) error {
	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		switch resp.Code {
		case "NoSuchKey":
			return &ObjectNotFoundError{Bucket: bucket, Key: key}
		case "NoSuchBucket":
			return &BucketNotFoundError{Bucket: bucket}
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
