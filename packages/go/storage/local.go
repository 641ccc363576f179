package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/nicholaszhao/uptime-report-pdf/packages/go/models"
)

// LocalStorage implements ObjectStore on the local filesystem.
// Each bucket is a directory under basePath; keys map to relative paths.
type LocalStorage struct {
	basePath string
	pageSize int
}

// NewLocalStorage creates a new local storage instance
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	// Create base directory if it doesn't exist
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating base directory: %w", err)
	}

	return &LocalStorage{
		basePath: basePath,
		pageSize: listPageSize,
	}, nil
}

// Get reads an object from local storage
func (s *LocalStorage) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	if err := s.checkBucket(bucket); err != nil {
		return nil, err
	}

	fullPath := s.objectPath(bucket, key)
	data, err := os.ReadFile(fullPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &ObjectNotFoundError{Bucket: bucket, Key: key}
	}
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", fullPath, err)
	}

	return data, nil
}

// Put writes an object to local storage, creating the bucket directory on demand
func (s *LocalStorage) Put(ctx context.Context, bucket, key string, data []byte, opts PutOptions) error {
	fullPath := s.objectPath(bucket, key)

	// Create parent directories
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		return fmt.Errorf("writing file %s: %w", fullPath, err)
	}

	return nil
}

// List walks the bucket directory in lexical order and pages matching keys
func (s *LocalStorage) List(ctx context.Context, bucket, prefix string, fn func(page []models.ObjectInfo) error) error {
	if err := s.checkBucket(bucket); err != nil {
		return err
	}

	bucketDir := filepath.Join(s.basePath, bucket)

	// Only the directory holding the prefix can contain matches
	root := bucketDir
	if i := strings.LastIndex(prefix, "/"); i >= 0 {
		root = filepath.Join(bucketDir, filepath.FromSlash(prefix[:i]))
	}

	page := make([]models.ObjectInfo, 0, s.pageSize)
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && p == root {
				return fs.SkipAll
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(bucketDir, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		page = append(page, models.ObjectInfo{
			Key:          key,
			LastModified: info.ModTime().UTC(),
			Size:         info.Size(),
		})
		if len(page) == s.pageSize {
			if err := fn(page); err != nil {
				return err
			}
			page = make([]models.ObjectInfo, 0, s.pageSize)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("listing %s: %w", root, err)
	}

	if len(page) > 0 {
		return fn(page)
	}
	return nil
}

// BucketExists checks whether the bucket directory exists
func (s *LocalStorage) BucketExists(ctx context.Context, bucket string) (bool, error) {
	info, err := os.Stat(filepath.Join(s.basePath, bucket))
	if err == nil {
		return info.IsDir(), nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("checking bucket %s: %w", bucket, err)
}

// BasePath returns the base path for local storage
func (s *LocalStorage) BasePath() string {
	return s.basePath
}

func (s *LocalStorage) checkBucket(bucket string) error {
	exists, err := s.BucketExists(context.Background(), bucket)
	if err != nil {
		return err
	}
	if !exists {
		return &BucketNotFoundError{Bucket: bucket}
	}
	return nil
}

func (s *LocalStorage) objectPath(bucket, key string) string {
	// path.Clean keeps keys like "../x" from escaping the bucket directory
	clean := strings.TrimPrefix(path.Clean("/"+key), "/")
	return filepath.Join(s.basePath, bucket, filepath.FromSlash(clean))
}
