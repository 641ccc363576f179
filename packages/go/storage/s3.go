package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/nicholaszhao/uptime-report-pdf/packages/go/models"
)

// s3API is the subset of *s3.Client used by S3Storage
type s3API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Storage implements ObjectStore for AWS S3
type S3Storage struct {
	client s3API
}

// LoadAWSConfig loads the shared AWS configuration. An empty region defers to
// the SDK's default resolution chain.
func LoadAWSConfig(ctx context.Context, region string) (aws.Config, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading AWS config: %w", err)
	}
	return cfg, nil
}

// NewS3Storage creates a new S3 storage instance
func NewS3Storage(ctx context.Context, region string) (*S3Storage, error) {
	cfg, err := LoadAWSConfig(ctx, region)
	if err != nil {
		return nil, err
	}

	return &S3Storage{client: s3.NewFromConfig(cfg)}, nil
}

// NewS3StorageFromClient wraps an existing S3 client
func NewS3StorageFromClient(client *s3.Client) *S3Storage {
	return &S3Storage{client: client}
}

// Get retrieves an object from S3
func (s *S3Storage) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, classifyS3Error(err, bucket, key, "getting S3 object")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading S3 object body: %w", err)
	}

	return data, nil
}

// Put stores an object in S3
func (s *S3Storage) Put(ctx context.Context, bucket, key string, data []byte, opts PutOptions) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}
	if opts.CacheControl != "" {
		input.CacheControl = aws.String(opts.CacheControl)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return classifyS3Error(err, bucket, key, "uploading to S3")
	}

	return nil
}

// List walks every ListObjectsV2 page under prefix
func (s *S3Storage) List(ctx context.Context, bucket, prefix string, fn func(page []models.ObjectInfo) error) error {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})

	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return classifyS3Error(err, bucket, "", "listing S3 objects")
		}

		page := make([]models.ObjectInfo, 0, len(out.Contents))
		for _, obj := range out.Contents {
			page = append(page, models.ObjectInfo{
				Key:          aws.ToString(obj.Key),
				LastModified: aws.ToTime(obj.LastModified),
				Size:         aws.ToInt64(obj.Size),
			})
		}

		if err := fn(page); err != nil {
			return err
		}
	}

	return nil
}

// BucketExists checks the bucket with HeadBucket
func (s *S3Storage) BucketExists(ctx context.Context, bucket string) (bool, error) {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(bucket),
	})
	if err == nil {
		return true, nil
	}

	err = classifyS3Error(err, bucket, "", "checking S3 bucket")
	if IsBucketNotFoundError(err) {
		return false, nil
	}
	return false, err
}

// classifyS3Error maps S3 not-found responses onto the storage error types
func classifyS3Error(err error, bucket, key, op string) error {
	var noSuchKey *types.NoSuchKey
	var noSuchBucket *types.NoSuchBucket
	var notFound *types.NotFound

	switch {
	case errors.As(err, &noSuchKey):
		return &ObjectNotFoundError{Bucket: bucket, Key: key}
	case errors.As(err, &noSuchBucket):
		return &BucketNotFoundError{Bucket: bucket}
	case errors.As(err, &notFound):
		// HEAD responses carry no body, so a 404 is all S3 reports
		if key == "" {
			return &BucketNotFoundError{Bucket: bucket}
		}
		return &ObjectNotFoundError{Bucket: bucket, Key: key}
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey":
			return &ObjectNotFoundError{Bucket: bucket, Key: key}
		case "NoSuchBucket":
			return &BucketNotFoundError{Bucket: bucket}
		}
	}

	return fmt.Errorf("%s: %w", op, err)
}
