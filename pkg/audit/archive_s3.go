package audit

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ArchiveStore persists evidence packs for long-term retention.
type ArchiveStore interface {
	// Put stores data under key and returns a location reference.
	Put(ctx context.Context, key string, data []byte) (string, error)
	// Get retrieves a previously stored object.
	Get(ctx context.Context, key string) ([]byte, error)
}

// S3ArchiveStore stores evidence packs in an S3 bucket.
type S3ArchiveStore struct {
	client *s3.Client
	bucket string
	prefix string
}

// S3ArchiveConfig configures an S3ArchiveStore. Endpoint is optional and
// supports MinIO or LocalStack.
type S3ArchiveConfig struct {
	Bucket   string
	Region   string
	Endpoint string
	Prefix   string
}

// NewS3ArchiveStore creates an S3-backed archive.
func NewS3ArchiveStore(ctx context.Context, cfg S3ArchiveConfig) (*S3ArchiveStore, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("audit: load AWS config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3ArchiveStore{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (s *S3ArchiveStore) Put(ctx context.Context, key string, data []byte) (string, error) {
	fullKey := s.prefix + key
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(fullKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/zip"),
	})
	if err != nil {
		return "", fmt.Errorf("audit: s3 put %s: %w", fullKey, err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, fullKey), nil
}

func (s *S3ArchiveStore) Get(ctx context.Context, key string) ([]byte, error) {
	fullKey := s.prefix + key
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(fullKey),
	})
	if err != nil {
		return nil, fmt.Errorf("audit: s3 get %s: %w", fullKey, err)
	}
	defer func() { _ = result.Body.Close() }()
	return io.ReadAll(result.Body)
}
