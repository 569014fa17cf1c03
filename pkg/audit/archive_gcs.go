//go:build gcp
// +build gcp

package audit

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
)

// GCSArchiveStore stores evidence packs in a Google Cloud Storage bucket.
type GCSArchiveStore struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSArchiveStore creates a GCS-backed archive using application
// default credentials.
func NewGCSArchiveStore(ctx context.Context, bucket, prefix string) (*GCSArchiveStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("audit: gcs client: %w", err)
	}
	return &GCSArchiveStore{client: client, bucket: bucket, prefix: prefix}, nil
}

func (s *GCSArchiveStore) Put(ctx context.Context, key string, data []byte) (string, error) {
	fullKey := s.prefix + key
	w := s.client.Bucket(s.bucket).Object(fullKey).NewWriter(ctx)
	w.ContentType = "application/zip"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("audit: gcs write %s: %w", fullKey, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("audit: gcs close %s: %w", fullKey, err)
	}
	return fmt.Sprintf("gs://%s/%s", s.bucket, fullKey), nil
}

func (s *GCSArchiveStore) Get(ctx context.Context, key string) ([]byte, error) {
	fullKey := s.prefix + key
	r, err := s.client.Bucket(s.bucket).Object(fullKey).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("audit: gcs read %s: %w", fullKey, err)
	}
	defer func() { _ = r.Close() }()
	return io.ReadAll(r)
}

// Close releases the underlying client.
func (s *GCSArchiveStore) Close() error { return s.client.Close() }
