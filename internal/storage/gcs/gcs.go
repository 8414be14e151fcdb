package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"

	gcstorage "cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/comfyhome/storefront/internal/storage"
	apperrors "github.com/comfyhome/storefront/pkg/errors"
)

// NewClient creates a Google Cloud Storage client. If credsPath is empty,
// application default credentials are used.
func NewClient(ctx context.Context, credsPath string, opts ...option.ClientOption) (*gcstorage.Client, error) {
	if credsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credsPath))
	}
	client, err := gcstorage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return client, nil
}

// Storage implements storage.Storage on a GCS bucket with public read access.
type Storage struct {
	client *gcstorage.Client
	bucket string
}

// New creates a GCS-backed storage for bucket.
func New(client *gcstorage.Client, bucket string) *Storage {
	return &Storage{client: client, bucket: bucket}
}

// Upload streams the file into the bucket.
func (s *Storage) Upload(ctx context.Context, input *storage.UploadInput) (*storage.UploadResult, error) {
	w := s.client.Bucket(s.bucket).Object(input.Key).NewWriter(ctx)
	w.ContentType = input.ContentType
	w.ChunkSize = 0 // single request for small images

	if _, err := io.Copy(w, input.Data); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("upload object %s: %w", input.Key, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalize object %s: %w", input.Key, err)
	}

	return &storage.UploadResult{
		Key: input.Key,
		URL: PublicURL(s.bucket, input.Key),
	}, nil
}

// Delete removes the object stored under key.
func (s *Storage) Delete(ctx context.Context, key string) error {
	err := s.client.Bucket(s.bucket).Object(key).Delete(ctx)
	if errors.Is(err, gcstorage.ErrObjectNotExist) {
		return apperrors.NotFound("file", key)
	}
	if err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

// Close releases the underlying client.
func (s *Storage) Close() error {
	return s.client.Close()
}

// PublicURL builds the public URL of an object.
func PublicURL(bucket, key string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, key)
}
