package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/comfyhome/storefront/internal/storage"
	apperrors "github.com/comfyhome/storefront/pkg/errors"
)

// Storage implements storage.Storage on the local filesystem. Files are
// served by the HTTP layer under urlPrefix.
type Storage struct {
	dir       string
	urlPrefix string
}

// New creates a local storage rooted at dir, creating it if needed.
func New(dir, urlPrefix string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Storage{dir: dir, urlPrefix: strings.TrimRight(urlPrefix, "/")}, nil
}

// Dir returns the root directory.
func (s *Storage) Dir() string {
	return s.dir
}

// Upload writes the file to disk and returns its public URL.
func (s *Storage) Upload(ctx context.Context, input *storage.UploadInput) (*storage.UploadResult, error) {
	p, err := s.path(input.Key)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Create(p)
	if err != nil {
		return nil, fmt.Errorf("create file %s: %w", input.Key, err)
	}
	if _, err := io.Copy(f, input.Data); err != nil {
		_ = f.Close()
		_ = os.Remove(p)
		return nil, fmt.Errorf("write file %s: %w", input.Key, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close file %s: %w", input.Key, err)
	}

	return &storage.UploadResult{
		Key: input.Key,
		URL: s.urlPrefix + "/" + input.Key,
	}, nil
}

// Delete removes the file stored under key.
func (s *Storage) Delete(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return apperrors.NotFound("file", key)
		}
		return fmt.Errorf("remove file %s: %w", key, err)
	}
	return nil
}

// path resolves key inside the root, rejecting keys that escape it.
func (s *Storage) path(key string) (string, error) {
	if key == "" || !filepath.IsLocal(key) || strings.ContainsAny(key, `/\`) {
		return "", apperrors.InvalidInput("invalid file key")
	}
	return filepath.Join(s.dir, key), nil
}
