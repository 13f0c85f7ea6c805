package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/richxcame/giveaway/pkg/config"
)

// Storage persists uploaded participant photos and generated exports. The
// core never touches the filesystem or the bucket directly; it only works
// with keys.
type Storage interface {
	Save(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Read(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// New selects a backend from configuration.
func New(cfg *config.StorageConfig) (Storage, error) {
	switch cfg.Provider {
	case "s3":
		return NewS3Storage(cfg)
	case "", "local":
		return NewLocalStorage(cfg.LocalPath)
	default:
		return nil, fmt.Errorf("unknown storage provider: %s", cfg.Provider)
	}
}

// PhotoKey builds the storage key for a participant's leaflet photo.
func PhotoKey(accountID int64, now time.Time) string {
	return fmt.Sprintf("user_%d_%s.jpg", accountID, now.Format("20060102_150405"))
}

// LocalStorage keeps files under a base directory on disk.
type LocalStorage struct {
	base string
}

// NewLocalStorage creates the base directory if needed.
func NewLocalStorage(base string) (*LocalStorage, error) {
	if base == "" {
		base = "photos"
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("unable to create storage dir: %w", err)
	}
	return &LocalStorage{base: base}, nil
}

// Save writes the file and returns its key, which Read and Delete accept.
func (s *LocalStorage) Save(_ context.Context, key string, data []byte, _ string) (string, error) {
	path := filepath.Join(s.base, filepath.Clean(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return key, nil
}

// Read returns the file contents.
func (s *LocalStorage) Read(_ context.Context, key string) ([]byte, error) {
	return os.ReadFile(filepath.Join(s.base, filepath.Clean(key)))
}

// Delete removes the file; missing files are not an error.
func (s *LocalStorage) Delete(_ context.Context, key string) error {
	err := os.Remove(filepath.Join(s.base, filepath.Clean(key)))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
