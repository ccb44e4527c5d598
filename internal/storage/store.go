// Package storage keeps uploaded images on the local filesystem.
package storage

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/disk"
)

// MaxImageSize is the largest accepted upload, in bytes.
const MaxImageSize = 10 * 1024 * 1024

// URLPrefix is where the API serves stored images from.
const URLPrefix = "/api/images/"

// ImageStore is the behaviour the service layer needs from image storage.
type ImageStore interface {
	Upload(ctx context.Context, data []byte, contentType, filename string) (string, error)
	Get(ctx context.Context, storageName string) ([]byte, string, error)
	Delete(ctx context.Context, storageName string) error
	URL(storageName string) string
	HealthCheck(ctx context.Context) (bool, error)
	Usage(ctx context.Context) (*disk.UsageStat, error)
	Root() string
}

// Store writes images into a single flat directory.
type Store struct {
	root string
}

// New creates the storage directory if needed and returns a Store rooted there.
func New(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, storageError("create storage directory", err)
	}
	log.Info().Str("path", root).Msg("Storage initialized with local filesystem")
	return &Store{root: root}, nil
}

// Root returns the directory images are kept in.
func (s *Store) Root() string {
	return s.root
}

// Upload validates the image and writes it under a fresh random name, which
// it returns. filename is the client's original name and is only logged.
func (s *Store) Upload(ctx context.Context, data []byte, contentType, filename string) (string, error) {
	if err := validateImage(data, contentType); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	storageName := uuid.New().String() + ExtensionFor(contentType)
	if err := os.WriteFile(filepath.Join(s.root, storageName), data, 0o644); err != nil {
		return "", storageError("write file", err)
	}

	log.Info().Str("storage_name", storageName).Str("original_name", filename).Int("size", len(data)).Msg("Uploaded image")
	return storageName, nil
}

// Get reads a stored image and infers its content type from the extension.
func (s *Store) Get(ctx context.Context, storageName string) ([]byte, string, error) {
	path, err := s.path(storageName)
	if err != nil {
		return nil, "", err
	}
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, "", ErrImageNotFound
		}
		return nil, "", storageError("read image", err)
	}
	return data, ContentTypeFor(storageName), nil
}

// Delete removes a stored image. Deleting a missing image is not an error.
func (s *Store) Delete(ctx context.Context, storageName string) error {
	path, err := s.path(storageName)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return storageError("delete image", err)
	}

	log.Info().Str("storage_name", storageName).Msg("Deleted image")
	return nil
}

// URL returns the API path an image is served from.
func (s *Store) URL(storageName string) string {
	return URLPrefix + storageName
}

// HealthCheck reports whether the storage directory exists and is a directory.
func (s *Store) HealthCheck(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	info, err := os.Stat(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, storageError("stat storage directory", err)
	}
	return info.IsDir(), nil
}

// Usage reports space on the filesystem that holds the storage directory.
func (s *Store) Usage(ctx context.Context) (*disk.UsageStat, error) {
	usage, err := disk.UsageWithContext(ctx, s.root)
	if err != nil {
		return nil, storageError("read disk usage", err)
	}
	return usage, nil
}

// path resolves a storage name inside root, refusing anything that is not a
// plain file name.
func (s *Store) path(storageName string) (string, error) {
	if storageName == "" || storageName == "." || storageName == ".." ||
		strings.ContainsAny(storageName, `/\`) || filepath.Base(storageName) != storageName {
		return "", ErrInvalidName
	}
	return filepath.Join(s.root, storageName), nil
}

func validateImage(data []byte, contentType string) error {
	if len(data) == 0 {
		return ErrEmptyImage
	}
	if len(data) > MaxImageSize {
		return ErrImageTooLarge
	}
	if !IsSupportedContentType(contentType) {
		return ErrUnsupportedType
	}
	return nil
}
