package storage

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by Store wraps exactly one of them.
var (
	ErrBadRequest = errors.New("bad request")
	ErrNotFound   = errors.New("not found")
	ErrStorage    = errors.New("storage failure")
)

var (
	ErrEmptyImage       = fmt.Errorf("%w: empty image data", ErrBadRequest)
	ErrImageTooLarge    = fmt.Errorf("%w: image too large (max 10MB)", ErrBadRequest)
	ErrUnsupportedType  = fmt.Errorf("%w: unsupported image format, supported formats: JPEG, PNG, WebP", ErrBadRequest)
	ErrInvalidName      = fmt.Errorf("%w: invalid image name", ErrBadRequest)
	ErrImageNotFound    = fmt.Errorf("%w: image not found", ErrNotFound)
	ErrStorageUnhealthy = fmt.Errorf("%w: storage directory unavailable", ErrStorage)
)

// storageError wraps an I/O failure with the ErrStorage kind.
func storageError(op string, err error) error {
	return fmt.Errorf("%w: failed to %s: %w", ErrStorage, op, err)
}
