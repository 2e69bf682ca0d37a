package object

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when no object exists for a storage key.
var ErrNotFound = errors.New("object not found")

// ObjectStore defines the contract for saving, retrieving and deleting binary objects.
// The storage key returned by Save is the object's immutable identity.
type ObjectStore interface {
	Save(ctx context.Context, fileName string, r io.Reader) (storageKey string, sizeBytes int64, mimeType string, err error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	Delete(ctx context.Context, storageKey string) error
}
