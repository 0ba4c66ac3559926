package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when a content key has no stored object.
var ErrNotFound = errors.New("content not found")

// ContentStore is byte-addressable storage for uploaded file content.
// Keys are opaque identifiers generated by the caller; a stored object
// is immutable for the life of its key.
type ContentStore interface {
	Put(ctx context.Context, key string, r io.Reader) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
	Size(ctx context.Context, key string) (int64, error)
	Delete(ctx context.Context, key string) error
}
