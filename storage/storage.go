package storage

import (
	"context"
	"io"
)

// Storage is a flat key/value object store.
type Storage interface {
	// Put writes the content of r under key, replacing any existing object.
	Put(ctx context.Context, key string, r io.Reader, contentType string) error

	// Get returns a reader for key. The caller closes it. A missing key is a
	// NOT_FOUND AppError.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes key. A missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Location returns a human-readable URI for key (file://, s3://).
	Location(key string) string
}
