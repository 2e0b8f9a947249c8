// Package blobstore abstracts where packed archives live: local filesystem,
// memory (tests), or S3-compatible object storage.
//
// Archives are immutable once written, so the interface is a plain
// put/get/list/delete surface with no partial-update semantics.
package blobstore

import (
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies
// `errors.Is(err, ErrNotFound)`. The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// Store is an abstraction for reading and writing immutable archive blobs.
type Store interface {
	// Put writes a blob under the given key, replacing any existing blob.
	// size is the total payload length; implementations that need a known
	// length up front (object stores) rely on it, others may ignore it.
	Put(ctx context.Context, key string, r io.Reader, size int64) error

	// Get opens a blob for reading. The caller closes the returned reader.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, key string) error

	// List returns the keys under the given prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}
