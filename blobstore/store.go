// Package blobstore abstracts where model archives live. Archives are small
// and read in one piece, so the interface is whole-blob Get/Put rather than
// random access.
package blobstore

import (
	"context"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies
// `errors.Is(err, ErrNotFound)`. The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// Store is an abstraction for reading and writing model archives.
type Store interface {
	// Get returns the full content of the named blob.
	Get(ctx context.Context, name string) ([]byte, error)

	// Put writes the named blob atomically, replacing any previous content.
	Put(ctx context.Context, name string, data []byte) error

	// Delete removes the named blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error
}
