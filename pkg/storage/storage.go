// Package storage abstracts where uploaded dataset files live. Two
// backends are provided: the local filesystem for development and a
// MinIO/S3 bucket for deployments.
package storage

import (
	"context"
	"io"
)

// ObjectStore stores and retrieves uploaded dataset files by key.
type ObjectStore interface {
	// Put writes the object, replacing any existing object with the same key.
	Put(ctx context.Context, key string, r io.Reader, size int64) error

	// Get opens the object for reading. The caller closes the returned reader.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error
}
