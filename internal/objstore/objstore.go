// Package objstore implements the object storage layer.
//
// The Store interface is a deliberately small boundary over whatever holds
// the backed-up objects: Exists/Get/Put on flat keys. The S3 implementation
// is the production backend; Memory backs tests and keeps the sync engine
// free of AWS types.
package objstore

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound reports that a key has no object behind it. Implementations
// return it (possibly wrapped) so callers can tell a missing object from a
// transport failure.
var ErrNotFound = errors.New("objstore: object not found")

// Store handles remote object storage.
type Store interface {
	// Exists checks whether an object is present at key.
	Exists(ctx context.Context, key string) (bool, error)

	// Get opens the object at key for reading. The caller closes the reader.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Put writes size bytes from body to key, replacing any existing object.
	Put(ctx context.Context, key string, body io.Reader, size int64) error
}
