// Package storage abstracts the object sink recordings are streamed into.
// Backends register themselves by name (local, s3, memory); callers import
// the backend package for its side effect and construct through New.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is wrapped by backends when an object does not exist.
var ErrNotFound = errors.New("storage: object not found")

// Metadata is stored alongside an object.
type Metadata map[string]string

// FileInfo describes a stored object.
type FileInfo struct {
	Path         string
	Size         int64
	LastModified time.Time
	ContentType  string
	Metadata     Metadata
}

// ObjectWriter streams one object into the sink. Exactly one of Close or
// Abort ends it: Close publishes everything written under the key, Abort
// leaves no object behind.
type ObjectWriter interface {
	io.Writer
	Close() error
	Abort() error
}

// Storage is an object store.
type Storage interface {
	// Create opens a streaming writer for path. The object is not visible
	// until the writer is closed.
	Create(ctx context.Context, path string, meta Metadata) (ObjectWriter, error)

	// Upload writes reader to path in one call.
	Upload(ctx context.Context, path string, reader io.Reader, meta Metadata) error

	// Download returns the object's content. The caller closes it.
	Download(ctx context.Context, path string) (io.ReadCloser, error)

	// Stat returns the object's info, wrapping ErrNotFound when absent.
	Stat(ctx context.Context, path string) (*FileInfo, error)

	// Delete removes the object; deleting a missing object is not an error.
	Delete(ctx context.Context, path string) error

	Exists(ctx context.Context, path string) (bool, error)

	// URL returns a location for the object suitable for logs and clients.
	URL(ctx context.Context, path string) (string, error)

	// List returns objects whose path starts with prefix, sorted by path.
	List(ctx context.Context, prefix string) ([]FileInfo, error)
}

// IsNotFound reports whether err means the object does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
