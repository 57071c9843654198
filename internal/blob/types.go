// Package blob provides a thin versioned object-store abstraction used by the
// logbook service. Semantics intentionally mirror a minimal subset of S3
// conditional writes so that an S3 adapter can be nearly 1:1 while filesystem
// and in-memory adapters can emulate them.
package blob

import (
	"context"
	"errors"
	"time"
)

// Driver identifies a concrete object storage backend implementation.
type Driver string

const (
	// DriverFilesystem represents the local filesystem implementation.
	DriverFilesystem Driver = "fs" // local filesystem (default, dev)
	// DriverS3 represents an S3 / MinIO compatible implementation.
	DriverS3 Driver = "s3" // S3 / MinIO compatible
	// DriverMemory represents an in-memory implementation typically used in tests.
	DriverMemory Driver = "memory" // in-memory (tests)
)

// WriteOptions specifies optional parameters for Write.
type WriteOptions struct {
	ContentType string // MIME type, optional
	// ExpectedVersion makes the write conditional when non-nil. An empty
	// string requires that the key does not exist yet; any other value must
	// equal the version currently stored. A failed precondition surfaces as
	// ErrVersionConflict and leaves the stored object untouched.
	ExpectedVersion *string
}

// Info describes a stored object.
type Info struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size_bytes"`
	ContentType  string    `json:"content_type,omitempty"`
	Version      string    `json:"version"`
	LastModified time.Time `json:"last_modified"`
}

// Store is the interface for versioned object storage backends.
//
// Read returns the full object content together with the version token that
// Write accepts back as ExpectedVersion, which is the whole concurrency story
// of the logbook: download, mutate in memory, conditional save, retry on
// conflict.
type Store interface {
	Exists(ctx context.Context, key string) (bool, error)
	Read(ctx context.Context, key string) ([]byte, Info, error)
	Write(ctx context.Context, key string, data []byte, opts WriteOptions) (Info, error)
	Driver() Driver
}

// ErrNotFound is returned by Read for keys that were never written.
var ErrNotFound = errors.New("blobstore: object not found")

// ErrVersionConflict is returned by Write when ExpectedVersion no longer
// matches the stored object, i.e. another writer got there first.
var ErrVersionConflict = errors.New("blobstore: version conflict")

// CondVersion is a convenience for building a conditional WriteOptions value.
func CondVersion(v string) *string { return &v }
