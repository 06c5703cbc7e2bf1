// Package storage reads result objects from a bucket. Every backend lists
// by prefix and fetches whole objects; writes belong to the worker.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
)

// ObjectInfo is the listing view of one object.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ContentType  string
}

// ObjectStore is implemented by every storage backend.
type ObjectStore interface {
	// List returns all objects whose key starts with prefix, across pages.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)

	// Get returns the full content of key. Missing objects yield ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	Close() error
}

// Sentinel errors shared by the backends.
var (
	ErrNotFound       = errors.New("object not found")
	ErrBucketNotFound = errors.New("bucket not found")
	ErrAccessDenied   = errors.New("access denied")
	ErrUnavailable    = errors.New("storage unavailable")
)

// Error carries the operation and object that failed.
type Error struct {
	Op      string
	Backend string
	Bucket  string
	Key     string
	Err     error
}

func (e *Error) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s %s: %s/%s: %v", e.Backend, e.Op, e.Bucket, e.Key, e.Err)
	}
	return fmt.Sprintf("%s %s: %s: %v", e.Backend, e.Op, e.Bucket, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// wrap builds an *Error, marking it with kind when kind is non-nil so that
// errors.Is matches both the sentinel and the original SDK error.
func wrap(backend, op, bucket, key string, err, kind error) error {
	e := &Error{Op: op, Backend: backend, Bucket: bucket, Key: key, Err: err}
	if kind != nil {
		return errors.Mark(e, kind)
	}
	return e
}

// IsNotFound reports whether err means the object does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
