package storage

import (
	"context"
	"errors"
)

// ErrObjectNotFound is returned by Get when the key does not exist.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStorage stores exported reports.
type ObjectStorage interface {
	// Put writes body under key, replacing any existing object.
	Put(ctx context.Context, key string, body []byte, contentType string) error

	// Get reads the object stored under key.
	Get(ctx context.Context, key string) ([]byte, error)

	// URL returns the address clients use to fetch key.
	URL(key string) string

	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
}
