// Package storage provides the durable key/value store consumed by the
// memory engine. Keys are engine-constructed strings; the store treats
// them as opaque.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Retrieve when no record exists for a key.
var ErrNotFound = errors.New("storage: key not found")

// Writer persists records under opaque keys.
type Writer interface {
	Store(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
}

// Reader fetches records by key or key prefix.
type Reader interface {
	// Retrieve unmarshals the record at key into out.
	// Returns ErrNotFound when the key is absent.
	Retrieve(ctx context.Context, key string, out any) error

	// Scan returns all keys with the given prefix in lexicographic order.
	Scan(ctx context.Context, prefix string) ([]string, error)
}

// Cleaner evicts expired records per the store's own retention policy.
type Cleaner interface {
	Cleanup(ctx context.Context) error
}

// Stats provides operational counters.
type Stats interface {
	Stats() (keyCount int, dbSizeBytes int64)
}

// Lifecycle manages store lifecycle.
type Lifecycle interface {
	Close() error
}

// DurableStore is the complete contract the engine consumes.
type DurableStore interface {
	Writer
	Reader
	Cleaner
	Stats
	Lifecycle
}
