package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a requested blob or log entry does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned by Upload when overwrite is disabled
	// and an object with the same name is already stored.
	ErrAlreadyExists = errors.New("already exists")
)

// ObjectStore abstracts the blob container holding raw weather payloads.
// Objects are addressed by name within a single container.
type ObjectStore interface {
	// EnsureContainer creates the backing container if it does not exist.
	// It is safe to call when the container is already present.
	EnsureContainer(ctx context.Context) error

	// Exists reports whether an object with the given name is stored.
	Exists(ctx context.Context, name string) (bool, error)

	// Upload stores data under name. With overwrite set, an existing
	// object of the same name is replaced; otherwise ErrAlreadyExists.
	Upload(ctx context.Context, name string, data []byte, overwrite bool) error

	// Download returns the stored content, or ErrNotFound.
	Download(ctx context.Context, name string) ([]byte, error)

	// List returns the names of all stored objects.
	List(ctx context.Context) ([]string, error)
}

// LogStore abstracts the partition/row-keyed table holding audit entries.
type LogStore interface {
	// EnsureTable creates the backing table if it does not exist.
	EnsureTable(ctx context.Context) error

	// Insert appends one entry. Entries are write-once; row key
	// collisions are a caller bug.
	Insert(ctx context.Context, entry LogEntry) error

	// QueryRange returns all entries whose Timestamp falls in [from, to]
	// inclusive, in store-native order.
	QueryRange(ctx context.Context, from, to time.Time) ([]LogEntry, error)
}
