// Package memory provides in-process implementations of the storage
// contracts. It backs local development runs that have no storage
// connection string configured, and serves as the test double for the
// pipeline and query layers.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/i474232898/weather-audit/internal/storage"
)

// ObjectStore is a concurrency-safe in-memory blob container.
type ObjectStore struct {
	mu      sync.RWMutex
	created bool
	objects map[string][]byte
}

// NewObjectStore creates an empty in-memory object store.
func NewObjectStore() *ObjectStore {
	return &ObjectStore{
		objects: make(map[string][]byte),
	}
}

func (s *ObjectStore) EnsureContainer(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.created = true
	return nil
}

func (s *ObjectStore) Exists(ctx context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.objects[name]
	return ok, nil
}

func (s *ObjectStore) Upload(ctx context.Context, name string, data []byte, overwrite bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.objects[name]; ok && !overwrite {
		return storage.ErrAlreadyExists
	}

	// Copy so callers cannot mutate stored content afterwards.
	buf := make([]byte, len(data))
	copy(buf, data)
	s.objects[name] = buf
	return nil
}

func (s *ObjectStore) Download(ctx context.Context, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.objects[name]
	if !ok {
		return nil, storage.ErrNotFound
	}

	buf := make([]byte, len(data))
	copy(buf, data)
	return buf, nil
}

func (s *ObjectStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.objects))
	for name := range s.objects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// LogStore is a concurrency-safe in-memory audit log table.
type LogStore struct {
	mu      sync.RWMutex
	created bool
	entries []storage.LogEntry
}

// NewLogStore creates an empty in-memory log store.
func NewLogStore() *LogStore {
	return &LogStore{}
}

func (s *LogStore) EnsureTable(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.created = true
	return nil
}

func (s *LogStore) Insert(ctx context.Context, entry storage.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, entry)
	return nil
}

// QueryRange returns all entries with Timestamp in [from, to] inclusive,
// in insertion order.
func (s *LogStore) QueryRange(ctx context.Context, from, to time.Time) ([]storage.LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []storage.LogEntry
	for _, entry := range s.entries {
		if (entry.Timestamp.Equal(from) || entry.Timestamp.After(from)) &&
			(entry.Timestamp.Equal(to) || entry.Timestamp.Before(to)) {
			result = append(result, entry)
		}
	}
	return result, nil
}

// Entries returns a copy of everything inserted so far, in insertion
// order. Intended for tests asserting on write counts.
func (s *LogStore) Entries() []storage.LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]storage.LogEntry, len(s.entries))
	copy(out, s.entries)
	return out
}
