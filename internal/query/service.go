// Package query implements the read side: listing audit entries by time
// range and retrieving stored payloads by identifier.
package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/i474232898/weather-audit/internal/storage"
)

// ErrInvalidInput marks a client-side validation failure. HTTP handlers
// map it to a 400 response.
var ErrInvalidInput = errors.New("invalid input")

// Service reads history from the log store and cross-references payloads
// in the object store. It is independent of the write path except for
// the shared storage.
type Service struct {
	logs  storage.LogStore
	blobs storage.ObjectStore
}

// NewService creates a Service over the given stores.
func NewService(logs storage.LogStore, blobs storage.ObjectStore) *Service {
	return &Service{
		logs:  logs,
		blobs: blobs,
	}
}

// ListLogs returns all entries with timestamp in [from, to] inclusive,
// in store-native order, fully materialized.
func (s *Service) ListLogs(ctx context.Context, from, to time.Time) ([]storage.LogEntry, error) {
	entries, err := s.logs.QueryRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("query logs: %w", err)
	}
	if entries == nil {
		entries = []storage.LogEntry{}
	}
	return entries, nil
}

// GetPayload returns the stored payload for the entry with the given row
// key, or storage.ErrNotFound if no blob named "{id}.json" exists. A
// blank id is ErrInvalidInput.
func (s *Service) GetPayload(ctx context.Context, id string) ([]byte, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: invalid id: %q", ErrInvalidInput, id)
	}

	name := id + ".json"
	exists, err := s.blobs.Exists(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("check payload %q: %w", name, err)
	}
	if !exists {
		return nil, storage.ErrNotFound
	}

	data, err := s.blobs.Download(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("download payload %q: %w", name, err)
	}
	return data, nil
}
