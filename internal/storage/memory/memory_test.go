package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-audit/internal/storage"
)

func TestObjectStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewObjectStore()
	require.NoError(t, s.EnsureContainer(ctx))

	payload := []byte(`{"name":"London","cod":200}`)
	require.NoError(t, s.Upload(ctx, "a.json", payload, true))

	exists, err := s.Exists(ctx, "a.json")
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := s.Download(ctx, "a.json")
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestObjectStoreMissingBlob(t *testing.T) {
	ctx := context.Background()
	s := NewObjectStore()

	exists, err := s.Exists(ctx, "missing.json")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = s.Download(ctx, "missing.json")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestObjectStoreOverwrite(t *testing.T) {
	ctx := context.Background()
	s := NewObjectStore()

	require.NoError(t, s.Upload(ctx, "a.json", []byte("one"), true))
	require.NoError(t, s.Upload(ctx, "a.json", []byte("two"), true))

	got, err := s.Download(ctx, "a.json")
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), got)

	err = s.Upload(ctx, "a.json", []byte("three"), false)
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)
}

func TestObjectStoreList(t *testing.T) {
	ctx := context.Background()
	s := NewObjectStore()

	require.NoError(t, s.Upload(ctx, "b.json", []byte("b"), true))
	require.NoError(t, s.Upload(ctx, "a.json", []byte("a"), true))

	names, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.json", "b.json"}, names)
}

func TestLogStoreQueryRangeBoundariesInclusive(t *testing.T) {
	ctx := context.Background()
	s := NewLogStore()

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC)

	atFrom := storage.NewLogEntry(from)
	atTo := storage.NewLogEntry(to)
	before := storage.NewLogEntry(from.Add(-time.Second))
	after := storage.NewLogEntry(to.Add(time.Second))
	inside := storage.NewLogEntry(time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC))

	for _, e := range []storage.LogEntry{before, atFrom, inside, atTo, after} {
		require.NoError(t, s.Insert(ctx, e))
	}

	got, err := s.QueryRange(ctx, from, to)
	require.NoError(t, err)
	require.Len(t, got, 3)

	keys := make(map[string]bool)
	for _, e := range got {
		keys[e.RowKey] = true
	}
	assert.True(t, keys[atFrom.RowKey], "entry exactly at from must be included")
	assert.True(t, keys[atTo.RowKey], "entry exactly at to must be included")
	assert.True(t, keys[inside.RowKey])
	assert.False(t, keys[before.RowKey])
	assert.False(t, keys[after.RowKey])
}

func TestLogStoreEmptyRange(t *testing.T) {
	ctx := context.Background()
	s := NewLogStore()

	entry := storage.NewLogEntry(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, s.Insert(ctx, entry))

	got, err := s.QueryRange(ctx,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, got)
}
