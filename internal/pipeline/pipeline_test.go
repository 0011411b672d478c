package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/i474232898/weather-audit/internal/storage"
	"github.com/i474232898/weather-audit/internal/storage/memory"
	"github.com/i474232898/weather-audit/internal/weather"
)

type fixedClock struct {
	t time.Time
}

func (c fixedClock) Now() time.Time { return c.t }

type stubFetcher struct {
	snap  *weather.Snapshot
	err   error
	calls atomic.Int32
}

func (f *stubFetcher) FetchCurrentWeather(ctx context.Context) (*weather.Snapshot, error) {
	f.calls.Add(1)
	return f.snap, f.err
}

type uploadFailingStore struct {
	*memory.ObjectStore
}

func (s *uploadFailingStore) Upload(ctx context.Context, name string, data []byte, overwrite bool) error {
	return errors.New("upload exploded")
}

type insertFailingLogStore struct {
	*memory.LogStore
}

func (s *insertFailingLogStore) Insert(ctx context.Context, entry storage.LogEntry) error {
	return errors.New("insert exploded")
}

type tableFailingLogStore struct {
	*memory.LogStore
}

func (s *tableFailingLogStore) EnsureTable(ctx context.Context) error {
	return errors.New("table creation denied")
}

func sampleSnapshot() *weather.Snapshot {
	return &weather.Snapshot{
		Coord:   weather.Coord{Lat: 51.5074, Lon: -0.1278},
		Weather: []weather.Condition{{ID: 800, Main: "Clear", Description: "clear sky", Icon: "01d"}},
		Base:    "stations",
		Main:    weather.Main{Temp: 15.5, FeelsLike: 14.8, TempMin: 12.0, TempMax: 17.2, Pressure: 1012, Humidity: 60},
		Wind:    weather.Wind{Speed: 3.5, Deg: 220},
		Dt:      1711363200,
		Sys:     weather.Sys{Country: "GB", Sunrise: 1711327200, Sunset: 1711370400},
		ID:      2643743,
		Name:    "London",
		Cod:     200,
	}
}

func newPipeline(fetcher Fetcher, blobs storage.ObjectStore, logs storage.LogStore, now time.Time) *Pipeline {
	nop := zap.NewNop()
	return New(fetcher, blobs, logs, NewProvisioner(logs, blobs, nop), fixedClock{t: now}, nop)
}

func TestRunSuccess(t *testing.T) {
	now := time.Date(2024, 3, 25, 8, 0, 0, 0, time.UTC)
	blobs := memory.NewObjectStore()
	logs := memory.NewLogStore()
	fetcher := &stubFetcher{snap: sampleSnapshot()}

	err := newPipeline(fetcher, blobs, logs, now).Run(context.Background())
	require.NoError(t, err)

	entries := logs.Entries()
	require.Len(t, entries, 1)

	entry := entries[0]
	assert.Equal(t, storage.LogPartition, entry.PartitionKey)
	assert.NotEmpty(t, entry.RowKey)
	assert.Equal(t, now, entry.Timestamp)
	assert.True(t, entry.Success)
	assert.Equal(t, entry.RowKey+".json", entry.BlobName)
	assert.Empty(t, entry.ErrorMessage)

	stored, err := blobs.Download(context.Background(), entry.BlobName)
	require.NoError(t, err)

	want, err := json.Marshal(fetcher.snap)
	require.NoError(t, err)
	assert.Equal(t, want, stored)
}

func TestRunNoData(t *testing.T) {
	now := time.Date(2024, 3, 25, 8, 0, 0, 0, time.UTC)
	blobs := memory.NewObjectStore()
	logs := memory.NewLogStore()

	err := newPipeline(&stubFetcher{}, blobs, logs, now).Run(context.Background())
	require.NoError(t, err)

	entries := logs.Entries()
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Success)
	assert.Equal(t, "No data found", entries[0].ErrorMessage)
	assert.Empty(t, entries[0].BlobName)

	names, err := blobs.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestRunFetchFailure(t *testing.T) {
	now := time.Date(2024, 3, 25, 8, 0, 0, 0, time.UTC)
	blobs := memory.NewObjectStore()
	logs := memory.NewLogStore()
	fetcher := &stubFetcher{err: errors.New("api unreachable")}

	err := newPipeline(fetcher, blobs, logs, now).Run(context.Background())
	require.NoError(t, err)

	entries := logs.Entries()
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Success)
	assert.Equal(t, "api unreachable", entries[0].ErrorMessage)

	names, err := blobs.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestRunUploadFailure(t *testing.T) {
	now := time.Date(2024, 3, 25, 8, 0, 0, 0, time.UTC)
	blobs := &uploadFailingStore{ObjectStore: memory.NewObjectStore()}
	logs := memory.NewLogStore()

	err := newPipeline(&stubFetcher{snap: sampleSnapshot()}, blobs, logs, now).Run(context.Background())
	require.NoError(t, err)

	// A failed upload must never yield a success entry.
	entries := logs.Entries()
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Success)
	assert.Equal(t, "upload exploded", entries[0].ErrorMessage)
	assert.Empty(t, entries[0].BlobName)

	names, err := blobs.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestRunProvisioningFailureWritesNoEntry(t *testing.T) {
	now := time.Date(2024, 3, 25, 8, 0, 0, 0, time.UTC)
	blobs := memory.NewObjectStore()
	logs := &tableFailingLogStore{LogStore: memory.NewLogStore()}
	fetcher := &stubFetcher{snap: sampleSnapshot()}

	err := newPipeline(fetcher, blobs, logs, now).Run(context.Background())
	require.Error(t, err)

	assert.Empty(t, logs.Entries(), "no entry may be written before resources are ready")
	assert.Equal(t, int32(0), fetcher.calls.Load(), "no fetch may be attempted before resources are ready")
}

func TestRunInsertFailurePropagates(t *testing.T) {
	now := time.Date(2024, 3, 25, 8, 0, 0, 0, time.UTC)
	blobs := memory.NewObjectStore()
	logs := &insertFailingLogStore{LogStore: memory.NewLogStore()}

	err := newPipeline(&stubFetcher{snap: sampleSnapshot()}, blobs, logs, now).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store log entry")
}

func TestRunWritesExactlyOneEntryPerInvocation(t *testing.T) {
	now := time.Date(2024, 3, 25, 8, 0, 0, 0, time.UTC)
	blobs := memory.NewObjectStore()
	logs := memory.NewLogStore()
	pipe := newPipeline(&stubFetcher{snap: sampleSnapshot()}, blobs, logs, now)

	for i := 0; i < 5; i++ {
		require.NoError(t, pipe.Run(context.Background()))
	}

	entries := logs.Entries()
	require.Len(t, entries, 5)

	// Row keys are generated per run and never reused.
	seen := make(map[string]bool)
	for _, entry := range entries {
		assert.False(t, seen[entry.RowKey], "row key reused: %s", entry.RowKey)
		seen[entry.RowKey] = true
	}
}
