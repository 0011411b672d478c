// Package pipeline implements the fetch-store-log orchestration: each
// scheduled run fetches current weather, persists the raw payload as a
// blob, and records exactly one audit log entry with the outcome.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/i474232898/weather-audit/internal/storage"
	"github.com/i474232898/weather-audit/internal/weather"
)

// errNoData marks a run where the client degraded to an empty result.
var errNoData = errors.New("No data found")

// Fetcher is the weather source contract the pipeline needs. A nil
// snapshot with a nil error means the source had no data.
type Fetcher interface {
	FetchCurrentWeather(ctx context.Context) (*weather.Snapshot, error)
}

// Pipeline orchestrates one fetch-store-log run per trigger.
type Pipeline struct {
	fetcher     Fetcher
	blobs       storage.ObjectStore
	logs        storage.LogStore
	provisioner *Provisioner
	clock       Clock
	log         *zap.Logger
}

// New creates a Pipeline. The provisioner is shared with nobody else;
// its memoized first run gates every pipeline invocation.
func New(fetcher Fetcher, blobs storage.ObjectStore, logs storage.LogStore, provisioner *Provisioner, clock Clock, log *zap.Logger) *Pipeline {
	return &Pipeline{
		fetcher:     fetcher,
		blobs:       blobs,
		logs:        logs,
		provisioner: provisioner,
		clock:       clock,
		log:         log,
	}
}

// Run executes one invocation. A provisioning failure aborts before any
// fetch and before any entry is written; every other failure is recorded
// in the single log entry this run appends. The entry insert is the
// unconditional final step.
func (p *Pipeline) Run(ctx context.Context) error {
	now := p.clock.Now().UTC()
	p.log.Info("fetch run triggered", zap.Time("time", now))

	if err := p.provisioner.EnsureReady(ctx); err != nil {
		return fmt.Errorf("provision storage resources: %w", err)
	}

	entry := storage.NewLogEntry(now)
	if runErr := p.fetchAndStore(ctx, &entry); runErr != nil {
		entry.MarkFailure(runErr.Error())
		p.log.Error("fetch run failed", zap.String("rowKey", entry.RowKey), zap.Error(runErr))
	}

	// Guaranteed finalization: exactly one entry per run.
	if err := p.logs.Insert(ctx, entry); err != nil {
		return fmt.Errorf("store log entry: %w", err)
	}
	p.log.Info("log entry stored",
		zap.String("rowKey", entry.RowKey),
		zap.Bool("success", entry.Success),
		zap.Time("timestamp", entry.Timestamp))
	return nil
}

// fetchAndStore fetches the snapshot and uploads its serialized bytes.
// The entry is marked successful only after the upload completes, so a
// success entry always has a corresponding blob.
func (p *Pipeline) fetchAndStore(ctx context.Context, entry *storage.LogEntry) error {
	p.log.Info("fetching weather data")

	snap, err := p.fetcher.FetchCurrentWeather(ctx)
	if err != nil {
		return err
	}
	if snap == nil {
		return errNoData
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("serialize snapshot: %w", err)
	}

	name := entry.PayloadName()
	if err := p.blobs.Upload(ctx, name, payload, true); err != nil {
		return err
	}
	entry.MarkSuccess()

	p.log.Info("weather payload saved", zap.String("blobName", name))
	return nil
}
