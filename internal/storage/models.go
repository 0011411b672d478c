package storage

import (
	"time"

	"github.com/google/uuid"
)

// LogPartition is the fixed partition key grouping all audit entries
// into one logical collection.
const LogPartition = "WeatherLogs"

// LogEntry is the audit record of one pipeline invocation. It is created
// at the start of a run, resolved exactly once to a success or failure,
// and persisted exactly once at the end of the run.
type LogEntry struct {
	PartitionKey string    `json:"partitionKey"`
	RowKey       string    `json:"rowKey"`
	Timestamp    time.Time `json:"timestamp"` // capture time of the run, always UTC
	Success      bool      `json:"success"`
	BlobName     string    `json:"blobName,omitempty"`
	ErrorMessage string    `json:"errorMessage,omitempty"`

	// ETag is the store's optimistic concurrency token. Populated by
	// storage adapters on read; never interpreted by the pipeline.
	ETag string `json:"-"`
}

// NewLogEntry creates an unresolved entry for a run captured at ts.
// The row key is generated here and never reused or derived from content.
func NewLogEntry(ts time.Time) LogEntry {
	return LogEntry{
		PartitionKey: LogPartition,
		RowKey:       uuid.NewString(),
		Timestamp:    ts.UTC(),
	}
}

// PayloadName returns the blob name the run's payload is stored under.
func (e LogEntry) PayloadName() string {
	return e.RowKey + ".json"
}

// MarkSuccess resolves the entry as successful. Callers must invoke this
// only after the payload upload has completed, so a success entry always
// has a corresponding blob.
func (e *LogEntry) MarkSuccess() {
	e.Success = true
	e.BlobName = e.PayloadName()
	e.ErrorMessage = ""
}

// MarkFailure resolves the entry as failed with the given reason.
func (e *LogEntry) MarkFailure(reason string) {
	e.Success = false
	e.BlobName = ""
	e.ErrorMessage = reason
}
