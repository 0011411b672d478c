package azure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"

	"github.com/i474232898/weather-audit/internal/storage"
)

// Entity property names used in the table. The run's capture time is an
// explicit property: the table service overwrites the system Timestamp
// on insert, so it cannot carry the injected clock value.
const (
	propCaptureTime  = "CaptureTime"
	propSuccess      = "Success"
	propBlobName     = "BlobName"
	propErrorMessage = "ErrorMessage"
)

// TableLogStore persists audit entries in a single Azure table.
type TableLogStore struct {
	client *aztables.Client
	table  string
}

// NewTableLogStore creates a TableLogStore from a storage connection
// string and table name. The table is not created here; see EnsureTable.
func NewTableLogStore(connectionString, table string) (*TableLogStore, error) {
	svc, err := aztables.NewServiceClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("create table client: %w", err)
	}

	return &TableLogStore{
		client: svc.NewClient(table),
		table:  table,
	}, nil
}

func (s *TableLogStore) EnsureTable(ctx context.Context) error {
	_, err := s.client.CreateTable(ctx, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == http.StatusConflict {
			return nil
		}
		return fmt.Errorf("create table %q: %w", s.table, err)
	}
	return nil
}

func (s *TableLogStore) Insert(ctx context.Context, entry storage.LogEntry) error {
	ent := aztables.EDMEntity{
		Entity: aztables.Entity{
			PartitionKey: entry.PartitionKey,
			RowKey:       entry.RowKey,
		},
		Properties: map[string]any{
			propCaptureTime:  aztables.EDMDateTime(entry.Timestamp),
			propSuccess:      entry.Success,
			propBlobName:     entry.BlobName,
			propErrorMessage: entry.ErrorMessage,
		},
	}

	payload, err := json.Marshal(ent)
	if err != nil {
		return fmt.Errorf("marshal log entity: %w", err)
	}

	if _, err := s.client.AddEntity(ctx, payload, nil); err != nil {
		return fmt.Errorf("insert log entry %q: %w", entry.RowKey, err)
	}
	return nil
}

func (s *TableLogStore) QueryRange(ctx context.Context, from, to time.Time) ([]storage.LogEntry, error) {
	filter := fmt.Sprintf("%s ge datetime'%s' and %s le datetime'%s'",
		propCaptureTime, from.UTC().Format(time.RFC3339),
		propCaptureTime, to.UTC().Format(time.RFC3339))

	var entries []storage.LogEntry

	pager := s.client.NewListEntitiesPager(&aztables.ListEntitiesOptions{
		Filter: &filter,
	})
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("query log entries: %w", err)
		}
		for _, raw := range page.Entities {
			entry, err := decodeEntity(raw)
			if err != nil {
				return nil, err
			}
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func decodeEntity(raw []byte) (storage.LogEntry, error) {
	var ent aztables.EDMEntity
	if err := json.Unmarshal(raw, &ent); err != nil {
		return storage.LogEntry{}, fmt.Errorf("unmarshal log entity: %w", err)
	}

	entry := storage.LogEntry{
		PartitionKey: ent.PartitionKey,
		RowKey:       ent.RowKey,
	}

	if v, ok := ent.Properties[propCaptureTime].(aztables.EDMDateTime); ok {
		entry.Timestamp = time.Time(v).UTC()
	}
	if v, ok := ent.Properties[propSuccess].(bool); ok {
		entry.Success = v
	}
	if v, ok := ent.Properties[propBlobName].(string); ok {
		entry.BlobName = v
	}
	if v, ok := ent.Properties[propErrorMessage].(string); ok {
		entry.ErrorMessage = v
	}

	// The concurrency token rides along as odata metadata.
	var meta struct {
		ETag string `json:"odata.etag"`
	}
	if err := json.Unmarshal(raw, &meta); err == nil {
		entry.ETag = meta.ETag
	}

	return entry, nil
}
