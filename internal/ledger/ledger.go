package ledger

import (
	"context"

	"lookout/pkg/models"
)

// Ledger is the durable record of every event the pipeline has finished
// processing. Append is insert-only: a second append for the same event id
// must fail with a conflict, never overwrite.
type Ledger interface {
	// Exists reports whether a record for the event id is present.
	Exists(ctx context.Context, eventID string) (bool, error)

	// Append inserts a record. Returns a conflict error when a record for
	// the same event id already exists and a store-unavailable error on any
	// other failure.
	Append(ctx context.Context, record *models.ProcessedRecord) error

	// RecentRecords returns up to limit records, newest first.
	RecentRecords(ctx context.Context, limit int) ([]models.ProcessedRecord, error)

	// Stats returns aggregate counts over the ledger.
	Stats(ctx context.Context) (Stats, error)
}

type Stats struct {
	TotalRecords    int64 `json:"total_records"`
	NotifiedRecords int64 `json:"notified_records"`
}
