// Package queue reads and updates the remote label queue table. The table is
// owned by the upstream extraction process; this package only fetches pending
// rows and transitions their status.
package queue

import "context"

// Status is the lifecycle marker on a queue row. The pipeline only ever
// moves a row forward: pending → Sent, or pending → Error.
type Status string

const (
	StatusSent  Status = "SENT"
	StatusError Status = "ERROR"
)

// DefaultPendingStatus marks rows the upstream extractor has staged for
// delivery. The actual value is configuration; this is the conventional one.
const DefaultPendingStatus = "READY"

// Row is one print-ready label record as stored in the queue table.
// AllergensShort is optional upstream and scans NULL as the empty string.
type Row struct {
	ID             int64
	BatchID        string
	Site           string
	TemplateName   string
	Language       string
	ProductName    string
	AllergensShort string
	Qty            int
	Status         Status
	ErrorReason    *string
}

// Store is the remote queue interface consumed by the pipeline.
type Store interface {
	// FetchPending returns up to limit rows whose status is the pending marker.
	FetchPending(ctx context.Context, limit int) ([]Row, error)

	// MarkSent bulk-updates the given rows to Sent.
	MarkSent(ctx context.Context, ids []int64) error

	// MarkBatchError sets Error on every row sharing batchID, touching no
	// other column.
	MarkBatchError(ctx context.Context, batchID string) error

	// MarkRowError sets Error plus the error reason on a single row.
	MarkRowError(ctx context.Context, id int64, reason string) error

	// MarkRowStatus sets only the status on a single row. Used as the
	// fallback when the table has no error_reason column.
	MarkRowStatus(ctx context.Context, id int64, status Status) error

	// Close releases the store's connections.
	Close() error
}
