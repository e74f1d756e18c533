package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/printops/labelflow/internal/events"
	"github.com/printops/labelflow/internal/logging"
	"github.com/printops/labelflow/internal/queue"
)

// Reconciler transitions remote row status after a batch is resolved.
// Remote update failures are logged and absorbed here: a later run retrying
// is always safer than crashing mid-reconciliation.
type Reconciler struct {
	store queue.Store
	rec   events.Recorder
	log   *slog.Logger
}

// NewReconciler creates a status reconciler over the queue store.
func NewReconciler(store queue.Store, rec events.Recorder) *Reconciler {
	return &Reconciler{
		store: store,
		rec:   rec,
		log:   logging.Component("reconciler"),
	}
}

// BlockBatch runs the two-step failure update: first set Error on every row
// of the batch so the next run skips it, then attribute the reason to the
// one failing row. If the blocking step fails we stop there; the batch stays
// pending and retries, which beats leaving it half-blocked. The reason
// update falls back to a bare status update when the table has no
// error_reason column.
func (r *Reconciler) BlockBatch(ctx context.Context, batchID string, failingRowID *int64, reason string) {
	if err := r.store.MarkBatchError(ctx, batchID); err != nil {
		r.fail(batchID, fmt.Sprintf("Failed to mark batch status ERROR: %v", err))
		return
	}

	if failingRowID == nil {
		return
	}

	if err := r.store.MarkRowError(ctx, *failingRowID, reason); err != nil {
		if err := r.store.MarkRowStatus(ctx, *failingRowID, queue.StatusError); err != nil {
			r.fail(batchID, fmt.Sprintf("Failed to set failing row ERROR: %v", err))
		}
	}
}

// MarkDelivered bulk-updates the batch's rows to Sent after a successful
// delivery. A failure here is logged, not raised: the artifact is already in
// the hot folder and must not be delivered again.
func (r *Reconciler) MarkDelivered(ctx context.Context, b Batch) {
	if err := r.store.MarkSent(ctx, b.RowIDs()); err != nil {
		r.log.Error("mark sent failed", "batch_id", b.ID, "error", err)
		r.rec.Record(events.LevelError, events.SyncFailed, b.ID, "",
			fmt.Sprintf("Failed to mark rows SENT: %v", err))
	}
}

func (r *Reconciler) fail(batchID, message string) {
	r.log.Error("status update failed", "batch_id", batchID, "message", message)
	r.rec.Record(events.LevelError, events.UnexpectedError, batchID, "", message)
}
