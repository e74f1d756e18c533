package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/printops/labelflow/internal/config"
	"github.com/printops/labelflow/internal/events"
	"github.com/printops/labelflow/internal/hotfolder"
	"github.com/printops/labelflow/internal/logging"
	"github.com/printops/labelflow/internal/queue"
)

// failure is one collected validation result: row-level (RowID set) or
// batch-level (RowID nil).
type failure struct {
	batch  Batch
	reason string
	rowID  *int64
}

// Pipeline orchestrates one run. Runs are single-threaded and meant to be
// invoked repeatedly by an external scheduler; the caller must ensure at
// most one instance runs at a time, since staging file names are
// deterministic per second and queue updates are unconditional.
type Pipeline struct {
	store      queue.Store
	deliver    *Deliverer
	archiver   *Archiver
	quarantine *Quarantine
	reconciler *Reconciler
	rec        events.Recorder
	log        *slog.Logger

	stagingDir string
	fetchLimit int
	pacing     time.Duration

	now   func() time.Time
	sleep func(time.Duration)
}

// New wires a pipeline from configuration and its collaborators.
func New(cfg config.Config, store queue.Store, dest hotfolder.Destination, rec events.Recorder) *Pipeline {
	return &Pipeline{
		store:      store,
		deliver:    NewDeliverer(dest, cfg.Delivery.Retries, cfg.Delivery.RetryDelay.Value()),
		archiver:   NewArchiver(cfg.ArchiveDir(), cfg.Archive.Compress),
		quarantine: NewQuarantine(cfg.ErrorDir(), rec),
		reconciler: NewReconciler(store, rec),
		rec:        rec,
		log:        logging.Component("pipeline"),
		stagingDir: cfg.StagingDir(),
		fetchLimit: cfg.Queue.FetchLimit,
		pacing:     cfg.Delivery.PacingDelay.Value(),
		now:        time.Now,
		sleep:      time.Sleep,
	}
}

// Run executes one fetch → validate → deliver cycle. The returned error's
// classification (see Classify) is the process exit code. An empty fetch is
// a successful no-op.
func (p *Pipeline) Run(ctx context.Context) error {
	start := p.now()
	runID := NewRunID(start)
	log := p.log.With("run_id", runID)

	rows, err := p.store.FetchPending(ctx, p.fetchLimit)
	if err != nil {
		return fmt.Errorf("fetch pending rows: %w", err)
	}
	if len(rows) == 0 {
		log.Info("no pending rows")
		return nil
	}

	log.Info("fetched pending rows", "rows", len(rows))

	batches := GroupRows(rows)
	failures := p.validateAll(batches)

	if len(failures) > 0 {
		p.quarantineAll(ctx, runID, start, failures)
		return &ValidationRunError{Batches: len(failures)}
	}

	for _, b := range batches {
		if err := p.deliverBatch(ctx, runID, b, log); err != nil {
			return err
		}
		if p.pacing > 0 {
			p.sleep(p.pacing)
		}
	}

	log.Info("run complete", "batches", len(batches))
	return nil
}

// validateAll runs row and batch validation over the whole fetched set,
// collecting the first failure of every affected batch. The run does not
// stop at the first error: validity is a precondition for the entire run,
// and operators want every broken batch surfaced at once.
func (p *Pipeline) validateAll(batches []Batch) []failure {
	var failures []failure

	for _, b := range batches {
		found := false

		for _, r := range b.Rows {
			if ok, reason := ValidateRow(r); !ok {
				id := r.ID
				failures = append(failures, failure{batch: b, reason: reason, rowID: &id})
				found = true
				break
			}
		}
		if found {
			continue
		}

		if ok, reason := CheckSites(b); !ok {
			failures = append(failures, failure{batch: b, reason: reason})
		}
	}

	return failures
}

// quarantineAll writes quarantine artifacts and blocks status for every
// invalid batch. Valid batches in the same run are left pending untouched;
// they deliver on a later run once the bad data is corrected.
func (p *Pipeline) quarantineAll(ctx context.Context, runID string, start time.Time, failures []failure) {
	for _, f := range failures {
		fileName := ArtifactName(start, f.batch.Site(), f.batch.ID)

		msg := f.reason
		if f.rowID != nil {
			msg = fmt.Sprintf("%s (failing_row_id=%d)", f.reason, *f.rowID)
		}
		p.rec.Record(events.LevelError, events.ValidationFailed, f.batch.ID, fileName, msg)

		p.quarantine.Write(runID, f.batch, fileName, f.reason, f.rowID, start)
		p.reconciler.BlockBatch(ctx, f.batch.ID, f.rowID, f.reason)
	}
}

// deliverBatch runs one batch through write → copy → archive → mark sent.
func (p *Pipeline) deliverBatch(ctx context.Context, runID string, b Batch, log *slog.Logger) error {
	fileName := ArtifactName(p.now(), b.Site(), b.ID)

	p.rec.Record(events.LevelInfo, events.BatchCreated, b.ID, fileName,
		fmt.Sprintf("Rows=%d", len(b.Rows)))

	stagedPath, err := WriteArtifact(p.stagingDir, fileName, b.Rows)
	if err != nil {
		return fmt.Errorf("stage artifact %s: %w", fileName, err)
	}

	finalPath, err := p.deliver.Deliver(ctx, stagedPath, fileName)
	if err != nil {
		p.rec.Record(events.LevelError, events.CopyFailed, b.ID, fileName, err.Error())
		return &DeliveryRunError{BatchID: b.ID, FileName: fileName, Cause: err.Error()}
	}

	// Archival failure does not regress the batch: delivery already
	// happened, so the rows still go to Sent and the staging copy stays
	// where an operator can see it.
	if _, err := p.archiver.Archive(runID, p.now(), stagedPath, fileName); err != nil {
		log.Error("archive failed", "batch_id", b.ID, "file_name", fileName, "error", err)
		p.rec.Record(events.LevelError, events.SyncFailed, b.ID, fileName,
			fmt.Sprintf("Archive failed, artifact left in staging: %v", err))
	}

	p.rec.Record(events.LevelInfo, events.BatchDelivered, b.ID, fileName,
		fmt.Sprintf("Delivered to %s", finalPath))
	log.Info("batch delivered", "batch_id", b.ID, "file_name", fileName, "rows", len(b.Rows))

	p.reconciler.MarkDelivered(ctx, b)
	return nil
}
