package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/printops/labelflow/internal/events"
	"github.com/printops/labelflow/internal/logging"
	"github.com/printops/labelflow/internal/queue"
)

// ErrorRecord is the diagnostic metadata written beside a quarantined
// snapshot. Written once per invalid batch per run, never mutated. The
// timestamp uses events.TimestampLayout.
type ErrorRecord struct {
	Timestamp    string `json:"timestamp"`
	RunID        string `json:"run_id"`
	Site         string `json:"site"`
	BatchID      string `json:"batch_id"`
	FileName     string `json:"file_name"`
	FailingRowID *int64 `json:"failing_row_id"`
	ErrorReason  string `json:"error_reason"`
	RowsCount    int    `json:"rows_count"`
}

// Quarantine persists invalid batches to the error tree for human
// inspection. All writes are best-effort: a failed snapshot must not prevent
// the batch from being blocked.
type Quarantine struct {
	baseDir string
	rec     events.Recorder
	log     *slog.Logger
}

// NewQuarantine creates a quarantine writer rooted at baseDir (the error
// root).
func NewQuarantine(baseDir string, rec events.Recorder) *Quarantine {
	return &Quarantine{
		baseDir: baseDir,
		rec:     rec,
		log:     logging.Component("quarantine"),
	}
}

// Write stores the batch's CSV snapshot and its error metadata under
// error/{runID}/{site}/, both named after the batch's would-be delivery
// artifact. failingRowID is nil for batch-level failures.
func (q *Quarantine) Write(runID string, b Batch, fileName, reason string, failingRowID *int64, now time.Time) {
	dir := filepath.Join(q.baseDir, runID, SafeName(b.Site(), "site", 60))
	if err := os.MkdirAll(dir, 0755); err != nil {
		q.fail(b.ID, fileName, fmt.Sprintf("Failed creating quarantine directory: %v", err))
		return
	}

	if err := q.writeSnapshot(filepath.Join(dir, fileName), b.Rows); err != nil {
		q.fail(b.ID, fileName, fmt.Sprintf("Failed writing error CSV snapshot: %v", err))
	}

	rec := ErrorRecord{
		Timestamp:    now.UTC().Format(events.TimestampLayout),
		RunID:        runID,
		Site:         b.Site(),
		BatchID:      b.ID,
		FileName:     fileName,
		FailingRowID: failingRowID,
		ErrorReason:  reason,
		RowsCount:    len(b.Rows),
	}
	if err := q.writeMetadata(filepath.Join(dir, fileName+".error.json"), rec); err != nil {
		q.fail(b.ID, fileName, fmt.Sprintf("Failed writing error metadata: %v", err))
	}
}

// writeSnapshot stores the rows as a plain CSV with the schema columns.
func (q *Quarantine) writeSnapshot(path string, rows []queue.Row) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)

	header := make([]string, 0, len(rowSchema))
	for _, fd := range rowSchema {
		header = append(header, fd.name)
	}
	if err := w.Write(header); err != nil {
		f.Close()
		return err
	}

	record := make([]string, 0, len(rowSchema))
	for _, r := range rows {
		record = record[:0]
		for _, fd := range rowSchema {
			record = append(record, fieldValue(r, fd.name))
		}
		if err := w.Write(record); err != nil {
			f.Close()
			return err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (q *Quarantine) writeMetadata(path string, rec ErrorRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (q *Quarantine) fail(batchID, fileName, message string) {
	q.log.Error("quarantine write failed", "batch_id", batchID, "file_name", fileName, "message", message)
	q.rec.Record(events.LevelError, events.UnexpectedError, batchID, fileName, message)
}
