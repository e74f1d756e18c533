// Package events records the pipeline's append-only event log: one JSON
// object per line, consumed by operators and downstream tooling. It is
// separate from slog diagnostics; a failed event write never fails a run.
package events

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Record levels.
const (
	LevelInfo  = "INFO"
	LevelError = "ERROR"
)

// TimestampLayout is the fixed-width millisecond timestamp format used in
// event records and quarantine metadata.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Event names.
const (
	BatchCreated     = "batch-created"
	BatchDelivered   = "batch-delivered"
	ValidationFailed = "validation-failed"
	CopyFailed       = "copy-failed"
	SyncFailed       = "sync-failed"
	UnexpectedError  = "unexpected-error"
)

// Recorder is the injected event sink.
type Recorder interface {
	Record(level, event, batchID, fileName, message string)
	Close() error
}

type record struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Event     string `json:"event"`
	BatchID   string `json:"batch_id"`
	FileName  string `json:"file_name"`
	Message   string `json:"message"`
}

// FileRecorder appends records to a log file.
type FileRecorder struct {
	mu      sync.Mutex
	f       *os.File
	log     *slog.Logger
	now     func() time.Time
	lastErr string
}

// NewFileRecorder opens (or creates) the event log at path. If the file
// cannot be opened, a no-op recorder is returned and the failure is logged.
func NewFileRecorder(path string) Recorder {
	log := slog.With("component", "events")

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		log.Error("create event log directory", "path", path, "error", err)
		return &noopRecorder{}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		log.Error("open event log", "path", path, "error", err)
		return &noopRecorder{}
	}

	return &FileRecorder{
		f:   f,
		log: log,
		now: time.Now,
	}
}

// Record appends one event line. Write failures are dropped; each distinct
// failure is logged once so a new condition mid-run still surfaces.
func (r *FileRecorder) Record(level, event, batchID, fileName, message string) {
	rec := record{
		Timestamp: r.now().UTC().Format(TimestampLayout),
		Level:     level,
		Event:     event,
		BatchID:   batchID,
		FileName:  fileName,
		Message:   message,
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.f.Write(append(data, '\n')); err != nil {
		if err.Error() != r.lastErr {
			r.lastErr = err.Error()
			r.log.Error("write event record", "error", err)
		}
		return
	}
	r.lastErr = ""
}

// Close releases the underlying file handle.
func (r *FileRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.f.Close()
}

// noopRecorder discards all records.
type noopRecorder struct{}

func (noopRecorder) Record(_, _, _, _, _ string) {}
func (noopRecorder) Close() error               { return nil }

// NewNoopRecorder returns a recorder that discards everything.
func NewNoopRecorder() Recorder {
	return &noopRecorder{}
}

// Entry is one recorded event held by MemoryRecorder.
type Entry struct {
	Level    string
	Event    string
	BatchID  string
	FileName string
	Message  string
}

// MemoryRecorder collects records in memory, for tests.
type MemoryRecorder struct {
	mu      sync.Mutex
	Entries []Entry
}

func (m *MemoryRecorder) Record(level, event, batchID, fileName, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries = append(m.Entries, Entry{
		Level:    level,
		Event:    event,
		BatchID:  batchID,
		FileName: fileName,
		Message:  message,
	})
}

func (m *MemoryRecorder) Close() error { return nil }

// ByEvent returns the recorded entries matching the given event name.
func (m *MemoryRecorder) ByEvent(event string) []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Entry
	for _, e := range m.Entries {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}
