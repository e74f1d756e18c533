package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/printops/labelflow/internal/config"
	"github.com/printops/labelflow/internal/events"
	"github.com/printops/labelflow/internal/hotfolder"
	"github.com/printops/labelflow/internal/logging"
	"github.com/printops/labelflow/internal/pipeline"
	"github.com/printops/labelflow/internal/queue"
)

// Version information (set via ldflags)
var (
	Version = "v0.1.0"
	GitSHA  = "unknown"
)

func main() {
	os.Exit(run())
}

// run executes exactly one pipeline run and returns the exit
// classification: 0 delivered everything or nothing to do, 1 validation
// failure, 2 delivery failure after retries, 3 unhandled internal error.
func run() (code int) {
	configPath := flag.String("config", "/etc/labelflow/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "labelflow: %v\n", err)
		return pipeline.ExitUnexpected
	}

	logging.Setup(logging.Config{Format: cfg.Logging.Format, Level: cfg.Logging.Level})
	slog.Info("labelflow starting", "version", Version, "git_sha", GitSHA)

	rec := events.NewFileRecorder(cfg.Logging.EventLog)
	defer rec.Close()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("unhandled panic", "panic", r)
			rec.Record(events.LevelError, events.UnexpectedError, "", "", fmt.Sprint(r))
			code = pipeline.ExitUnexpected
		}
	}()

	store, err := queue.NewPostgresStore(queue.PostgresConfig{
		DSN:           cfg.Queue.DSN,
		Table:         cfg.Queue.Table,
		PendingStatus: cfg.Queue.PendingStatus,
	})
	if err != nil {
		slog.Error("connect queue store", "error", err)
		rec.Record(events.LevelError, events.UnexpectedError, "", "", err.Error())
		return pipeline.ExitUnexpected
	}
	defer store.Close()

	dest, err := hotfolder.New(hotfolder.Config{
		Dir:       cfg.Destination.Dir,
		BucketURL: cfg.Destination.BucketURL,
	})
	if err != nil {
		slog.Error("open destination", "error", err)
		rec.Record(events.LevelError, events.UnexpectedError, "", "", err.Error())
		return pipeline.ExitUnexpected
	}
	defer dest.Close()

	p := pipeline.New(cfg, store, dest, rec)

	if err := p.Run(context.Background()); err != nil {
		c := pipeline.Classify(err)
		if c == pipeline.ExitUnexpected {
			slog.Error("run failed", "error", err)
			rec.Record(events.LevelError, events.UnexpectedError, "", "", err.Error())
		} else {
			slog.Error("run aborted", "error", err, "exit_code", c)
		}
		return c
	}

	return pipeline.ExitOK
}
