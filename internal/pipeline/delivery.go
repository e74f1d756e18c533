package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/printops/labelflow/internal/hotfolder"
	"github.com/printops/labelflow/internal/logging"
)

// Deliverer copies staged artifacts to the hot folder with a bounded retry
// budget and a fixed delay between attempts. No backoff: the constants are
// tuned for a network mount that recovers within seconds or not at all.
type Deliverer struct {
	dest    hotfolder.Destination
	retries int
	delay   time.Duration
	sleep   func(time.Duration)
	log     *slog.Logger
}

// NewDeliverer creates a delivery client over the given destination.
func NewDeliverer(dest hotfolder.Destination, retries int, delay time.Duration) *Deliverer {
	if retries < 1 {
		retries = 1
	}

	return &Deliverer{
		dest:    dest,
		retries: retries,
		delay:   delay,
		sleep:   time.Sleep,
		log:     logging.Component("delivery"),
	}
}

// Deliver attempts the copy up to the retry budget. On success it returns
// the final destination path; on exhaustion it returns the last error.
// The staged source is left in place either way.
func (d *Deliverer) Deliver(ctx context.Context, srcPath, fileName string) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= d.retries; attempt++ {
		finalPath, err := d.dest.Deliver(ctx, srcPath, fileName)
		if err == nil {
			return finalPath, nil
		}

		lastErr = err
		d.log.Warn("copy attempt failed",
			"file_name", fileName, "attempt", attempt, "error", err)

		if attempt < d.retries {
			d.sleep(d.delay)
		}
	}

	return "", fmt.Errorf("copy failed after %d attempts: %w", d.retries, lastErr)
}
