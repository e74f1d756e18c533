// Package hotfolder delivers staged artifacts into the directory (or bucket)
// watched by the external label-printing service.
package hotfolder

import (
	"context"
	"fmt"
)

// Destination is a hot-folder backend. Deliver copies the staged artifact so
// that the watched name only ever appears complete, and returns the final
// path or URI. Delivering the same name twice overwrites, so retries after a
// partial write are safe.
type Destination interface {
	Deliver(ctx context.Context, srcPath, fileName string) (string, error)
	Close() error
}

// Config selects the destination backend. Dir takes a local or mounted
// directory; BucketURL takes a gocloud.dev URL (file://, s3://, gs://).
// Exactly one must be set.
type Config struct {
	Dir       string
	BucketURL string
}

// New creates the destination for the given configuration.
func New(cfg Config) (Destination, error) {
	switch {
	case cfg.Dir != "" && cfg.BucketURL != "":
		return nil, fmt.Errorf("destination: dir and bucket_url are mutually exclusive")
	case cfg.BucketURL != "":
		return NewBucket(cfg.BucketURL)
	case cfg.Dir != "":
		return NewLocalDir(cfg.Dir), nil
	default:
		return nil, fmt.Errorf("destination: dir or bucket_url required")
	}
}
