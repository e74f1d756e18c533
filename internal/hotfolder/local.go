package hotfolder

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalDir delivers into a local or network-mounted directory.
type LocalDir struct {
	dir string
}

// NewLocalDir creates a local directory destination.
func NewLocalDir(dir string) *LocalDir {
	return &LocalDir{dir: dir}
}

// Deliver copies the artifact into the hot folder, preserving the source's
// modification time and mode. The destination file is truncated and
// rewritten, so a retry after a partial write leaves a complete file.
func (d *LocalDir) Deliver(_ context.Context, srcPath, fileName string) (string, error) {
	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return "", fmt.Errorf("create destination directory %s: %w", d.dir, err)
	}

	destPath := filepath.Join(d.dir, fileName)

	src, err := os.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("open source %s: %w", srcPath, err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return "", fmt.Errorf("stat source %s: %w", srcPath, err)
	}

	dst, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return "", fmt.Errorf("create destination %s: %w", destPath, err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", fmt.Errorf("copy to %s: %w", destPath, err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("close destination %s: %w", destPath, err)
	}

	// Match the source's timestamps so the consumer sees when the batch was
	// actually staged, not when the copy landed.
	if err := os.Chtimes(destPath, info.ModTime(), info.ModTime()); err != nil {
		return "", fmt.Errorf("set times on %s: %w", destPath, err)
	}

	return destPath, nil
}

// Close is a no-op for local directories.
func (d *LocalDir) Close() error {
	return nil
}

var _ Destination = (*LocalDir)(nil)
