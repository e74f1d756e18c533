package pipeline

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"
)

// Archiver relocates delivered artifacts out of staging into the dated,
// run-scoped archive tree.
type Archiver struct {
	baseDir  string
	compress bool
}

// NewArchiver creates an archiver rooted at baseDir (the archive root).
func NewArchiver(baseDir string, compress bool) *Archiver {
	return &Archiver{baseDir: baseDir, compress: compress}
}

// Archive moves the staged artifact into archive/{date}/{runID}/, creating
// directories as needed. With compression enabled the artifact lands as
// {file}.gz instead. On failure the staging copy stays in place.
func (a *Archiver) Archive(runID string, t time.Time, srcPath, fileName string) (string, error) {
	dir := filepath.Join(a.baseDir, t.Format("20060102"), runID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create archive directory %s: %w", dir, err)
	}

	if a.compress {
		destPath := filepath.Join(dir, fileName+".gz")
		if err := gzipFile(srcPath, destPath); err != nil {
			return "", err
		}
		if err := os.Remove(srcPath); err != nil {
			return "", fmt.Errorf("remove staged %s: %w", srcPath, err)
		}
		return destPath, nil
	}

	destPath := filepath.Join(dir, fileName)
	if err := moveFile(srcPath, destPath); err != nil {
		return "", err
	}
	return destPath, nil
}

// moveFile renames src to dst, falling back to copy-and-remove when the
// archive lives on a different filesystem than staging.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", dst, err)
	}

	if err := os.Remove(src); err != nil {
		return fmt.Errorf("remove %s: %w", src, err)
	}
	return nil
}

func gzipFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	zw := gzip.NewWriter(out)
	if _, err := io.Copy(zw, in); err != nil {
		zw.Close()
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("compress %s: %w", src, err)
	}
	if err := zw.Close(); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("finish compressing %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", dst, err)
	}
	return nil
}
