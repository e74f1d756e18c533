package pipeline

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
)

func stageFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestArchiveMovesIntoDatedRunFolder(t *testing.T) {
	staging := t.TempDir()
	archiveRoot := t.TempDir()

	src := stageFile(t, staging, "x.csv", "batch data")
	a := NewArchiver(archiveRoot, false)
	ts := time.Date(2025, 3, 14, 9, 30, 5, 0, time.UTC)

	dest, err := a.Archive("20250314-093005", ts, src, "x.csv")
	if err != nil {
		t.Fatalf("Archive failed: %v", err)
	}

	want := filepath.Join(archiveRoot, "20250314", "20250314-093005", "x.csv")
	if dest != want {
		t.Errorf("archive path = %q, want %q", dest, want)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read archived file: %v", err)
	}
	if string(data) != "batch data" {
		t.Errorf("archived content = %q", data)
	}

	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("staging copy must be gone after archiving")
	}
}

func TestArchiveCompress(t *testing.T) {
	staging := t.TempDir()
	archiveRoot := t.TempDir()

	src := stageFile(t, staging, "x.csv", "compressible batch data")
	a := NewArchiver(archiveRoot, true)
	ts := time.Date(2025, 3, 14, 9, 30, 5, 0, time.UTC)

	dest, err := a.Archive("20250314-093005", ts, src, "x.csv")
	if err != nil {
		t.Fatalf("Archive failed: %v", err)
	}
	if filepath.Ext(dest) != ".gz" {
		t.Fatalf("expected gzip archive, got %q", dest)
	}

	f, err := os.Open(dest)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("open gzip: %v", err)
	}
	data, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if string(data) != "compressible batch data" {
		t.Errorf("decompressed content = %q", data)
	}

	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("staging copy must be gone after compressing")
	}
}

func TestArchiveFailureLeavesStagingCopy(t *testing.T) {
	staging := t.TempDir()
	parent := t.TempDir()

	// A file where the archive root should be makes MkdirAll fail.
	archiveRoot := filepath.Join(parent, "archive")
	if err := os.WriteFile(archiveRoot, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	src := stageFile(t, staging, "x.csv", "batch data")
	a := NewArchiver(archiveRoot, false)

	if _, err := a.Archive("run", time.Now(), src, "x.csv"); err == nil {
		t.Fatal("expected archive error")
	}

	if _, err := os.Stat(src); err != nil {
		t.Errorf("staging copy must remain after a failed archive: %v", err)
	}
}
