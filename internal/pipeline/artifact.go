package pipeline

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/printops/labelflow/internal/queue"
)

// ArtifactExt is the delivery artifact extension.
const ArtifactExt = ".csv"

// outputFileColumn is the derived column appended after the schema fields.
const outputFileColumn = "output_file_name"

// SafeName reduces s to alphanumerics, hyphen and underscore, truncates to
// maxLen runes, and falls back when nothing survives.
func SafeName(s, fallback string, maxLen int) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}

	safe := []rune(b.String())
	if len(safe) > maxLen {
		safe = safe[:maxLen]
	}

	out := strings.Trim(string(safe), "-_")
	if out == "" {
		return fallback
	}
	return out
}

// ArtifactName builds the deterministic delivery file name for a batch:
// {timestamp}-{site}-{batch}.csv.
func ArtifactName(t time.Time, site, batchID string) string {
	return fmt.Sprintf("%s-%s-%s%s",
		t.Format("20060102-150405"),
		SafeName(site, "site", 30),
		SafeName(batchID, "batch", 40),
		ArtifactExt)
}

// artifactColumns is the header row: schema fields plus the derived
// output-file-name column.
func artifactColumns() []string {
	cols := make([]string, 0, len(rowSchema)+1)
	for _, f := range rowSchema {
		cols = append(cols, f.name)
	}
	return append(cols, outputFileColumn)
}

// WriteArtifact serializes the batch rows into stagingDir/fileName via a
// temp file and a single rename, so a reader never observes a partial
// artifact at the final path. A failed write may leave the temp file behind;
// it is never promoted.
func WriteArtifact(stagingDir, fileName string, rows []queue.Row) (string, error) {
	if err := os.MkdirAll(stagingDir, 0755); err != nil {
		return "", fmt.Errorf("create staging directory %s: %w", stagingDir, err)
	}

	finalPath := filepath.Join(stagingDir, fileName)
	tempPath := finalPath + ".tmp"
	baseName := strings.TrimSuffix(fileName, ArtifactExt)

	f, err := os.Create(tempPath)
	if err != nil {
		return "", fmt.Errorf("create temp file %s: %w", tempPath, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(artifactColumns()); err != nil {
		f.Close()
		return "", fmt.Errorf("write header to %s: %w", tempPath, err)
	}

	record := make([]string, 0, len(rowSchema)+1)
	for _, r := range rows {
		record = record[:0]
		for _, fd := range rowSchema {
			record = append(record, fieldValue(r, fd.name))
		}
		record = append(record, baseName)

		if err := w.Write(record); err != nil {
			f.Close()
			return "", fmt.Errorf("write row to %s: %w", tempPath, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return "", fmt.Errorf("flush %s: %w", tempPath, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", tempPath, err)
	}

	if err := os.Rename(tempPath, finalPath); err != nil {
		os.Remove(tempPath)
		return "", fmt.Errorf("rename %s to %s: %w", tempPath, finalPath, err)
	}

	return finalPath, nil
}
