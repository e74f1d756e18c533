package pipeline

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/printops/labelflow/internal/queue"
)

func TestSafeName(t *testing.T) {
	cases := []struct {
		in       string
		fallback string
		maxLen   int
		want     string
	}{
		{"Lyon", "site", 30, "Lyon"},
		{"My Site #3!", "site", 30, "MySite3"},
		{"a_b-c", "site", 30, "a_b-c"},
		{"___", "site", 30, "site"},
		{"", "batch", 40, "batch"},
		{"--order-42--", "batch", 40, "order-42"},
		{strings.Repeat("a", 50), "site", 30, strings.Repeat("a", 30)},
	}

	for _, tc := range cases {
		if got := SafeName(tc.in, tc.fallback, tc.maxLen); got != tc.want {
			t.Errorf("SafeName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestArtifactName(t *testing.T) {
	ts := time.Date(2025, 3, 14, 9, 30, 5, 0, time.UTC)

	got := ArtifactName(ts, "Lyon", "B-17")
	want := "20250314-093005-Lyon-B-17.csv"
	if got != want {
		t.Errorf("ArtifactName = %q, want %q", got, want)
	}
}

func TestWriteArtifactRoundTrip(t *testing.T) {
	staging := t.TempDir()

	rows := []queue.Row{
		rowFor(1, "B1", "Lyon"),
		rowFor(2, "B1", "Lyon"),
	}
	rows[1].AllergensShort = ""
	rows[1].Qty = 42

	fileName := "20250314-093005-Lyon-B1.csv"

	path, err := WriteArtifact(staging, fileName, rows)
	if err != nil {
		t.Fatalf("WriteArtifact failed: %v", err)
	}
	if path != filepath.Join(staging, fileName) {
		t.Errorf("unexpected final path %q", path)
	}

	// The temp file must not survive promotion.
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file still present after rename")
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open artifact: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header + 2 rows, got %d records", len(records))
	}

	wantHeader := []string{
		"batch_id", "site", "template_name", "language",
		"product_name", "allergens_short", "qty", "output_file_name",
	}
	for i, col := range wantHeader {
		if records[0][i] != col {
			t.Errorf("header[%d] = %q, want %q", i, records[0][i], col)
		}
	}

	wantBase := "20250314-093005-Lyon-B1"
	for n, rec := range records[1:] {
		r := rows[n]
		got := []string{rec[0], rec[1], rec[2], rec[3], rec[4], rec[5], rec[6]}
		want := []string{r.BatchID, r.Site, r.TemplateName, r.Language, r.ProductName, r.AllergensShort, ""}
		want[6] = map[int]string{0: "10", 1: "42"}[n]
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("row %d col %d = %q, want %q", n, i, got[i], want[i])
			}
		}
		if rec[7] != wantBase {
			t.Errorf("row %d output_file_name = %q, want %q", n, rec[7], wantBase)
		}
	}
}

func TestWriteArtifactFailureLeavesNoFinalFile(t *testing.T) {
	// A regular file where the staging directory should be makes every
	// write fail before promotion.
	parent := t.TempDir()
	staging := filepath.Join(parent, "staging")
	if err := os.WriteFile(staging, []byte("not a directory"), 0644); err != nil {
		t.Fatal(err)
	}

	fileName := "20250314-093005-Lyon-B1.csv"
	_, err := WriteArtifact(staging, fileName, []queue.Row{rowFor(1, "B1", "Lyon")})
	if err == nil {
		t.Fatal("expected error writing into a non-directory")
	}

	if _, statErr := os.Stat(filepath.Join(staging, fileName)); statErr == nil {
		t.Error("final artifact path must not exist after a failed write")
	}
}
