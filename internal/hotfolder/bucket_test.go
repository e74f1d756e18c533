package hotfolder

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBucketDeliverViaFileblob(t *testing.T) {
	srcDir := t.TempDir()
	bucketDir := t.TempDir()

	srcPath := filepath.Join(srcDir, "x.csv")
	if err := os.WriteFile(srcPath, []byte("a,b\n1,2\n"), 0644); err != nil {
		t.Fatal(err)
	}

	b, err := NewBucket("file://" + bucketDir)
	if err != nil {
		t.Fatalf("NewBucket failed: %v", err)
	}
	defer b.Close()

	uri, err := b.Deliver(context.Background(), srcPath, "x.csv")
	if err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}
	if !strings.HasSuffix(uri, "/x.csv") {
		t.Errorf("final URI = %q", uri)
	}

	data, err := os.ReadFile(filepath.Join(bucketDir, "x.csv"))
	if err != nil {
		t.Fatalf("read delivered object: %v", err)
	}
	if string(data) != "a,b\n1,2\n" {
		t.Errorf("delivered content = %q", data)
	}

	// Temp keys are cleaned up after promotion.
	entries, err := os.ReadDir(bucketDir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp.") {
			t.Errorf("temp key left behind: %s", e.Name())
		}
	}
}

func TestNewRejectsAmbiguousConfig(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("empty config must be rejected")
	}
	if _, err := New(Config{Dir: "/a", BucketURL: "file:///b"}); err == nil {
		t.Error("dir and bucket_url together must be rejected")
	}
}
