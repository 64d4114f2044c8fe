// internal/storage/archive/interface_test.go
package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Ken-helpme/pts-ranking-reporter/internal/config"
)

func TestSnapshotPath(t *testing.T) {
	ts := time.Date(2025, 10, 16, 17, 30, 0, 0, time.UTC)
	if got := SnapshotPath(ts, "abc"); got != "runs/2025/10/16/abc.json" {
		t.Errorf("SnapshotPath = %q", got)
	}
	if got := ChartPath("3778"); got != "charts/3778.png" {
		t.Errorf("ChartPath = %q", got)
	}
}

func TestNew(t *testing.T) {
	s, err := New(config.ColdStorageConfig{})
	if err != nil || s != nil {
		t.Errorf("empty type should disable archive, got %v, %v", s, err)
	}

	s, err = New(config.ColdStorageConfig{Type: "localfs", Path: t.TempDir()})
	if err != nil {
		t.Fatalf("localfs: %v", err)
	}
	if _, ok := s.(*LocalFS); !ok {
		t.Errorf("expected *LocalFS, got %T", s)
	}

	s, err = New(config.ColdStorageConfig{Type: "s3", S3: config.S3Config{Bucket: "b", Region: "ap-northeast-1"}})
	if err != nil {
		t.Fatalf("s3: %v", err)
	}
	if _, ok := s.(*S3Storage); !ok {
		t.Errorf("expected *S3Storage, got %T", s)
	}

	if _, err := New(config.ColdStorageConfig{Type: "ftp"}); err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestPrune(t *testing.T) {
	dir := t.TempDir()
	fs, _ := NewLocalFS(dir)
	ctx := context.Background()

	fs.Write(ctx, ChartPath("1111"), []byte("old"))
	fs.Write(ctx, ChartPath("2222"), []byte("new"))
	fs.Write(ctx, SnapshotPath(time.Now(), "run"), []byte("{}"))

	old := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(filepath.Join(dir, ChartPath("1111")), old, old); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	n, err := Prune(ctx, fs, ChartsPrefix, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 1 {
		t.Errorf("pruned %d, want 1", n)
	}

	if ok, _ := fs.Exists(ctx, ChartPath("1111")); ok {
		t.Error("old chart should be pruned")
	}
	if ok, _ := fs.Exists(ctx, ChartPath("2222")); !ok {
		t.Error("fresh chart should be kept")
	}
}
