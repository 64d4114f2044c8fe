// internal/storage/archive/interface.go
package archive

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/Ken-helpme/pts-ranking-reporter/internal/config"
)

// Object is one stored item.
type Object struct {
	Path    string
	ModTime time.Time
}

// Storage defines the interface for cold/archive storage backends
type Storage interface {
	// Write stores data at the given path
	Write(ctx context.Context, path string, data []byte) error

	// Read retrieves data from the given path
	Read(ctx context.Context, path string) ([]byte, error)

	// List returns all objects under the prefix
	List(ctx context.Context, prefix string) ([]Object, error)

	// Delete removes the data at the given path
	Delete(ctx context.Context, path string) error

	// Exists checks if data exists at the given path
	Exists(ctx context.Context, path string) (bool, error)
}

// Prefixes for the two kinds of archived objects.
const (
	RunsPrefix   = "runs"
	ChartsPrefix = "charts"
)

// SnapshotPath is where a run's records are archived, grouped by day.
func SnapshotPath(ts time.Time, runID string) string {
	return path.Join(RunsPrefix, ts.Format("2006/01/02"), runID+".json")
}

// ChartPath is where the chart image for a code is stored.
func ChartPath(code string) string {
	return path.Join(ChartsPrefix, code+".png")
}

// New creates the configured backend. An empty type disables archiving and
// returns a nil Storage.
func New(cfg config.ColdStorageConfig) (Storage, error) {
	switch cfg.Type {
	case "":
		return nil, nil
	case "localfs":
		return NewLocalFS(cfg.Path)
	case "s3":
		return NewS3(cfg.S3)
	default:
		return nil, fmt.Errorf("unknown archive type: %s", cfg.Type)
	}
}

// Prune deletes objects under prefix last modified before cutoff and returns
// how many were removed.
func Prune(ctx context.Context, s Storage, prefix string, cutoff time.Time) (int, error) {
	objs, err := s.List(ctx, prefix)
	if err != nil {
		return 0, fmt.Errorf("listing %s: %w", prefix, err)
	}
	n := 0
	for _, o := range objs {
		if !o.ModTime.Before(cutoff) {
			continue
		}
		if err := s.Delete(ctx, o.Path); err != nil {
			return n, fmt.Errorf("deleting %s: %w", o.Path, err)
		}
		n++
	}
	return n, nil
}
