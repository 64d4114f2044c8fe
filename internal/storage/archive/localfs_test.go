// internal/storage/archive/localfs_test.go
package archive

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFS_ImplementsStorage(t *testing.T) {
	var _ Storage = (*LocalFS)(nil)
}

func newLocalFS(t *testing.T) (*LocalFS, string) {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewLocalFS(dir)
	require.NoError(t, err)
	return fs, dir
}

func TestLocalFS_WriteReadSnapshot(t *testing.T) {
	fs, dir := newLocalFS(t)
	ctx := context.Background()
	p := SnapshotPath(time.Date(2025, 3, 7, 17, 30, 0, 0, time.UTC), "run-1")

	require.NoError(t, fs.Write(ctx, p, []byte(`[{"code":"6072"}]`)))
	require.NoError(t, fs.Write(ctx, p, []byte(`[{"code":"7203"}]`)))

	got, err := fs.Read(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, `[{"code":"7203"}]`, string(got))

	entries, err := os.ReadDir(filepath.Join(dir, "runs", "2025", "03", "07"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestLocalFS_RejectsEscapingPaths(t *testing.T) {
	fs, _ := newLocalFS(t)
	ctx := context.Background()

	assert.Error(t, fs.Write(ctx, "../outside.json", []byte("x")))
	_, err := fs.Read(ctx, "charts/../../etc/passwd")
	assert.Error(t, err)
}

func TestLocalFS_Exists(t *testing.T) {
	fs, _ := newLocalFS(t)
	ctx := context.Background()

	exists, err := fs.Exists(ctx, ChartPath("6072"))
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, fs.Write(ctx, ChartPath("6072"), []byte("png")))
	exists, err = fs.Exists(ctx, ChartPath("6072"))
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestLocalFS_List(t *testing.T) {
	fs, _ := newLocalFS(t)
	ctx := context.Background()

	day := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	require.NoError(t, fs.Write(ctx, SnapshotPath(day, "a"), []byte("a")))
	require.NoError(t, fs.Write(ctx, SnapshotPath(day, "b"), []byte("b")))
	require.NoError(t, fs.Write(ctx, SnapshotPath(day.AddDate(0, 1, 0), "c"), []byte("c")))

	objs, err := fs.List(ctx, "runs/2025/01")
	require.NoError(t, err)
	require.Len(t, objs, 2)
	for _, o := range objs {
		assert.True(t, strings.HasPrefix(o.Path, "runs/2025/01/06/"), o.Path)
		assert.False(t, o.ModTime.IsZero(), o.Path)
	}

	objs, err = fs.List(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, objs)
}

func TestLocalFS_Delete(t *testing.T) {
	fs, _ := newLocalFS(t)
	ctx := context.Background()

	require.NoError(t, fs.Write(ctx, ChartPath("7203"), []byte("png")))
	require.NoError(t, fs.Delete(ctx, ChartPath("7203")))

	exists, _ := fs.Exists(ctx, ChartPath("7203"))
	assert.False(t, exists)
	assert.NoError(t, fs.Delete(ctx, ChartPath("7203")), "deleting twice is not an error")
}
