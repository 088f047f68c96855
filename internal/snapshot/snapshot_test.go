package snapshot

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, body string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, []byte(body), 0644))
}

func TestCollectRegularFilesOnly(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "hello")
	writeFile(t, root, "b/c.txt", "nested")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0755))
	if err := os.Symlink(filepath.Join(root, "a.txt"), filepath.Join(root, "link.txt")); err != nil {
		t.Logf("symlink not supported: %v", err)
	}

	m, err := Collect(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b/c.txt"}, m.Paths())
	assert.Equal(t, int64(5), m["a.txt"].Size)
	assert.Equal(t, int64(6), m["b/c.txt"].Size)
}

func TestCollectTruncatesToMilliseconds(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "x")
	ts := time.Date(2024, 5, 1, 10, 0, 0, 123456789, time.UTC)
	require.NoError(t, os.Chtimes(filepath.Join(root, "a.txt"), ts, ts))

	m, err := Collect(root)
	require.NoError(t, err)
	assert.Equal(t, ts.UnixMilli(), m["a.txt"].MTime)
}

func TestCollectMissingRoot(t *testing.T) {
	_, err := Collect(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestFilterAndReserved(t *testing.T) {
	m := Map{
		"a.txt":                {MTime: 1, Size: 1},
		".sync_temp/raw/a.txt": {MTime: 1, Size: 1},
		".sync_ignore":         {MTime: 1, Size: 1},
		"css/.sync_ignore_not": {MTime: 1, Size: 1},
		"img/logo.png":         {MTime: 2, Size: 10},
	}
	got := m.Filter(IsReserved)
	assert.Equal(t, []string{"a.txt", "css/.sync_ignore_not", "img/logo.png"}, got.Paths())
	assert.Len(t, m, 5, "filter must not mutate the receiver")
}

func TestDiffIdempotent(t *testing.T) {
	s := Map{"a.txt": {MTime: 1, Size: 2}, "b/c.txt": {MTime: 3, Size: 4}}
	d := Diff(s, s)
	assert.True(t, d.Empty())
	assert.Empty(t, d.Upserted)
	assert.Empty(t, d.Deleted)
}

func TestDiffUpsertsAndDeletes(t *testing.T) {
	before := Map{
		"a.txt":   {MTime: 1, Size: 2},
		"b/c.txt": {MTime: 3, Size: 4},
		"gone.js": {MTime: 5, Size: 6},
	}
	after := Map{
		"a.txt":   {MTime: 1, Size: 2},
		"b/c.txt": {MTime: 9, Size: 4},
		"z.css":   {MTime: 1, Size: 1},
		"new.txt": {MTime: 1, Size: 1},
	}
	d := Diff(before, after)
	assert.Equal(t, []string{"b/c.txt", "new.txt", "z.css"}, d.Upserted)
	assert.Equal(t, []string{"gone.js"}, d.Deleted)
}

func TestDiffAgainstEmpty(t *testing.T) {
	after := Map{"b.txt": {}, "a.txt": {}}
	d := Diff(nil, after)
	assert.Equal(t, []string{"a.txt", "b.txt"}, d.Upserted)
	assert.Empty(t, d.Deleted)
}
