package metastore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doc struct {
	Files []string `json:"files"`
}

func storesUnderTest(t *testing.T) map[string]Store {
	t.Helper()
	sqlStore, err := OpenSQLStore(filepath.Join(t.TempDir(), "meta", "metadata.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlStore.Close() })
	return map[string]Store{
		"file":   NewFileStore(DirPerProject(t.TempDir())),
		"memory": NewMemoryStore(),
		"sqlite": sqlStore,
	}
}

func TestStoreContract(t *testing.T) {
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			var got doc
			ok, err := s.Load("p1", "baseline", &got)
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Save("p1", "baseline", doc{Files: []string{"a.txt"}}))
			require.NoError(t, s.Save("p1", "baseline", doc{Files: []string{"a.txt", "b/c.txt"}}))
			require.NoError(t, s.Save("p2", "baseline", doc{Files: []string{"other"}}))

			ok, err = s.Load("p1", "baseline", &got)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, []string{"a.txt", "b/c.txt"}, got.Files)

			require.NoError(t, s.Delete("p1", "baseline"))
			require.NoError(t, s.Delete("p1", "baseline"))
			ok, err = s.Load("p1", "baseline", &got)
			require.NoError(t, err)
			assert.False(t, ok)

			var other doc
			ok, err = s.Load("p2", "baseline", &other)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, []string{"other"}, other.Files)
		})
	}
}

func TestFileStoreFormat(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(SingleDir(dir))
	require.NoError(t, s.Save("ignored", "sync-rules", map[string][]string{"trackedNewServerFiles": {}}))

	data, err := os.ReadFile(filepath.Join(dir, "sync-rules.json"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), "}\n"))
	assert.Contains(t, string(data), "\n  \"trackedNewServerFiles\": []")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFileStoreRejectsBadNames(t *testing.T) {
	s := NewFileStore(DirPerProject(t.TempDir()))
	assert.Error(t, s.Save("../escape", "baseline", doc{}))
	assert.Error(t, s.Save("p", "../baseline", doc{}))
}

func TestProjectKeyStable(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, ProjectKey(dir), ProjectKey(dir+string(filepath.Separator)+"."))
	assert.NotEqual(t, ProjectKey(dir), ProjectKey(filepath.Join(dir, "other")))
	assert.Len(t, ProjectKey(dir), 16)
}
