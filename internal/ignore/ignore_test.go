package ignore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatcherSimple(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("*.tmp\n# comment\n"), 0644))

	m := New(dir)
	assert.True(t, m.Match(filepath.Join(dir, "foo.tmp"), false))
	assert.True(t, m.Skip("deep/dir/bar.tmp"))
	assert.False(t, m.Skip("index.html"))
	assert.True(t, m.Match(filepath.Join(dir, ".sync_temp"), true), "defaults always apply")
	assert.True(t, m.Skip("css/.DS_Store"))
}

func TestMatcherCascade(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, FileName), []byte("*.log\n"), 0644))
	child := filepath.Join(root, "sub")
	require.NoError(t, os.MkdirAll(child, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(child, FileName), []byte("!keep.log\n"), 0644))

	m := New(root)
	assert.True(t, m.Match(filepath.Join(child, "other.log"), false))
	assert.False(t, m.Match(filepath.Join(child, "keep.log"), false))
	assert.True(t, m.Skip("keep.log"), "negation only applies below sub/")
}

func TestMatcherReset(t *testing.T) {
	root := t.TempDir()
	m := New(root)
	assert.False(t, m.Skip("a.bak"))

	require.NoError(t, os.WriteFile(filepath.Join(root, FileName), []byte("*.bak\n"), 0644))
	assert.False(t, m.Skip("a.bak"), "cached until reset")
	m.Reset()
	assert.True(t, m.Skip("a.bak"))
}
