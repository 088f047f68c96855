package syncstate

import (
	"testing"
	"time"

	"skin-sync/internal/metastore"
	"skin-sync/internal/snapshot"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleStoreNormalizesOnWrite(t *testing.T) {
	rs := NewRuleStore(metastore.NewMemoryStore(), "p")

	st, err := rs.Read()
	require.NoError(t, err)
	assert.Empty(t, st.TrackedNewServerFiles)

	require.NoError(t, rs.Write(State{TrackedNewServerFiles: []string{"d.txt", "b.txt", "d.txt", ""}}))
	st, err = rs.Read()
	require.NoError(t, err)
	assert.Equal(t, []string{"b.txt", "d.txt"}, st.TrackedNewServerFiles)
	assert.True(t, st.Has("d.txt"))
	assert.False(t, st.Has("c.txt"))

	require.NoError(t, rs.Reset())
	st, err = rs.Read()
	require.NoError(t, err)
	assert.NotNil(t, st.TrackedNewServerFiles)
	assert.Empty(t, st.TrackedNewServerFiles)
}

func TestManifestStorePerSolution(t *testing.T) {
	ms := NewManifestStore(metastore.NewMemoryStore(), "p")

	man, err := ms.Read("skin-ftp")
	require.NoError(t, err)
	assert.Nil(t, man)

	now := time.Now().UTC().Truncate(time.Second)
	files := snapshot.Map{"a.txt": {MTime: 1, Size: 2}}
	require.NoError(t, ms.Write("skin-ftp", Manifest{UpdatedAt: now, Files: files}))

	man, err = ms.Read("skin-ftp")
	require.NoError(t, err)
	require.NotNil(t, man)
	assert.Equal(t, files, man.Files)
	assert.True(t, now.Equal(man.UpdatedAt))

	other, err := ms.Read("mobile-ftp")
	require.NoError(t, err)
	assert.Nil(t, other)
}
