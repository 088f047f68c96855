package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTouchAndRecent(t *testing.T) {
	b := Open(t.TempDir())
	clock := time.Unix(1000, 0)
	b.now = func() time.Time { clock = clock.Add(time.Minute); return clock }

	require.NoError(t, b.Touch("/work/shop-a", "Shop A"))
	require.NoError(t, b.Touch("/work/shop-b", "Shop B"))
	require.NoError(t, b.Touch("/work/shop-a", ""))

	all, err := b.Recent("")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "/work/shop-a", all[0].Path)
	assert.Equal(t, "Shop A", all[0].Name)

	found, err := b.Recent("shop b")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "/work/shop-b", found[0].Path)

	require.NoError(t, b.Remove("/work/shop-a"))
	all, err = b.Recent("")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestLoadMissingIsEmpty(t *testing.T) {
	h, err := Open(t.TempDir()).Load()
	require.NoError(t, err)
	assert.Empty(t, h.Entries)
}
