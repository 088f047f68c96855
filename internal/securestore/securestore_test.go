package securestore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	// keep key derivation cheap in tests
	orig := defaultKDF
	defaultKDF = func() (kdfParams, error) {
		p, err := orig()
		p.timeCost = 1
		p.memoryKB = 1024
		p.threads = 1
		return p, err
	}
}

func TestSealOpenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".sync_temp", FileName)
	require.NoError(t, Seal([]byte("correct horse"), []byte("ftp-secret"), path))
	assert.True(t, Exists(path))

	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), fi.Mode().Perm())

	got, err := Open([]byte("correct horse"), path)
	require.NoError(t, err)
	assert.Equal(t, "ftp-secret", string(got))
}

func TestOpenWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Seal([]byte("one"), []byte("secret"), path))

	_, err := Open([]byte("two"), path)
	assert.ErrorIs(t, err, ErrWrongPassphrase)
}

func TestOpenMissingAndCorrupt(t *testing.T) {
	dir := t.TempDir()
	_, err := Open([]byte("x"), filepath.Join(dir, "none.enc"))
	assert.ErrorIs(t, err, ErrNoVault)

	bad := filepath.Join(dir, "bad.enc")
	require.NoError(t, os.WriteFile(bad, []byte("NOTAVAULT"), 0600))
	_, err = Open([]byte("x"), bad)
	assert.Error(t, err)

	path := filepath.Join(dir, FileName)
	require.NoError(t, Seal([]byte("p"), []byte("secret"), path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)-1] ^= 0xff
	require.NoError(t, os.WriteFile(path, data, 0600))
	_, err = Open([]byte("p"), path)
	assert.ErrorIs(t, err, ErrWrongPassphrase)
}

func TestSealFailsWithoutRandomness(t *testing.T) {
	orig := randReader
	randReader = iotest.ErrReader(errors.New("entropy unavailable"))
	defer func() { randReader = orig }()

	path := filepath.Join(t.TempDir(), FileName)
	err := Seal([]byte("pass"), []byte("secret"), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entropy unavailable")
	assert.False(t, Exists(path))
}
