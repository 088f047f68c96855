package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir string, lines ...string) {
	t.Helper()
	text := strings.Join(lines, "\n") + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(text), 0644))
}

func TestEnvInterpolationFromDotEnv(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir,
		"project_name: shop",
		"ftp:",
		"  host: ${SKIN_SYNC_TEST_HOST}",
		"  user: deploy",
		"  password: ${SKIN_SYNC_TEST_PASSWORD}",
	)
	require.NoError(t, os.WriteFile(filepath.Join(dir, EnvFileName),
		[]byte("SKIN_SYNC_TEST_HOST=ftp.from.env\nSKIN_SYNC_TEST_PASSWORD=s3cret\n"), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "ftp.from.env", cfg.FTP.Host)
	assert.Equal(t, "s3cret", cfg.FTP.Password)
	_, leaked := os.LookupEnv("SKIN_SYNC_TEST_HOST")
	assert.False(t, leaked)
}

func TestEnvInterpolationPrecedenceOSTakesPriority(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "project_name: shop", "ftp:", "  host: ${SKIN_SYNC_TEST_HOST}")
	require.NoError(t, os.WriteFile(filepath.Join(dir, EnvFileName), []byte("SKIN_SYNC_TEST_HOST=ftp.from.env\n"), 0644))
	t.Setenv("SKIN_SYNC_TEST_HOST", "ftp.from.os")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "ftp.from.os", cfg.FTP.Host)
}

func TestDefaultsApplied(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "project_name: shop", "transfer:", "  timeout: 30s")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "skin-ftp", cfg.Solution)
	assert.Equal(t, "skin", cfg.LocalPath)
	assert.Equal(t, "/", cfg.RemotePath)
	assert.Equal(t, 21, cfg.FTP.Port)
	assert.Equal(t, 30*time.Second, cfg.Transfer.Timeout)
	assert.Equal(t, 3, cfg.Transfer.MaxAttempts)
	assert.Equal(t, 25, cfg.Transfer.ProgressEvery)
	assert.Equal(t, "json", cfg.Metadata.Backend)
	assert.Equal(t, filepath.Join(cfg.Dir(), "skin"), cfg.LocalRoot())
	assert.Equal(t, filepath.Join(cfg.Dir(), MetaDirName), cfg.MetaDir())
}

func TestValidationErrors(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir,
		"solution: ftp",
		"local_path: .",
		"remote_path: shop",
		"transfer:",
		"  max_attempts: 50",
		"metadata:",
		"  backend: redis",
	)

	_, err := Load(dir)
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "configuration validation failed")
	assert.Contains(t, msg, "project_name cannot be empty")
	assert.Contains(t, msg, "solution must be one of")
	assert.Contains(t, msg, "remote_path must start with")
	assert.Contains(t, msg, "transfer.max_attempts")
	assert.Contains(t, msg, "metadata.backend")
	assert.Contains(t, msg, "local_path must be a subdirectory")
}

func TestLocalPathMustStayInsideProject(t *testing.T) {
	dir := t.TempDir()
	for _, local := range []string{"..", "../..", "skin/../..", "../other", filepath.Dir(dir)} {
		writeConfig(t, dir, "project_name: shop", "local_path: "+local)
		_, err := Load(dir)
		require.Error(t, err, local)
		assert.Contains(t, err.Error(), "local_path must not", local)
	}

	for _, local := range []string{"skin", "skins/../theme", filepath.Join(dir, "skin"), filepath.Join(t.TempDir(), "elsewhere")} {
		writeConfig(t, dir, "project_name: shop", "local_path: "+local)
		_, err := Load(dir)
		assert.NoError(t, err, local)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveLoadAndFindProjectDir(t *testing.T) {
	dir := t.TempDir()
	cfg := Default("shop")
	cfg.FTP.Host = "ftp.example.com"
	cfg.FTP.User = "deploy"
	require.NoError(t, Save(dir, cfg))

	nested := filepath.Join(dir, "skin", "css")
	require.NoError(t, os.MkdirAll(nested, 0755))
	found, err := FindProjectDir(nested)
	require.NoError(t, err)
	assert.Equal(t, dir, found)

	loaded, err := Load(found)
	require.NoError(t, err)
	assert.Equal(t, "ftp.example.com", loaded.FTP.Host)
	assert.Equal(t, 180*time.Second, loaded.Transfer.Timeout)
	assert.Equal(t, 1500*time.Millisecond, loaded.Watch.Debounce)
}
