package accesscode

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvStorePrefersProcessEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("SPEECHGATE_TEST_CODE=from-file\n"), 0o600))

	store, err := NewEnvStore("SPEECHGATE_TEST_CODE", path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", store.AccessCode())

	t.Setenv("SPEECHGATE_TEST_CODE", "from-env")
	assert.Equal(t, "from-env", store.AccessCode())
}

func TestEnvStoreSkipsMissingFiles(t *testing.T) {
	store, err := NewEnvStore("", filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
	assert.Equal(t, DefaultEnvKey, store.Key())
}

func TestEnvStoreFirstFileWins(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a.env")
	second := filepath.Join(dir, "b.env")
	require.NoError(t, os.WriteFile(first, []byte("SPEECHGATE_ORDER=first\n"), 0o600))
	require.NoError(t, os.WriteFile(second, []byte("SPEECHGATE_ORDER=second\n"), 0o600))

	store, err := NewEnvStore("SPEECHGATE_ORDER", first, second)
	require.NoError(t, err)
	assert.Equal(t, "first", store.AccessCode())
}

func TestStatic(t *testing.T) {
	assert.Equal(t, "1234", Static("1234").AccessCode())
}
