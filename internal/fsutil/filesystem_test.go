package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSFileSystemRoundTrip(t *testing.T) {
	fsys := OSFileSystem{}
	path := filepath.Join(t.TempDir(), "probe.json")

	assert.False(t, fsys.Exists(path))
	require.NoError(t, fsys.WriteFile(path, []byte(`{"a":1}`), 0o644))
	assert.True(t, fsys.Exists(path))

	data, err := fsys.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(data))

	info, err := fsys.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(7), info.Size())
}

func TestMemoryFileSystemRoundTrip(t *testing.T) {
	fsys := NewMemoryFileSystem()

	assert.False(t, fsys.Exists("cfg/tuning.json"))
	require.NoError(t, fsys.WriteFile("cfg/tuning.json", []byte("{}"), 0o600))
	assert.True(t, fsys.Exists("cfg/tuning.json"))

	data, err := fsys.ReadFile("cfg/tuning.json")
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))

	info, err := fsys.Stat("cfg/tuning.json")
	require.NoError(t, err)
	assert.Equal(t, "tuning.json", info.Name())
	assert.Equal(t, int64(2), info.Size())
	assert.Equal(t, os.FileMode(0o600), info.Mode())
}

func TestMemoryFileSystemMissing(t *testing.T) {
	fsys := NewMemoryFileSystem()

	_, err := fsys.ReadFile("absent.json")
	assert.ErrorIs(t, err, os.ErrNotExist)
	_, err = fsys.Stat("absent.json")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestMemoryFileSystemWriteIsolatesCaller(t *testing.T) {
	fsys := NewMemoryFileSystem()
	buf := []byte("original")
	require.NoError(t, fsys.WriteFile("f", buf, 0o644))
	buf[0] = 'X'

	data, err := fsys.ReadFile("f")
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))
}

func TestMemoryFileSystemCleansPaths(t *testing.T) {
	fsys := NewMemoryFileSystem()
	require.NoError(t, fsys.WriteFile("dir/../tuning.json", []byte("{}"), 0o644))
	assert.True(t, fsys.Exists("tuning.json"))
}
