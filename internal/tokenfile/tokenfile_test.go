package tokenfile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFile(t *testing.T) {
	tf, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Nil(t, tf)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens", "fabric.json")
	expiry := time.Now().Add(time.Hour).UTC().Truncate(time.Second)

	require.NoError(t, Save(path, &File{Token: "tok-123", Expiry: expiry}))

	tf, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, tf)
	assert.Equal(t, "tok-123", tf.Token)
	assert.True(t, expiry.Equal(tf.Expiry))
}

func TestSave_Permissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fabric.json")
	require.NoError(t, Save(path, &File{Token: "tok", Expiry: time.Now()}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(FilePerms), info.Mode().Perm())
}

func TestLoad_MissingTokenField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fabric.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"expiry":"2026-01-01T00:00:00Z"}`), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing token field")
}

func TestRemove_MissingFile(t *testing.T) {
	assert.NoError(t, Remove(filepath.Join(t.TempDir(), "nope.json")))
}
