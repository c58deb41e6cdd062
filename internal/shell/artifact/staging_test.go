package artifact

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStaging(t *testing.T) *Staging {
	t.Helper()
	s, err := NewStaging(t.TempDir(), nil)
	require.NoError(t, err)
	return s
}

// zipWith builds an in-memory zip holding the given entries.
func zipWith(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range entries {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestStash_WritesTempFile(t *testing.T) {
	s := newTestStaging(t)

	a, err := s.Stash(strings.NewReader("payload"), "application/zip")

	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(a.TempPath, ".zip"))
	assert.Equal(t, s.Dir(), filepath.Dir(a.TempPath))

	data, err := os.ReadFile(a.TempPath)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestStash_RejectsNonZip(t *testing.T) {
	s := newTestStaging(t)

	_, err := s.Stash(strings.NewReader("payload"), "application/gzip")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestStash_AcceptsWindowsZipMime(t *testing.T) {
	s := newTestStaging(t)

	_, err := s.Stash(strings.NewReader("payload"), "application/x-zip-compressed")

	assert.NoError(t, err)
}

func TestFinalize_MovesToProjectPath(t *testing.T) {
	s := newTestStaging(t)
	a, err := s.Stash(strings.NewReader("payload"), "application/zip")
	require.NoError(t, err)

	finalPath, err := s.Finalize(a, "prj-42")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Dir(), "prj-42.zip"), finalPath)
	assert.NoFileExists(t, a.TempPath)
	assert.FileExists(t, finalPath)
}

func TestRemove_BestEffort(t *testing.T) {
	s := newTestStaging(t)
	a, err := s.Stash(strings.NewReader("payload"), "application/zip")
	require.NoError(t, err)

	s.Remove(a.TempPath)
	assert.NoFileExists(t, a.TempPath)

	// Removing a missing file is silent.
	s.Remove(a.TempPath)
	s.Remove("")
}

func TestReadEntry(t *testing.T) {
	s := newTestStaging(t)
	archive := zipWith(t, map[string]string{
		"compose.yml": "services:\n  web:\n    image: nginx\n",
		"src/main.go": "package main\n",
	})
	a, err := s.Stash(bytes.NewReader(archive), "application/zip")
	require.NoError(t, err)

	data, err := s.ReadEntry(a, "compose.yml")
	require.NoError(t, err)
	assert.Contains(t, string(data), "nginx")

	_, err = s.ReadEntry(a, "missing.yml")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestReadEntry_NotAnArchive(t *testing.T) {
	s := newTestStaging(t)
	a, err := s.Stash(strings.NewReader("definitely not a zip"), "application/zip")
	require.NoError(t, err)

	_, err = s.ReadEntry(a, "compose.yml")
	assert.Error(t, err)
}
