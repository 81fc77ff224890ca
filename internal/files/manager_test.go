package files

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_CopyAndReplace(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(nil)

	src := filepath.Join(dir, "corrected.csv")
	dst := filepath.Join(dir, "subscribers", "input.csv")
	require.NoError(t, os.WriteFile(src, []byte("corrected"), 0644))

	require.NoError(t, m.CopyFile(src, dst))
	assert.FileExists(t, dst)

	require.NoError(t, os.WriteFile(src, []byte("corrected again"), 0644))
	require.NoError(t, m.ReplaceFile(src, dst))

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "corrected again", string(got))
	assert.NoFileExists(t, dst+".tmp")
}

func TestManager_ReplaceFile_MissingSource(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "input.csv")
	require.NoError(t, os.WriteFile(dst, []byte("original"), 0644))

	err := NewManager(nil).ReplaceFile(filepath.Join(dir, "nope.csv"), dst)
	assert.Error(t, err)

	got, _ := os.ReadFile(dst)
	assert.Equal(t, "original", string(got))
}

func TestManager_RemoveFiles(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(nil)

	present := filepath.Join(dir, "processing_errors.txt")
	require.NoError(t, os.WriteFile(present, nil, 0644))

	removed, err := m.RemoveFiles(present, filepath.Join(dir, "absent.csv"))
	require.NoError(t, err)
	assert.Equal(t, []string{present}, removed)
	assert.NoFileExists(t, present)
	assert.DirExists(t, dir)
}
