package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindFilesByExtension(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	for _, name := range []string{"a.yaml", "b.txt", "sub/c.yaml"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}

	files, err := FindFilesByExtension(dir, ".yaml")
	require.NoError(t, err)
	assert.Len(t, files, 2)

	assert.Panics(t, func() { FindFilesByExtension(dir, "") })
}

func TestReadLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lines.txt")
	require.NoError(t, os.WriteFile(path, []byte("one  \n\nthree\t\r\n"), 0o644))

	lines, err := ReadLines(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "", "three"}, lines)

	_, err = ReadLines(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestIsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	assert.True(t, IsFile(path))
	assert.False(t, IsFile(dir))
	assert.False(t, IsFile(filepath.Join(dir, "nope")))
}
