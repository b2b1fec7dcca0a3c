package gallery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidName(t *testing.T) {
	valid := []string{"pc59_over_pc32.jpg", "tile.JPEG", "a.png", "b.webp"}
	for _, n := range valid {
		assert.True(t, ValidName(n), n)
	}

	invalid := []string{"", "..", "../x.png", "sub/x.png", `sub\x.png`, "notes.txt", "noext"}
	for _, n := range invalid {
		assert.False(t, ValidName(n), n)
	}
}

func TestSaveAndExists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "images")
	g := New(dir)

	assert.False(t, g.Exists("tile.png"))

	p, err := g.Save("tile.png", []byte{0x89, 'P', 'N', 'G'})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "tile.png"), p)
	assert.True(t, g.Exists("tile.png"))

	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, data)
}

func TestSave_ReplacesWithoutLeftovers(t *testing.T) {
	dir := t.TempDir()
	g := New(dir)

	_, err := g.Save("tile.png", []byte("first"))
	require.NoError(t, err)
	p, err := g.Save("tile.png", []byte("second"))
	require.NoError(t, err)

	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temp files left behind")
	assert.Equal(t, "tile.png", entries[0].Name())

	info, err := os.Stat(p)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestSave_Rejects(t *testing.T) {
	g := New(t.TempDir())

	_, err := g.Save("../escape.png", []byte("x"))
	assert.ErrorIs(t, err, ErrBadName)

	_, err = g.Save("empty.png", nil)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestExists_DirectoryIsNotAnImage(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "folder.png"), 0o755))
	assert.False(t, New(dir).Exists("folder.png"))
}

func TestMIMEType(t *testing.T) {
	assert.Equal(t, "image/jpeg", MIMEType("tile.JPG"))
	assert.Equal(t, "image/webp", MIMEType("tile.webp"))
	assert.Equal(t, "image/png", MIMEType("tile.png"))
	assert.Empty(t, MIMEType("notes.txt"))
}

func TestRead(t *testing.T) {
	g := New(t.TempDir())
	_, err := g.Save("tile.jpg", []byte("jpeg bytes"))
	require.NoError(t, err)

	data, err := g.Read("tile.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg bytes"), data)

	_, err = g.Read("missing.jpg")
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = g.Read("../tile.jpg")
	assert.ErrorIs(t, err, ErrBadName)
}
