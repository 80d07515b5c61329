package utils

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetFileExtension(t *testing.T) {
	assert.Equal(t, "jpg", GetFileExtension("a/b/slide.JPG"))
	assert.Equal(t, "", GetFileExtension("README"))
}

func TestIsImageFile(t *testing.T) {
	assert.True(t, IsImageFile("slide.webp"))
	assert.True(t, IsImageFile("slide.jpeg"))
	assert.False(t, IsImageFile("slide.tiff"))
	assert.False(t, IsImageFile("notes.txt"))
}

func TestOutputFilename(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "slide_vr.jpg"), OutputFilename("in/slide.png", "out", "_vr", "jpg"))
	assert.Equal(t, filepath.Join("out", "slide.png"), OutputFilename("in/slide.png", "out", "", ""))
	assert.Equal(t, filepath.Join("out", "anim.jpg"), OutputFilename("anim.gif", "out", "", ""))
}

func TestWithImageExtension(t *testing.T) {
	assert.Equal(t, "out/frame.jpg", WithImageExtension("out/frame"))
	assert.Equal(t, "out/frame.png", WithImageExtension("out/frame.png"))
	assert.Equal(t, "out/frame.webp", WithImageExtension("out/frame.webp"))
	assert.Equal(t, "out/frame.v2.jpg", WithImageExtension("out/frame.v2"))
}

func TestListImageFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.jpg", "a.png", "notes.txt", filepath.Join("sub", "c.jpg")} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	}

	files, err := ListImageFiles(dir, false)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.png"), filepath.Join(dir, "b.jpg")}, files)

	files, err = ListImageFiles(dir, true)
	require.NoError(t, err)
	assert.Len(t, files, 3)

	_, err = ListImageFiles(filepath.Join(dir, "missing"), false)
	assert.Error(t, err)
}

func TestFileAndDirExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f.jpg")
	require.NoError(t, os.WriteFile(file, make([]byte, 2048), 0644))

	assert.True(t, FileExists(file))
	assert.False(t, FileExists(dir))
	assert.True(t, DirExists(dir))
	assert.False(t, DirExists(file))
	assert.Equal(t, "2.0 kB", FileSize(file))
	assert.Equal(t, "", FileSize(filepath.Join(dir, "none")))
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, EnsureDir(dir))
	assert.True(t, DirExists(dir))
	require.NoError(t, EnsureDir(dir))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "a_b_c", SanitizeFilename(" a/b:c. "))
}

func TestSplitRows(t *testing.T) {
	assert.Equal(t, [][2]int{{0, 3}, {3, 6}, {6, 10}}, SplitRows(10, 3))
	assert.Equal(t, [][2]int{{0, 2}, {2, 4}}, SplitRows(4, 2))
	assert.Equal(t, [][2]int{{0, 1}, {1, 2}}, SplitRows(2, 8))
	assert.Equal(t, [][2]int{{0, 5}}, SplitRows(5, 0))
	assert.Empty(t, SplitRows(0, 4))
}

func TestParallelRowsCoversEveryRow(t *testing.T) {
	seen := make([]int32, 97)
	ParallelRows(len(seen), func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			atomic.AddInt32(&seen[y], 1)
		}
	})
	for y, n := range seen {
		assert.Equal(t, int32(1), n, "row %d", y)
	}
}
