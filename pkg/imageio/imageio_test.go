package imageio

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/stereoslide/pkg/types"
)

// createTestImage creates a simple gradient test image
func createTestImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.NRGBA{uint8((x * 255) / width), uint8((y * 255) / height), 128, 255})
		}
	}
	return img
}

func TestNew(t *testing.T) {
	codec := New()
	require.NotNil(t, codec)
	assert.Equal(t, 95, codec.config.Quality)
}

func TestNewWithConfig(t *testing.T) {
	codec := NewWithConfig(Config{SupportedFormats: []string{"png"}, Quality: 70})
	assert.Equal(t, 70, codec.config.Quality)
	assert.True(t, codec.isFormatSupported("PNG"))
	assert.False(t, codec.isFormatSupported("jpeg"))
}

func TestGetImageInfo(t *testing.T) {
	info := GetImageInfo(createTestImage(400, 300))
	assert.Equal(t, 400, info.Width)
	assert.Equal(t, 300, info.Height)
	assert.Equal(t, 3, info.Channels)
	assert.InDelta(t, 400.0/300.0, info.AspectRatio, 1e-9)

	gray := GetImageInfo(image.NewGray(image.Rect(0, 0, 10, 5)))
	assert.Equal(t, 1, gray.Channels)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(createTestImage(10, 10)))
	assert.ErrorIs(t, Validate(image.NewNRGBA(image.Rect(0, 0, 0, 10))), types.ErrImageUnavailable)
	assert.ErrorIs(t, Validate(nil), types.ErrImageUnavailable)
}

func TestSaveAndLoadPNG(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "frame.png")
	codec := New()
	src := createTestImage(64, 32)

	require.NoError(t, codec.SaveImage(src, path))

	loaded, err := codec.LoadImage(path)
	require.NoError(t, err)
	got := ToNRGBA(loaded)
	assert.Equal(t, src.Bounds(), got.Bounds())
	assert.Equal(t, src.Pix, got.Pix)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestSaveJPEG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.jpg")
	require.NoError(t, New().SaveImage(createTestImage(32, 32), path))

	img, err := New().LoadImage(path)
	require.NoError(t, err)
	assert.Equal(t, 32, img.Bounds().Dx())
}

func TestSaveUnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "frame.tiff")

	err := New().SaveImage(createTestImage(8, 8), path)
	require.ErrorIs(t, err, types.ErrOutputWrite)
	assert.NoFileExists(t, path)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := New().LoadImage(filepath.Join(t.TempDir(), "missing.jpg"))
	assert.ErrorIs(t, err, types.ErrImageUnavailable)
}

func TestLoadGarbage(t *testing.T) {
	_, err := New().LoadImageFromReader(strings.NewReader("not an image"))
	assert.ErrorIs(t, err, types.ErrImageUnavailable)
}

func TestLoadUnsupportedFormat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New().Encode(&buf, createTestImage(8, 8), "png"))

	codec := NewWithConfig(Config{SupportedFormats: []string{"jpeg"}})
	_, err := codec.LoadImageFromReader(&buf)
	assert.ErrorIs(t, err, types.ErrImageUnavailable)
}

func TestToNRGBADoesNotAlias(t *testing.T) {
	src := createTestImage(4, 4)
	dst := ToNRGBA(src)
	dst.Pix[0] = 1
	assert.NotEqual(t, src.Pix[0], dst.Pix[0])
}
