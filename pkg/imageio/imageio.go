// Package imageio is the codec boundary of the converter: it decodes slide
// scans into memory and encodes finished frames back to disk.
package imageio

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/stereoslide/pkg/types"
)

// Codec loads and saves images.
type Codec struct {
	config Config
}

// Config holds the codec settings.
type Config struct {
	// SupportedFormats lists the decoder names accepted on input.
	SupportedFormats []string
	// Quality is used for JPEG and lossy WebP output (1-100).
	Quality int
	// Lossless selects lossless WebP output.
	Lossless bool
}

// DefaultConfig returns the codec defaults.
func DefaultConfig() Config {
	return Config{
		SupportedFormats: []string{"jpeg", "png", "gif", "webp"},
		Quality:          95,
	}
}

// New creates a Codec with default configuration.
func New() *Codec {
	return &Codec{config: DefaultConfig()}
}

// NewWithConfig creates a Codec with custom configuration.
func NewWithConfig(config Config) *Codec {
	return &Codec{config: config}
}

// ImageInfo contains basic image metadata.
type ImageInfo struct {
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	Channels    int     `json:"channels"`
	AspectRatio float64 `json:"aspect_ratio"`
}

// LoadImage opens and decodes the image at path. Any failure is reported as
// types.ErrImageUnavailable.
func (c *Codec) LoadImage(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrImageUnavailable, err)
	}
	img, err := c.LoadImageFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// LoadImageFromReader decodes an image from r, honouring EXIF orientation.
func (c *Codec) LoadImageFromReader(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrImageUnavailable, err)
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrImageUnavailable, err)
	}
	if !c.isFormatSupported(format) {
		return nil, fmt.Errorf("%w: unsupported image format: %s", types.ErrImageUnavailable, format)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrImageUnavailable, err)
	}

	if err := Validate(img); err != nil {
		return nil, err
	}
	return img, nil
}

// SaveImage encodes img to path. The format follows the file extension.
// The file is written to a temporary sibling and renamed into place, so a
// failed save never leaves a partial output behind. Failures are reported as
// types.ErrOutputWrite.
func (c *Codec) SaveImage(img image.Image, path string) error {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if ext == "" {
		return fmt.Errorf("%w: %s: missing file extension", types.ErrOutputWrite, path)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %w", types.ErrOutputWrite, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %w", types.ErrOutputWrite, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := c.Encode(tmp, img, ext); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %s: %w", types.ErrOutputWrite, path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", types.ErrOutputWrite, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%w: %w", types.ErrOutputWrite, err)
	}
	return nil
}

// Encode writes img to w in the format named by ext (jpg, jpeg, png, webp).
func (c *Codec) Encode(w io.Writer, img image.Image, ext string) error {
	switch strings.ToLower(ext) {
	case "webp":
		return webp.Encode(w, img, &webp.Options{Lossless: c.config.Lossless, Quality: float32(c.config.Quality)})
	case "png":
		return imaging.Encode(w, img, imaging.PNG)
	case "jpg", "jpeg":
		return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(c.config.Quality))
	default:
		return fmt.Errorf("unsupported output format: %s", ext)
	}
}

// GetImageInfo returns basic information about an image.
func GetImageInfo(img image.Image) ImageInfo {
	bounds := img.Bounds()
	info := ImageInfo{
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		Channels: channels(img.ColorModel()),
	}
	if info.Height > 0 {
		info.AspectRatio = float64(info.Width) / float64(info.Height)
	}
	return info
}

// Validate checks that img can enter the pipeline.
func Validate(img image.Image) error {
	if img == nil {
		return fmt.Errorf("%w: nil image", types.ErrImageUnavailable)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return fmt.Errorf("%w: empty image %dx%d", types.ErrImageUnavailable, b.Dx(), b.Dy())
	}
	return nil
}

// ToNRGBA returns img as an *image.NRGBA with its origin at (0, 0).
// The result never aliases img.
func ToNRGBA(img image.Image) *image.NRGBA {
	return imaging.Clone(img)
}

func (c *Codec) isFormatSupported(format string) bool {
	for _, supported := range c.config.SupportedFormats {
		if strings.EqualFold(format, supported) {
			return true
		}
	}
	return false
}

func channels(m color.Model) int {
	switch m {
	case color.GrayModel, color.Gray16Model:
		return 1
	default:
		return 3
	}
}
