// Package segment turns a photographed slide mount into a binary mask in
// which the photographic windows are the foreground (255).
package segment

import (
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
)

// Polarity tells the segmenter which threshold class holds the windows.
type Polarity string

const (
	// PolarityAuto treats the class covering most of the image border as the
	// mount and the other class as windows.
	PolarityAuto Polarity = "auto"
	// PolarityDark expects windows darker than the mount (light card mounts).
	PolarityDark Polarity = "dark"
	// PolarityLight expects windows lighter than the mount.
	PolarityLight Polarity = "light"
)

// ParsePolarity validates a polarity name.
func ParsePolarity(s string) (Polarity, error) {
	switch p := Polarity(strings.ToLower(strings.TrimSpace(s))); p {
	case PolarityAuto, PolarityDark, PolarityLight:
		return p, nil
	case "":
		return PolarityAuto, nil
	default:
		return "", fmt.Errorf("unknown polarity %q (use auto, dark or light)", s)
	}
}

// Config holds the segmenter settings.
type Config struct {
	Polarity Polarity
	// MorphSize is the side of the square structuring element used for the
	// closing and opening passes.
	MorphSize int
}

// DefaultConfig returns the segmenter defaults.
func DefaultConfig() Config {
	return Config{
		Polarity:  PolarityAuto,
		MorphSize: 5,
	}
}

// Segmenter produces window masks.
type Segmenter struct {
	config  Config
	backend Backend
}

// New creates a Segmenter with default configuration.
func New() *Segmenter {
	return &Segmenter{config: DefaultConfig(), backend: defaultBackend}
}

// NewWithConfig creates a Segmenter with custom configuration.
func NewWithConfig(config Config) *Segmenter {
	if config.Polarity == "" {
		config.Polarity = PolarityAuto
	}
	return &Segmenter{config: config, backend: defaultBackend}
}

// Config returns the segmenter configuration.
func (s *Segmenter) Config() Config {
	return s.config
}

// SetBackend replaces the pixel backend. nil restores the default.
func (s *Segmenter) SetBackend(b Backend) {
	if b == nil {
		b = defaultBackend
	}
	s.backend = b
}

// Backend returns the pixel backend in use.
func (s *Segmenter) Backend() Backend {
	return s.backend
}

// Segment returns a mask with the same size as img, origin at (0, 0), whose
// pixels are 255 inside windows and 0 elsewhere. A uniform image yields an
// empty mask; reporting that is left to the caller.
func (s *Segmenter) Segment(img image.Image) *image.Gray {
	gray := s.backend.Smooth(Luminance(img))
	binary := s.backend.Binarize(gray)

	if s.invert(binary) {
		binary = Invert(binary)
	}

	binary = s.backend.Close(binary, s.config.MorphSize)
	binary = s.backend.Open(binary, s.config.MorphSize)
	return binary
}

func (s *Segmenter) invert(binary *image.Gray) bool {
	switch s.config.Polarity {
	case PolarityDark:
		return true
	case PolarityLight:
		return false
	default:
		return borderMostlySet(binary)
	}
}

// Luminance converts img to 8-bit grayscale using Rec. 601 weights.
func Luminance(img image.Image) *image.Gray {
	return channel(imaging.Grayscale(img))
}

// binomial5 is the 5-tap Gaussian [1 4 6 4 1]/16 as a 5x5 outer product.
var binomial5 = func() [25]float64 {
	taps := [5]float64{1, 4, 6, 4, 1}
	var k [25]float64
	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			k[y*5+x] = taps[y] * taps[x]
		}
	}
	return k
}()

// Smooth applies a 5x5 Gaussian kernel with replicated borders.
func Smooth(gray *image.Gray) *image.Gray {
	blurred := imaging.Convolve5x5(gray, binomial5, &imaging.ConvolveOptions{Normalize: true})
	return channel(blurred)
}

// Threshold returns 255 where gray > t and 0 elsewhere.
func Threshold(gray *image.Gray, t uint8) *image.Gray {
	out := image.NewGray(image.Rect(0, 0, gray.Rect.Dx(), gray.Rect.Dy()))
	w, h := out.Rect.Dx(), out.Rect.Dy()
	for y := 0; y < h; y++ {
		src := gray.Pix[gray.PixOffset(gray.Rect.Min.X, gray.Rect.Min.Y+y):]
		dst := out.Pix[y*out.Stride:]
		for x := 0; x < w; x++ {
			if src[x] > t {
				dst[x] = 255
			}
		}
	}
	return out
}

// Invert returns the negative of mask.
func Invert(mask *image.Gray) *image.Gray {
	out := image.NewGray(image.Rect(0, 0, mask.Rect.Dx(), mask.Rect.Dy()))
	w, h := out.Rect.Dx(), out.Rect.Dy()
	for y := 0; y < h; y++ {
		src := mask.Pix[mask.PixOffset(mask.Rect.Min.X, mask.Rect.Min.Y+y):]
		dst := out.Pix[y*out.Stride:]
		for x := 0; x < w; x++ {
			dst[x] = 255 - src[x]
		}
	}
	return out
}

// IsEmpty reports whether mask has no foreground pixel.
func IsEmpty(mask *image.Gray) bool {
	for _, v := range mask.Pix {
		if v != 0 {
			return false
		}
	}
	return true
}

// borderMostlySet reports whether more than half of the outermost pixels of
// binary are foreground.
func borderMostlySet(binary *image.Gray) bool {
	w, h := binary.Rect.Dx(), binary.Rect.Dy()
	if w == 0 || h == 0 {
		return false
	}
	var set, total int
	count := func(x, y int) {
		total++
		if binary.GrayAt(binary.Rect.Min.X+x, binary.Rect.Min.Y+y).Y != 0 {
			set++
		}
	}
	for x := 0; x < w; x++ {
		count(x, 0)
		if h > 1 {
			count(x, h-1)
		}
	}
	for y := 1; y < h-1; y++ {
		count(0, y)
		if w > 1 {
			count(w-1, y)
		}
	}
	return set*2 > total
}

// channel extracts the red channel of a grayscale NRGBA image.
func channel(img *image.NRGBA) *image.Gray {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		src := img.Pix[y*img.Stride:]
		dst := out.Pix[y*out.Stride:]
		for x := 0; x < w; x++ {
			dst[x] = src[x*4]
		}
	}
	return out
}
