package segment

import "image"

// Backend runs the pixel operations of Segment: smoothing, Otsu
// binarisation and the morphological clean up.
type Backend interface {
	Name() string
	// Smooth applies a 5x5 Gaussian with replicated borders.
	Smooth(gray *image.Gray) *image.Gray
	// Binarize returns 255 where gray lies above its Otsu level and 0
	// elsewhere.
	Binarize(gray *image.Gray) *image.Gray
	Close(mask *image.Gray, size int) *image.Gray
	Open(mask *image.Gray, size int) *image.Gray
}

// defaultBackend is replaced by the OpenCV backend in gocv builds.
var defaultBackend Backend = goBackend{}

// DefaultBackend returns the backend new segmenters start with.
func DefaultBackend() Backend {
	return defaultBackend
}

type goBackend struct{}

func (goBackend) Name() string { return "go" }

func (goBackend) Smooth(gray *image.Gray) *image.Gray { return Smooth(gray) }

func (goBackend) Binarize(gray *image.Gray) *image.Gray {
	return Threshold(gray, OtsuThreshold(gray))
}

func (goBackend) Close(mask *image.Gray, size int) *image.Gray { return Close(mask, size) }

func (goBackend) Open(mask *image.Gray, size int) *image.Gray { return Open(mask, size) }
