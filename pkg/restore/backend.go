package restore

import "image"

// Backend runs the heavy restoration filters. Implementations return new
// images with origin (0, 0) and leave their inputs untouched.
type Backend interface {
	Name() string
	Bilateral(img *image.NRGBA, d int, sigmaColor, sigmaSpace float64) *image.NRGBA
	NonLocalMeans(img *image.NRGBA, h float64, template, search int) *image.NRGBA
	Inpaint(img *image.NRGBA, mask *image.Gray, radius int) *image.NRGBA
	CLAHE(gray *image.Gray, clip float64, grid int) *image.Gray
}

// defaultBackend is replaced by the OpenCV backend in gocv builds.
var defaultBackend Backend = goBackend{}

// DefaultBackend returns the backend used by Chain and Apply.
func DefaultBackend() Backend {
	return defaultBackend
}

type goBackend struct{}

func (goBackend) Name() string { return "go" }

func (goBackend) Bilateral(img *image.NRGBA, d int, sigmaColor, sigmaSpace float64) *image.NRGBA {
	return Bilateral(img, d, sigmaColor, sigmaSpace)
}

func (goBackend) NonLocalMeans(img *image.NRGBA, h float64, template, search int) *image.NRGBA {
	return NonLocalMeans(img, h, template, search)
}

func (goBackend) Inpaint(img *image.NRGBA, mask *image.Gray, radius int) *image.NRGBA {
	return Inpaint(img, mask, radius)
}

func (goBackend) CLAHE(gray *image.Gray, clip float64, grid int) *image.Gray {
	return CLAHE(gray, clip, grid)
}
