//go:build gocv

package restore

import (
	"image"

	"gocv.io/x/gocv"

	"github.com/menta2k/stereoslide/internal/cvmat"
)

func init() {
	defaultBackend = cvBackend{}
}

// cvBackend runs the filters in OpenCV. Any conversion failure falls back
// to the Go filter.
type cvBackend struct{}

func (cvBackend) Name() string { return "opencv" }

func (cvBackend) Bilateral(img *image.NRGBA, d int, sigmaColor, sigmaSpace float64) *image.NRGBA {
	fallback := func() *image.NRGBA { return Bilateral(img, d, sigmaColor, sigmaSpace) }
	if d/2 < 1 || sigmaColor <= 0 || sigmaSpace <= 0 {
		return fallback()
	}
	return colorCV(img, fallback, func(src gocv.Mat, dst *gocv.Mat) {
		gocv.BilateralFilter(src, dst, d, sigmaColor, sigmaSpace)
	})
}

func (cvBackend) NonLocalMeans(img *image.NRGBA, h float64, template, search int) *image.NRGBA {
	fallback := func() *image.NRGBA { return NonLocalMeans(img, h, template, search) }
	if h <= 0 {
		return fallback()
	}
	return colorCV(img, fallback, func(src gocv.Mat, dst *gocv.Mat) {
		gocv.FastNlMeansDenoisingColoredWithParams(src, dst, float32(h), float32(h), template, search)
	})
}

func (cvBackend) Inpaint(img *image.NRGBA, mask *image.Gray, radius int) *image.NRGBA {
	fallback := func() *image.NRGBA { return Inpaint(img, mask, radius) }
	if mask.Rect.Dx() != img.Rect.Dx() || mask.Rect.Dy() != img.Rect.Dy() {
		return fallback()
	}
	m, err := cvmat.FromGray(mask)
	if err != nil {
		return fallback()
	}
	defer m.Close()
	return colorCV(img, fallback, func(src gocv.Mat, dst *gocv.Mat) {
		gocv.Inpaint(src, m, dst, float32(max(radius, 1)), gocv.Telea)
	})
}

func (cvBackend) CLAHE(gray *image.Gray, clip float64, grid int) *image.Gray {
	fallback := func() *image.Gray { return CLAHE(gray, clip, grid) }
	if gray.Rect.Empty() {
		return fallback()
	}
	src, err := cvmat.FromGray(gray)
	if err != nil {
		return fallback()
	}
	defer src.Close()

	clahe := gocv.NewCLAHEWithParams(clip, image.Pt(max(grid, 1), max(grid, 1)))
	defer clahe.Close()
	dst := gocv.NewMat()
	defer dst.Close()
	clahe.Apply(src, &dst)

	out, err := cvmat.ToGray(dst)
	if err != nil {
		return fallback()
	}
	return out
}

func colorCV(img *image.NRGBA, fallback func() *image.NRGBA, op func(src gocv.Mat, dst *gocv.Mat)) *image.NRGBA {
	if img.Rect.Empty() {
		return fallback()
	}
	src, err := cvmat.FromNRGBA(img)
	if err != nil {
		return fallback()
	}
	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	op(src, &dst)

	out, err := cvmat.ToNRGBA(dst, img)
	if err != nil {
		return fallback()
	}
	return out
}
