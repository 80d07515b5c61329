//go:build gocv

package segment

import (
	"image"

	"gocv.io/x/gocv"

	"github.com/menta2k/stereoslide/internal/cvmat"
)

func init() {
	defaultBackend = cvBackend{}
}

// cvBackend hands each step to OpenCV and falls back to the Go version when
// a buffer cannot be converted.
type cvBackend struct{}

func (cvBackend) Name() string { return "opencv" }

func (cvBackend) Smooth(gray *image.Gray) *image.Gray {
	return runCV(gray, Smooth, func(src gocv.Mat, dst *gocv.Mat) {
		gocv.GaussianBlur(src, dst, image.Pt(5, 5), 0, 0, gocv.BorderReplicate)
	})
}

func (cvBackend) Binarize(gray *image.Gray) *image.Gray {
	return runCV(gray, goBackend{}.Binarize, func(src gocv.Mat, dst *gocv.Mat) {
		gocv.Threshold(src, dst, 0, 255, gocv.ThresholdBinary+gocv.ThresholdOtsu)
	})
}

func (cvBackend) Close(mask *image.Gray, size int) *image.Gray {
	return morphCV(mask, size, gocv.MorphClose, Close)
}

func (cvBackend) Open(mask *image.Gray, size int) *image.Gray {
	return morphCV(mask, size, gocv.MorphOpen, Open)
}

func morphCV(mask *image.Gray, size int, op gocv.MorphType, fallback func(*image.Gray, int) *image.Gray) *image.Gray {
	if size <= 1 {
		return fallback(mask, size)
	}
	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(size, size))
	defer kernel.Close()
	return runCV(mask, func(m *image.Gray) *image.Gray { return fallback(m, size) }, func(src gocv.Mat, dst *gocv.Mat) {
		gocv.MorphologyEx(src, dst, op, kernel)
	})
}

func runCV(gray *image.Gray, fallback func(*image.Gray) *image.Gray, op func(src gocv.Mat, dst *gocv.Mat)) *image.Gray {
	if gray.Rect.Empty() {
		return fallback(gray)
	}
	src, err := cvmat.FromGray(gray)
	if err != nil {
		return fallback(gray)
	}
	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	op(src, &dst)

	out, err := cvmat.ToGray(dst)
	if err != nil {
		return fallback(gray)
	}
	return out
}
