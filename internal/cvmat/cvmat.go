//go:build gocv

// Package cvmat moves pixel buffers between the image package and OpenCV
// matrices.
package cvmat

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// FromGray copies gray into a single channel CV8UC1 matrix.
func FromGray(gray *image.Gray) (gocv.Mat, error) {
	w, h := gray.Rect.Dx(), gray.Rect.Dy()
	buf := make([]byte, w*h)
	for y := 0; y < h; y++ {
		copy(buf[y*w:(y+1)*w], gray.Pix[gray.PixOffset(gray.Rect.Min.X, gray.Rect.Min.Y+y):])
	}
	return gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC1, buf)
}

// ToGray copies a CV8UC1 matrix into a new image with origin (0, 0).
func ToGray(m gocv.Mat) (*image.Gray, error) {
	if m.Type() != gocv.MatTypeCV8UC1 {
		return nil, fmt.Errorf("unexpected matrix type %v", m.Type())
	}
	w, h := m.Cols(), m.Rows()
	out := image.NewGray(image.Rect(0, 0, w, h))
	copy(out.Pix, m.ToBytes())
	return out, nil
}

// FromNRGBA copies the colour channels of img into a CV8UC3 matrix in BGR
// order. Alpha is dropped.
func FromNRGBA(img *image.NRGBA) (gocv.Mat, error) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	buf := make([]byte, w*h*3)
	for y := 0; y < h; y++ {
		src := img.Pix[img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y+y):]
		dst := buf[y*w*3:]
		for x := 0; x < w; x++ {
			dst[x*3] = src[x*4+2]
			dst[x*3+1] = src[x*4+1]
			dst[x*3+2] = src[x*4]
		}
	}
	return gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC3, buf)
}

// ToNRGBA copies a BGR CV8UC3 matrix into a new image, taking alpha from
// like. like must have the same size as m.
func ToNRGBA(m gocv.Mat, like *image.NRGBA) (*image.NRGBA, error) {
	if m.Type() != gocv.MatTypeCV8UC3 {
		return nil, fmt.Errorf("unexpected matrix type %v", m.Type())
	}
	w, h := m.Cols(), m.Rows()
	if like.Rect.Dx() != w || like.Rect.Dy() != h {
		return nil, fmt.Errorf("matrix is %dx%d, image is %dx%d", w, h, like.Rect.Dx(), like.Rect.Dy())
	}
	buf := m.ToBytes()
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		src := buf[y*w*3:]
		alpha := like.Pix[like.PixOffset(like.Rect.Min.X, like.Rect.Min.Y+y):]
		dst := out.Pix[y*out.Stride:]
		for x := 0; x < w; x++ {
			dst[x*4] = src[x*3+2]
			dst[x*4+1] = src[x*3+1]
			dst[x*4+2] = src[x*3]
			dst[x*4+3] = alpha[x*4+3]
		}
	}
	return out, nil
}
