//go:build gocv

package restore

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultBackendIsOpenCV(t *testing.T) {
	assert.Equal(t, "opencv", DefaultBackend().Name())
}

func TestOpenCVDenoiseKeepsFlatImageFlat(t *testing.T) {
	c := color.NRGBA{R: 120, G: 80, B: 60, A: 255}
	img := createFlatImage(24, 24, c)

	b := cvBackend{}
	assertFlat(t, b.Bilateral(img, 9, 75, 75), c)
	assertFlat(t, b.NonLocalMeans(img, 10, 3, 5), c)
}

func TestOpenCVKeepsAlpha(t *testing.T) {
	img := createFlatImage(16, 16, color.NRGBA{R: 50, G: 60, B: 70, A: 128})
	out := cvBackend{}.Bilateral(img, 5, 50, 50)
	assert.Equal(t, color.NRGBA{R: 50, G: 60, B: 70, A: 128}, out.NRGBAAt(3, 3))
}

func TestOpenCVInpaintFillsDust(t *testing.T) {
	bg := color.NRGBA{R: 100, G: 100, B: 100, A: 255}
	img := createFlatImage(40, 40, bg)
	mask := image.NewGray(img.Rect)
	for y := 20; y < 22; y++ {
		for x := 20; x < 22; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 250, G: 250, B: 250, A: 255})
			mask.SetGray(x, y, color.Gray{Y: 255})
		}
	}

	out := cvBackend{}.Inpaint(img, mask, 3)
	assertFlat(t, out, bg)
	assert.Equal(t, uint8(250), img.NRGBAAt(20, 20).R, "input must not change")
}

func TestOpenCVCLAHEExpandsRange(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			gray.Pix[y*gray.Stride+x] = uint8(100 + x*40/64)
		}
	}
	out := cvBackend{}.CLAHE(gray, 2.0, 8)

	lo, hi := uint8(255), uint8(0)
	for _, v := range out.Pix {
		lo, hi = min(lo, v), max(hi, v)
	}
	assert.Greater(t, int(hi)-int(lo), 40)
}
