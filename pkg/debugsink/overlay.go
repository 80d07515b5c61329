package debugsink

import (
	"image"
	"image/color"
	"math"

	"github.com/menta2k/stereoslide/pkg/imageio"
	"github.com/menta2k/stereoslide/pkg/types"
)

var (
	green = color.NRGBA{0, 255, 0, 255}   // detected opening
	gold  = color.NRGBA{255, 204, 0, 255} // cropped bounds
	red   = color.NRGBA{255, 0, 0, 255}   // rejected contour
)

// Overlay draws the detection result on a copy of img: rejected contour
// boxes in red, window bounds in gold and window openings in green.
// Rectangles are relative to the origin of img.
func Overlay(img image.Image, windows []types.Window, rejected []image.Rectangle) *image.NRGBA {
	nrgba := imageio.ToNRGBA(img)
	w, h := nrgba.Bounds().Dx(), nrgba.Bounds().Dy()
	stroke := int(math.Max(2, 0.004*float64(min(w, h))))

	for _, r := range rejected {
		drawRect(nrgba, r, red, stroke)
	}
	for _, win := range windows {
		drawRect(nrgba, win.Bounds, gold, 1)
		drawRect(nrgba, win.Content, green, stroke)
	}
	return nrgba
}

func drawRect(img *image.NRGBA, r image.Rectangle, c color.NRGBA, stroke int) {
	if r.Empty() {
		return
	}
	for s := 0; s < stroke; s++ {
		drawHLine(img, r.Min.Y+s, r.Min.X, r.Max.X, c)
		drawHLine(img, r.Max.Y-1-s, r.Min.X, r.Max.X, c)
		drawVLine(img, r.Min.X+s, r.Min.Y, r.Max.Y, c)
		drawVLine(img, r.Max.X-1-s, r.Min.Y, r.Max.Y, c)
	}
}

func drawHLine(img *image.NRGBA, y, x0, x1 int, c color.NRGBA) {
	if y < 0 || y >= img.Bounds().Dy() {
		return
	}
	x0 = max(x0, 0)
	x1 = min(x1, img.Bounds().Dx())
	for x := x0; x < x1; x++ {
		img.SetNRGBA(x, y, c)
	}
}

func drawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	if x < 0 || x >= img.Bounds().Dx() {
		return
	}
	y0 = max(y0, 0)
	y1 = min(y1, img.Bounds().Dy())
	for y := y0; y < y1; y++ {
		img.SetNRGBA(x, y, c)
	}
}
