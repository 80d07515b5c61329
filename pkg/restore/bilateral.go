package restore

import (
	"image"
	"math"

	"github.com/menta2k/stereoslide/internal/utils"
)

// Bilateral smooths img while keeping edges. Neighbours within a disc of
// diameter d are weighted by spatial distance and by the summed absolute
// colour difference to the centre pixel. Alpha is left unchanged.
func Bilateral(img *image.NRGBA, d int, sigmaColor, sigmaSpace float64) *image.NRGBA {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	radius := d / 2
	if radius < 1 || sigmaColor <= 0 || sigmaSpace <= 0 {
		copyPix(dst, img)
		return dst
	}

	type tap struct {
		dx, dy int
		weight float64
	}
	var taps []tap
	spaceCoeff := -0.5 / (sigmaSpace * sigmaSpace)
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			r2 := float64(dx*dx + dy*dy)
			if r2 > float64(radius*radius) {
				continue
			}
			taps = append(taps, tap{dx, dy, math.Exp(r2 * spaceCoeff)})
		}
	}

	var colorWeight [3*255 + 1]float64
	colorCoeff := -0.5 / (sigmaColor * sigmaColor)
	for i := range colorWeight {
		colorWeight[i] = math.Exp(float64(i*i) * colorCoeff)
	}

	src := rebase(img)
	utils.ParallelRows(h, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < w; x++ {
				c := src.Pix[y*src.Stride+x*4:]
				var sum [3]float64
				var wsum float64
				for _, t := range taps {
					xx, yy := x+t.dx, y+t.dy
					if xx < 0 || yy < 0 || xx >= w || yy >= h {
						continue
					}
					n := src.Pix[yy*src.Stride+xx*4:]
					diff := absDiff(n[0], c[0]) + absDiff(n[1], c[1]) + absDiff(n[2], c[2])
					wt := t.weight * colorWeight[diff]
					sum[0] += wt * float64(n[0])
					sum[1] += wt * float64(n[1])
					sum[2] += wt * float64(n[2])
					wsum += wt
				}
				o := dst.Pix[y*dst.Stride+x*4:]
				o[0] = clampByte(sum[0] / wsum)
				o[1] = clampByte(sum[1] / wsum)
				o[2] = clampByte(sum[2] / wsum)
				o[3] = c[3]
			}
		}
	})
	return dst
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

func clampByte(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v + 0.5)
	}
}

// rebase returns img with its origin at (0, 0), sharing pixels when possible.
func rebase(img *image.NRGBA) *image.NRGBA {
	if img.Rect.Min == (image.Point{}) {
		return img
	}
	out := image.NewNRGBA(image.Rect(0, 0, img.Rect.Dx(), img.Rect.Dy()))
	copyPix(out, img)
	return out
}

func copyPix(dst, src *image.NRGBA) {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	for y := 0; y < h; y++ {
		off := src.PixOffset(src.Rect.Min.X, src.Rect.Min.Y+y)
		copy(dst.Pix[y*dst.Stride:y*dst.Stride+w*4], src.Pix[off:off+w*4])
	}
}
