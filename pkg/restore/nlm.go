package restore

import (
	"image"
	"math"

	"github.com/menta2k/stereoslide/internal/utils"
)

// NonLocalMeans denoises img by averaging pixels whose surrounding patches
// look alike. template and search are odd window sizes; h controls how
// quickly the weight falls with patch distance. Alpha is left unchanged.
//
// Patch distances are computed per search offset with a summed-area table,
// so the cost is independent of the template size.
func NonLocalMeans(img *image.NRGBA, h float64, template, search int) *image.NRGBA {
	src := rebase(img)
	w, ht := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewNRGBA(image.Rect(0, 0, w, ht))
	if w == 0 || ht == 0 || h <= 0 {
		copyPix(dst, src)
		return dst
	}

	tr := template / 2
	sr := search / 2
	n := w * ht
	inv := 1 / (h * h * 3)

	acc := make([]float64, 3*n)
	wsum := make([]float64, n)
	diff := make([]float64, n)
	sat := make([]float64, (w+1)*(ht+1))

	at := func(x, y int) []uint8 {
		x = min(max(x, 0), w-1)
		y = min(max(y, 0), ht-1)
		return src.Pix[y*src.Stride+x*4:]
	}

	for oy := -sr; oy <= sr; oy++ {
		for ox := -sr; ox <= sr; ox++ {
			utils.ParallelRows(ht, func(y0, y1 int) {
				for y := y0; y < y1; y++ {
					for x := 0; x < w; x++ {
						a := src.Pix[y*src.Stride+x*4:]
						b := at(x+ox, y+oy)
						d0 := float64(a[0]) - float64(b[0])
						d1 := float64(a[1]) - float64(b[1])
						d2 := float64(a[2]) - float64(b[2])
						diff[y*w+x] = d0*d0 + d1*d1 + d2*d2
					}
				}
			})
			summedArea(sat, diff, w, ht)

			utils.ParallelRows(ht, func(y0, y1 int) {
				for y := y0; y < y1; y++ {
					ya, yb := max(y-tr, 0), min(y+tr, ht-1)
					for x := 0; x < w; x++ {
						xa, xb := max(x-tr, 0), min(x+tr, w-1)
						area := float64((xb - xa + 1) * (yb - ya + 1))
						ssd := sat[(yb+1)*(w+1)+xb+1] - sat[ya*(w+1)+xb+1] - sat[(yb+1)*(w+1)+xa] + sat[ya*(w+1)+xa]
						wt := math.Exp(-math.Max(ssd, 0) / area * inv)

						b := at(x+ox, y+oy)
						i := y*w + x
						acc[3*i] += wt * float64(b[0])
						acc[3*i+1] += wt * float64(b[1])
						acc[3*i+2] += wt * float64(b[2])
						wsum[i] += wt
					}
				}
			})
		}
	}

	for y := 0; y < ht; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			o := dst.Pix[y*dst.Stride+x*4:]
			o[0] = clampByte(acc[3*i] / wsum[i])
			o[1] = clampByte(acc[3*i+1] / wsum[i])
			o[2] = clampByte(acc[3*i+2] / wsum[i])
			o[3] = src.Pix[y*src.Stride+x*4+3]
		}
	}
	return dst
}

// summedArea fills sat, sized (w+1)*(h+1), with the inclusive prefix sums
// of v.
func summedArea(sat, v []float64, w, h int) {
	stride := w + 1
	for x := 0; x <= w; x++ {
		sat[x] = 0
	}
	for y := 0; y < h; y++ {
		var row float64
		sat[(y+1)*stride] = 0
		for x := 0; x < w; x++ {
			row += v[y*w+x]
			sat[(y+1)*stride+x+1] = sat[y*stride+x+1] + row
		}
	}
}
