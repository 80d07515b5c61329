package restore

import (
	"image"
	"image/color"
	"math"
)

// CorrectFade restores contrast and colour of a faded exposure. Luma gets
// contrast-limited adaptive histogram equalisation on a grid x grid tile
// layout; both chroma channels are scaled away from neutral by gain.
func CorrectFade(img *image.NRGBA, clip float64, grid int, gain float64) *image.NRGBA {
	return correctFade(img, clip, grid, gain, CLAHE)
}

func correctFade(img *image.NRGBA, clip float64, grid int, gain float64, clahe func(*image.Gray, float64, int) *image.Gray) *image.NRGBA {
	src := rebase(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return dst
	}

	luma := image.NewGray(image.Rect(0, 0, w, h))
	cb := make([]uint8, w*h)
	cr := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p := src.Pix[y*src.Stride+x*4:]
			yy, b, r := color.RGBToYCbCr(p[0], p[1], p[2])
			luma.Pix[y*luma.Stride+x] = yy
			cb[y*w+x] = scaleChroma(b, gain)
			cr[y*w+x] = scaleChroma(r, gain)
		}
	}

	eq := clahe(luma, clip, grid)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b := color.YCbCrToRGB(eq.Pix[y*eq.Stride+x], cb[y*w+x], cr[y*w+x])
			o := dst.Pix[y*dst.Stride+x*4:]
			o[0], o[1], o[2] = r, g, b
			o[3] = src.Pix[y*src.Stride+x*4+3]
		}
	}
	return dst
}

func scaleChroma(c uint8, gain float64) uint8 {
	return clampByte(128 + gain*(float64(c)-128))
}

// CLAHE equalises gray with contrast-limited adaptive histogram
// equalisation. Histogram bins of each tile are clipped at clip times the
// uniform bin height before equalising; pixels blend the mappings of the
// four nearest tile centres.
func CLAHE(gray *image.Gray, clip float64, grid int) *image.Gray {
	w, h := gray.Rect.Dx(), gray.Rect.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	gx, gy := min(max(grid, 1), w), min(max(grid, 1), h)
	if gx == 0 || gy == 0 {
		return out
	}

	tileX := func(i int) (int, int) { return i * w / gx, (i + 1) * w / gx }
	tileY := func(j int) (int, int) { return j * h / gy, (j + 1) * h / gy }
	pixel := func(x, y int) uint8 { return gray.Pix[gray.PixOffset(gray.Rect.Min.X+x, gray.Rect.Min.Y+y)] }

	luts := make([][256]uint8, gx*gy)
	for j := 0; j < gy; j++ {
		y0, y1 := tileY(j)
		for i := 0; i < gx; i++ {
			x0, x1 := tileX(i)
			var hist [256]int
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					hist[pixel(x, y)]++
				}
			}
			area := (x1 - x0) * (y1 - y0)
			luts[j*gx+i] = equalize(hist, area, clip)
		}
	}

	// tile centres in pixel units
	centre := func(lo, hi int) float64 { return float64(lo+hi-1) / 2 }
	cxs := make([]float64, gx)
	for i := range cxs {
		cxs[i] = centre(tileX(i))
	}
	cys := make([]float64, gy)
	for j := range cys {
		cys[j] = centre(tileY(j))
	}
	neighbours := func(centres []float64, v float64) (int, int, float64) {
		n := len(centres)
		if v <= centres[0] {
			return 0, 0, 0
		}
		if v >= centres[n-1] {
			return n - 1, n - 1, 0
		}
		k := 0
		for k+1 < n && centres[k+1] <= v {
			k++
		}
		return k, k + 1, (v - centres[k]) / (centres[k+1] - centres[k])
	}

	for y := 0; y < h; y++ {
		j0, j1, ty := neighbours(cys, float64(y))
		for x := 0; x < w; x++ {
			i0, i1, tx := neighbours(cxs, float64(x))
			v := pixel(x, y)
			top := (1-tx)*float64(luts[j0*gx+i0][v]) + tx*float64(luts[j0*gx+i1][v])
			bottom := (1-tx)*float64(luts[j1*gx+i0][v]) + tx*float64(luts[j1*gx+i1][v])
			out.Pix[y*out.Stride+x] = clampByte((1-ty)*top + ty*bottom)
		}
	}
	return out
}

// equalize builds the clipped equalisation mapping of one tile.
func equalize(hist [256]int, area int, clip float64) [256]uint8 {
	var lut [256]uint8
	if area == 0 {
		for i := range lut {
			lut[i] = uint8(i)
		}
		return lut
	}

	if clip > 0 {
		limit := max(int(clip*float64(area)/256), 1)
		excess := 0
		for i := range hist {
			if hist[i] > limit {
				excess += hist[i] - limit
				hist[i] = limit
			}
		}
		batch := excess / 256
		residual := excess - batch*256
		for i := range hist {
			hist[i] += batch
		}
		if residual > 0 {
			step := max(256/residual, 1)
			for i := 0; i < 256 && residual > 0; i += step {
				hist[i]++
				residual--
			}
		}
	}

	scale := 255 / float64(area)
	sum := 0
	for i := range hist {
		sum += hist[i]
		lut[i] = uint8(math.Min(math.Round(float64(sum)*scale), 255))
	}
	return lut
}
