package restore

import (
	"image"
	"math"

	"github.com/anthonynsimon/bild/effect"

	"github.com/menta2k/stereoslide/pkg/segment"
)

// DustMask marks pixels whose luminance departs sharply from their local
// median: specks of dust and thin scratches. The cut-off is the Otsu level
// of the residual but never below floor. The mask is dilated by one pixel so
// inpainting also replaces the speck's halo.
func DustMask(img *image.NRGBA, radius int, floor uint8) *image.Gray {
	lum := segment.Luminance(img)
	smooth := effect.Median(lum, float64(radius))

	w, h := lum.Rect.Dx(), lum.Rect.Dy()
	residual := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			l := lum.Pix[y*lum.Stride+x]
			m := smooth.Pix[y*smooth.Stride+x*4]
			residual.Pix[y*residual.Stride+x] = uint8(absDiff(l, m))
		}
	}

	t := max(segment.OtsuThreshold(residual), floor)
	return segment.Dilate(segment.Threshold(residual, t), 3)
}

// Inpaint replaces the masked pixels of img working inwards from the mask
// boundary. Each pass fills the masked pixels touching known ones with the
// inverse-square-distance average of the known pixels within radius.
// Pixels outside the mask are never changed.
func Inpaint(img *image.NRGBA, mask *image.Gray, radius int) *image.NRGBA {
	out := rebase(img)
	if out == img {
		out = image.NewNRGBA(img.Rect)
		copyPix(out, img)
	}
	w, h := out.Rect.Dx(), out.Rect.Dy()
	if radius < 1 {
		radius = 1
	}

	unknown := make([]bool, w*h)
	pending := 0
	for y := 0; y < h && y < mask.Rect.Dy(); y++ {
		for x := 0; x < w && x < mask.Rect.Dx(); x++ {
			if mask.Pix[mask.PixOffset(mask.Rect.Min.X+x, mask.Rect.Min.Y+y)] != 0 {
				unknown[y*w+x] = true
				pending++
			}
		}
	}
	if pending == 0 || pending == w*h {
		return out
	}

	type fill struct {
		i   int
		rgb [3]uint8
	}
	for pending > 0 {
		var layer []fill
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				if !unknown[y*w+x] || !touchesKnown(unknown, w, h, x, y) {
					continue
				}
				var sum [3]float64
				var wsum float64
				for dy := -radius; dy <= radius; dy++ {
					for dx := -radius; dx <= radius; dx++ {
						xx, yy := x+dx, y+dy
						r2 := dx*dx + dy*dy
						if r2 == 0 || r2 > radius*radius || xx < 0 || yy < 0 || xx >= w || yy >= h || unknown[yy*w+xx] {
							continue
						}
						wt := 1 / float64(r2)
						p := out.Pix[yy*out.Stride+xx*4:]
						sum[0] += wt * float64(p[0])
						sum[1] += wt * float64(p[1])
						sum[2] += wt * float64(p[2])
						wsum += wt
					}
				}
				if wsum == 0 {
					continue
				}
				layer = append(layer, fill{y*w + x, [3]uint8{
					uint8(math.Round(sum[0] / wsum)),
					uint8(math.Round(sum[1] / wsum)),
					uint8(math.Round(sum[2] / wsum)),
				}})
			}
		}
		if len(layer) == 0 {
			break
		}
		for _, f := range layer {
			x, y := f.i%w, f.i/w
			p := out.Pix[y*out.Stride+x*4:]
			p[0], p[1], p[2] = f.rgb[0], f.rgb[1], f.rgb[2]
			unknown[f.i] = false
		}
		pending -= len(layer)
	}
	return out
}

func touchesKnown(unknown []bool, w, h, x, y int) bool {
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			xx, yy := x+dx, y+dy
			if xx >= 0 && yy >= 0 && xx < w && yy < h && !unknown[yy*w+xx] {
				return true
			}
		}
	}
	return false
}
