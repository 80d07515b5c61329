package segment

import "image"

// Dilate sets every pixel to the maximum over a size x size square centred
// on it. Pixels outside the image are ignored.
func Dilate(mask *image.Gray, size int) *image.Gray {
	return rankFilter(mask, size, true)
}

// Erode sets every pixel to the minimum over a size x size square centred on
// it. Pixels outside the image are ignored.
func Erode(mask *image.Gray, size int) *image.Gray {
	return rankFilter(mask, size, false)
}

// Close fills gaps narrower than the structuring element.
func Close(mask *image.Gray, size int) *image.Gray {
	return Erode(Dilate(mask, size), size)
}

// Open removes specks smaller than the structuring element.
func Open(mask *image.Gray, size int) *image.Gray {
	return Dilate(Erode(mask, size), size)
}

// rankFilter runs the square min/max filter as two separable passes.
func rankFilter(mask *image.Gray, size int, max bool) *image.Gray {
	w, h := mask.Rect.Dx(), mask.Rect.Dy()
	src := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		copy(src.Pix[y*src.Stride:y*src.Stride+w], mask.Pix[mask.PixOffset(mask.Rect.Min.X, mask.Rect.Min.Y+y):])
	}
	if size <= 1 {
		return src
	}
	lo := (size - 1) / 2
	hi := size / 2

	pick := func(a, b uint8) uint8 {
		if max == (b > a) {
			return b
		}
		return a
	}

	tmp := image.NewGray(src.Rect)
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+w]
		out := tmp.Pix[y*tmp.Stride:]
		for x := 0; x < w; x++ {
			v := row[x]
			for k := x - lo; k <= x+hi; k++ {
				if k >= 0 && k < w {
					v = pick(v, row[k])
				}
			}
			out[x] = v
		}
	}

	dst := image.NewGray(src.Rect)
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			v := tmp.Pix[y*tmp.Stride+x]
			for k := y - lo; k <= y+hi; k++ {
				if k >= 0 && k < h {
					v = pick(v, tmp.Pix[k*tmp.Stride+x])
				}
			}
			dst.Pix[y*dst.Stride+x] = v
		}
	}
	return dst
}
