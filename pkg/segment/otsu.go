package segment

import (
	"image"

	"gonum.org/v1/gonum/stat"
)

// Histogram counts the pixels of gray per intensity level.
func Histogram(gray *image.Gray) [256]float64 {
	var hist [256]float64
	w, h := gray.Rect.Dx(), gray.Rect.Dy()
	for y := 0; y < h; y++ {
		row := gray.Pix[gray.PixOffset(gray.Rect.Min.X, gray.Rect.Min.Y+y):]
		for x := 0; x < w; x++ {
			hist[row[x]]++
		}
	}
	return hist
}

var levels = func() []float64 {
	l := make([]float64, 256)
	for i := range l {
		l[i] = float64(i)
	}
	return l
}()

// OtsuThreshold picks the level t that maximises the between-class variance
// of {v <= t} and {v > t}. The lowest maximising level wins; a histogram with
// a single occupied level yields 0.
func OtsuThreshold(gray *image.Gray) uint8 {
	hist := Histogram(gray)
	return otsu(hist[:])
}

func otsu(hist []float64) uint8 {
	var total float64
	for _, n := range hist {
		total += n
	}
	if total == 0 {
		return 0
	}
	mu := stat.Mean(levels, hist)

	var (
		best       float64
		threshold  int
		q1, sumLow float64
	)
	for t := 0; t < 256; t++ {
		q1 += hist[t] / total
		sumLow += float64(t) * hist[t] / total
		q2 := 1 - q1
		if q1 < 1e-12 || q2 < 1e-12 {
			continue
		}
		mu1 := sumLow / q1
		mu2 := (mu - sumLow) / q2
		between := q1 * q2 * (mu1 - mu2) * (mu1 - mu2)
		if between > best {
			best = between
			threshold = t
		}
	}
	return uint8(threshold)
}
