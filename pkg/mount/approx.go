package mount

import (
	"image"
	"math"
)

// ArcLength returns the perimeter of the closed polygon c.
func ArcLength(c Contour) float64 {
	if len(c) < 2 {
		return 0
	}
	var l float64
	for i := range c {
		a, b := c[i], c[(i+1)%len(c)]
		l += math.Hypot(float64(b.X-a.X), float64(b.Y-a.Y))
	}
	return l
}

// ApproxPolyDP simplifies the closed contour c with Douglas-Peucker so that
// no dropped point lies farther than epsilon from the result.
func ApproxPolyDP(c Contour, epsilon float64) Contour {
	if len(c) < 3 {
		return append(Contour(nil), c...)
	}
	// split the ring at the point farthest from the first one
	far, best := 0, -1.0
	for i, p := range c {
		d := sqDist(c[0], p)
		if d > best {
			far, best = i, d
		}
	}
	if far == 0 {
		return Contour{c[0]}
	}

	first := douglasPeucker(c[:far+1], epsilon)
	second := douglasPeucker(append(append(Contour(nil), c[far:]...), c[0]), epsilon)

	out := make(Contour, 0, len(first)+len(second))
	out = append(out, first...)
	out = append(out, second[1:len(second)-1]...)
	return out
}

func douglasPeucker(c Contour, epsilon float64) Contour {
	if len(c) < 3 {
		return append(Contour(nil), c...)
	}
	a, b := c[0], c[len(c)-1]
	idx, maxD := 0, -1.0
	for i := 1; i < len(c)-1; i++ {
		if d := lineDist(c[i], a, b); d > maxD {
			idx, maxD = i, d
		}
	}
	if maxD <= epsilon {
		return Contour{a, b}
	}
	left := douglasPeucker(c[:idx+1], epsilon)
	right := douglasPeucker(c[idx:], epsilon)
	return append(left[:len(left)-1], right...)
}

// lineDist is the distance from p to the line through a and b.
func lineDist(p, a, b image.Point) float64 {
	dx, dy := float64(b.X-a.X), float64(b.Y-a.Y)
	n := math.Hypot(dx, dy)
	if n == 0 {
		return math.Sqrt(sqDist(p, a))
	}
	return math.Abs(dy*float64(p.X-a.X)-dx*float64(p.Y-a.Y)) / n
}

func sqDist(a, b image.Point) float64 {
	dx, dy := float64(b.X-a.X), float64(b.Y-a.Y)
	return dx*dx + dy*dy
}

// BoundingRect returns the smallest rectangle covering every pixel of pts.
func BoundingRect(pts []image.Point) image.Rectangle {
	if len(pts) == 0 {
		return image.Rectangle{}
	}
	r := image.Rectangle{Min: pts[0], Max: pts[0]}
	for _, p := range pts[1:] {
		r.Min.X = min(r.Min.X, p.X)
		r.Min.Y = min(r.Min.Y, p.Y)
		r.Max.X = max(r.Max.X, p.X)
		r.Max.Y = max(r.Max.Y, p.Y)
	}
	r.Max = r.Max.Add(image.Pt(1, 1))
	return r
}
