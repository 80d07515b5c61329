package mount

import "image"

// Contour is a closed boundary traced clockwise through foreground pixels.
type Contour []image.Point

// ContourFinder returns the outer boundaries of the foreground regions of a
// binary mask. Regions nested inside holes of other regions are skipped.
type ContourFinder interface {
	FindExternalContours(mask *image.Gray) []Contour
}

// ContourFinderFunc adapts a function to ContourFinder.
type ContourFinderFunc func(mask *image.Gray) []Contour

func (f ContourFinderFunc) FindExternalContours(mask *image.Gray) []Contour {
	return f(mask)
}

// defaultContourFinder is replaced when the binary is built with OpenCV.
var defaultContourFinder ContourFinder = ContourFinderFunc(FindExternalContours)

// DefaultContourFinder returns the contour backend used by New.
func DefaultContourFinder() ContourFinder {
	return defaultContourFinder
}

// Moore neighbourhood, clockwise in image coordinates starting east.
var neighbours = [8]image.Point{
	{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1},
}

const west = 4

var fourNeighbours = [4]image.Point{{1, 0}, {0, 1}, {-1, 0}, {0, -1}}

func neighbourIndex(d image.Point) int {
	for i, n := range neighbours {
		if n == d {
			return i
		}
	}
	return west
}

// FindExternalContours labels the 8-connected foreground components of mask
// and traces the boundary of every component that is not enclosed by
// another. Contours are ordered by their first pixel in raster order.
func FindExternalContours(mask *image.Gray) []Contour {
	w, h := mask.Rect.Dx(), mask.Rect.Dy()
	if w == 0 || h == 0 {
		return nil
	}
	fg := make([]bool, w*h)
	for y := 0; y < h; y++ {
		row := mask.Pix[mask.PixOffset(mask.Rect.Min.X, mask.Rect.Min.Y+y):]
		for x := 0; x < w; x++ {
			fg[y*w+x] = row[x] != 0
		}
	}

	outside := outerBackground(fg, w, h)

	labels := make([]int32, w*h)
	var contours []Contour
	var next int32
	queue := make([]int, 0, 64)

	for i := range fg {
		if !fg[i] || labels[i] != 0 {
			continue
		}
		next++
		labels[i] = next
		external := false

		queue = append(queue[:0], i)
		for len(queue) > 0 {
			p := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			px, py := p%w, p/w
			if px == 0 || py == 0 || px == w-1 || py == h-1 {
				external = true
			}
			for _, d := range fourNeighbours {
				qx, qy := px+d.X, py+d.Y
				if qx >= 0 && qy >= 0 && qx < w && qy < h && outside[qy*w+qx] {
					external = true
				}
			}
			for _, d := range neighbours {
				qx, qy := px+d.X, py+d.Y
				if qx < 0 || qy < 0 || qx >= w || qy >= h {
					continue
				}
				q := qy*w + qx
				if fg[q] && labels[q] == 0 {
					labels[q] = next
					queue = append(queue, q)
				}
			}
		}

		if external {
			contours = append(contours, traceBoundary(labels, w, h, next, image.Pt(i%w, i/w)))
		}
	}
	return contours
}

// outerBackground marks background pixels 4-connected to the image border.
func outerBackground(fg []bool, w, h int) []bool {
	outside := make([]bool, w*h)
	queue := make([]int, 0, 2*(w+h))
	seed := func(x, y int) {
		i := y*w + x
		if !fg[i] && !outside[i] {
			outside[i] = true
			queue = append(queue, i)
		}
	}
	for x := 0; x < w; x++ {
		seed(x, 0)
		seed(x, h-1)
	}
	for y := 0; y < h; y++ {
		seed(0, y)
		seed(w-1, y)
	}
	for len(queue) > 0 {
		p := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		px, py := p%w, p/w
		for _, d := range fourNeighbours {
			qx, qy := px+d.X, py+d.Y
			if qx >= 0 && qy >= 0 && qx < w && qy < h {
				seed(qx, qy)
			}
		}
	}
	return outside
}

// traceBoundary follows the outer boundary of one labelled component with
// Moore-neighbour tracing. start must be the component's first pixel in
// raster order, so its west neighbour is background.
func traceBoundary(labels []int32, w, h int, label int32, start image.Point) Contour {
	member := func(p image.Point) bool {
		return p.X >= 0 && p.Y >= 0 && p.X < w && p.Y < h && labels[p.Y*w+p.X] == label
	}

	pts := Contour{start}
	p, back := start, west
	limit := 4*w*h + 8

	for step := 0; step < limit; step++ {
		found := false
		var q image.Point
		var prev image.Point
		for i := 1; i <= 8; i++ {
			d := (back + i) % 8
			c := p.Add(neighbours[d])
			if member(c) {
				q = c
				prev = p.Add(neighbours[(d+7)%8])
				found = true
				break
			}
		}
		if !found {
			return pts
		}
		if p == start && len(pts) > 1 && q == pts[1] {
			return pts[:len(pts)-1]
		}
		pts = append(pts, q)
		p, back = q, neighbourIndex(prev.Sub(q))
	}
	return pts
}
