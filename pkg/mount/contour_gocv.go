//go:build gocv

package mount

import (
	"image"

	"gocv.io/x/gocv"

	"github.com/menta2k/stereoslide/internal/cvmat"
)

func init() {
	defaultContourFinder = ContourFinderFunc(findExternalContoursCV)
	measureContour = measureContourCV
}

// findExternalContoursCV delegates contour tracing to OpenCV. It falls back
// to the pure Go tracer if the mask cannot be handed to OpenCV.
func findExternalContoursCV(mask *image.Gray) []Contour {
	mat, err := cvmat.FromGray(mask)
	if err != nil {
		return FindExternalContours(mask)
	}
	defer mat.Close()

	contours := gocv.FindContours(mat, gocv.RetrievalExternal, gocv.ChainApproxNone)
	defer contours.Close()

	out := make([]Contour, 0, contours.Size())
	for i := 0; i < contours.Size(); i++ {
		out = append(out, Contour(contours.At(i).ToPoints()))
	}
	return out
}

func measureContourCV(c Contour, epsRatio float64) (image.Rectangle, int) {
	if len(c) == 0 {
		return image.Rectangle{}, 0
	}
	pv := gocv.NewPointVectorFromPoints(c)
	defer pv.Close()

	poly := gocv.ApproxPolyDP(pv, epsRatio*gocv.ArcLength(pv, true), true)
	defer poly.Close()
	return gocv.BoundingRect(pv), poly.Size()
}
