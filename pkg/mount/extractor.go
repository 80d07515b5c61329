// Package mount finds the two photographic windows of a slide mount and
// squares them up into a stereo pair.
package mount

import (
	"fmt"
	"image"
	"math"
	"sort"

	"github.com/disintegration/imaging"

	"github.com/menta2k/stereoslide/pkg/types"
)

// Config holds the window detection settings. Ratios are relative to the
// width of the source image.
type Config struct {
	MinWindowRatio  float64
	MaxWindowRatio  float64
	AspectTolerance float64
	// ApproxEpsilon is the polygon simplification tolerance as a fraction
	// of the contour perimeter.
	ApproxEpsilon float64
	// BorderMargin widens the cropped window image on every side.
	BorderMargin int
	// StapleMargin shrinks every detected window to skip the mount's
	// staples and frame edge. Zero disables it.
	StapleMargin int
}

// DefaultStapleMargin is the inset applied when staple removal is enabled.
const DefaultStapleMargin = 15

// DefaultConfig returns the detection defaults.
func DefaultConfig() Config {
	return Config{
		MinWindowRatio:  0.1,
		MaxWindowRatio:  0.4,
		AspectTolerance: 0.1,
		ApproxEpsilon:   0.02,
		BorderMargin:    2,
		StapleMargin:    0,
	}
}

// Validate checks that the ratios describe a usable window range.
func (c Config) Validate() error {
	if c.MinWindowRatio < 0 || c.MaxWindowRatio <= c.MinWindowRatio {
		return fmt.Errorf("window ratio range [%g, %g] is empty", c.MinWindowRatio, c.MaxWindowRatio)
	}
	if c.AspectTolerance <= 0 {
		return fmt.Errorf("aspect tolerance must be positive, got %g", c.AspectTolerance)
	}
	if c.ApproxEpsilon < 0 {
		return fmt.Errorf("approximation epsilon must not be negative, got %g", c.ApproxEpsilon)
	}
	if c.BorderMargin < 0 || c.StapleMargin < 0 {
		return fmt.Errorf("margins must not be negative")
	}
	return nil
}

// Candidate is one external contour considered as a window.
type Candidate struct {
	Rect image.Rectangle
	// Vertices is the corner count of the simplified outline.
	Vertices int
	Accepted bool
	Reason   string
}

// Extractor locates window regions in a segmentation mask.
type Extractor struct {
	config Config
	finder ContourFinder
}

// New creates an Extractor with default configuration.
func New() *Extractor {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates an Extractor with custom configuration.
func NewWithConfig(config Config) *Extractor {
	return &Extractor{
		config: config,
		finder: DefaultContourFinder(),
	}
}

// SetContourFinder replaces the contour backend.
func (e *Extractor) SetContourFinder(finder ContourFinder) {
	e.finder = finder
}

// Config returns the extractor configuration.
func (e *Extractor) Config() Config {
	return e.config
}

// Candidates returns the bounding rectangle of every external contour of
// mask together with the filter verdict.
func (e *Extractor) Candidates(mask *image.Gray) []Candidate {
	imgW := float64(mask.Rect.Dx())
	minSide := e.config.MinWindowRatio * imgW
	maxSide := e.config.MaxWindowRatio * imgW

	contours := e.finder.FindExternalContours(mask)
	candidates := make([]Candidate, 0, len(contours))
	for _, c := range contours {
		r, vertices := measureContour(c, e.config.ApproxEpsilon)
		w, h := float64(r.Dx()), float64(r.Dy())

		cand := Candidate{Rect: r, Vertices: vertices}
		switch {
		case w <= minSide || h <= minSide:
			cand.Reason = fmt.Sprintf("%dx%d below %.0fpx", r.Dx(), r.Dy(), minSide)
		case w >= maxSide || h >= maxSide:
			cand.Reason = fmt.Sprintf("%dx%d above %.0fpx", r.Dx(), r.Dy(), maxSide)
		case math.Abs(1-w/h) >= e.config.AspectTolerance:
			cand.Reason = fmt.Sprintf("aspect %.3f not square", w/h)
		default:
			cand.Accepted = true
		}
		candidates = append(candidates, cand)
	}
	return candidates
}

// Extract returns the accepted windows of mask, cut from img and ordered
// left to right. mask must have the size of img with its origin at (0, 0);
// window rectangles are expressed in that frame.
func (e *Extractor) Extract(mask *image.Gray, img image.Image) []types.Window {
	windows, _ := e.ExtractWithCandidates(mask, img)
	return windows
}

// ExtractWithCandidates is Extract that also returns every contour
// considered, accepted or not.
func (e *Extractor) ExtractWithCandidates(mask *image.Gray, img image.Image) ([]types.Window, []Candidate) {
	frame := image.Rect(0, 0, mask.Rect.Dx(), mask.Rect.Dy())
	offset := img.Bounds().Min
	staple := e.config.StapleMargin

	candidates := e.Candidates(mask)
	var windows []types.Window
	for _, cand := range candidates {
		if !cand.Accepted {
			continue
		}
		content := cand.Rect.Inset(staple)
		if content.Empty() || content.Dx() != cand.Rect.Dx()-2*staple || content.Dy() != cand.Rect.Dy()-2*staple {
			continue
		}
		bounds := cand.Rect.Inset(-e.config.BorderMargin).Intersect(frame).Inset(staple)
		if !content.In(bounds) {
			bounds = content
		}
		windows = append(windows, types.Window{
			Bounds:  bounds,
			Content: content,
			Image:   imaging.Crop(img, bounds.Add(offset)),
		})
	}

	sort.SliceStable(windows, func(i, j int) bool {
		if windows[i].Content.Min.X != windows[j].Content.Min.X {
			return windows[i].Content.Min.X < windows[j].Content.Min.X
		}
		return windows[i].Content.Min.Y < windows[j].Content.Min.Y
	})
	return windows, candidates
}

// measureContour returns the bounding box of c and the corner count of c
// simplified with tolerance epsRatio times its perimeter. The box comes from
// the full outline: blurred corners can be missing from the mask and the
// simplified polygon then cuts the outermost row or column.
var measureContour = func(c Contour, epsRatio float64) (image.Rectangle, int) {
	poly := ApproxPolyDP(c, epsRatio*ArcLength(c))
	return BoundingRect(c), len(poly)
}
