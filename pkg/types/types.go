// Package types holds the data shared by the stereo slide pipeline stages.
package types

import "image"

// Window is one photographic opening of a slide mount.
type Window struct {
	// Bounds is the region of the source image held by Image.
	Bounds image.Rectangle `json:"bounds"`
	// Content is the detected opening, always within Bounds.
	Content image.Rectangle `json:"content"`
	// Image holds the pixels of Bounds, re-based to the origin.
	Image *image.NRGBA `json:"-"`
}

// Width returns the width of the detected opening.
func (w Window) Width() int {
	return w.Content.Dx()
}

// Height returns the height of the detected opening.
func (w Window) Height() int {
	return w.Content.Dy()
}

// AspectError is how far the opening is from a square, |1 - w/h|.
func (w Window) AspectError() float64 {
	if w.Content.Dy() == 0 {
		return 1
	}
	r := float64(w.Content.Dx()) / float64(w.Content.Dy())
	if r > 1 {
		return r - 1
	}
	return 1 - r
}

// StereoPair is the left and right eye of a slide after standardization.
// Both windows are squares of the same size.
type StereoPair struct {
	Left  Window `json:"left"`
	Right Window `json:"right"`
}

// Size returns the side length shared by both eyes.
func (p StereoPair) Size() int {
	return p.Left.Content.Dx()
}

// Stage names a step of the conversion, used for error reports and debug
// artifacts.
type Stage string

const (
	StageLoad        Stage = "load"
	StageSegment     Stage = "segment"
	StageExtract     Stage = "extract"
	StageStandardize Stage = "standardize"
	StageRestore     Stage = "restore"
	StageProject     Stage = "project"
	StageComposite   Stage = "composite"
	StageWrite       Stage = "write"
)
