package vr

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/menta2k/stereoslide/pkg/types"
)

// Compose places left and right next to each other, left first. Both eyes
// must have the same height.
func Compose(left, right image.Image) (*image.NRGBA, error) {
	lb, rb := left.Bounds(), right.Bounds()
	if lb.Dy() != rb.Dy() {
		return nil, &types.DimensionMismatchError{Left: lb.Size(), Right: rb.Size()}
	}

	frame := imaging.New(lb.Dx()+rb.Dx(), lb.Dy(), color.Black)
	frame = imaging.Paste(frame, left, image.Pt(0, 0))
	frame = imaging.Paste(frame, right, image.Pt(lb.Dx(), 0))
	return frame, nil
}
