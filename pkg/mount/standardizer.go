package mount

import (
	"image"

	"github.com/disintegration/imaging"

	"github.com/menta2k/stereoslide/pkg/types"
)

// Standardize crops both windows to the largest square that fits the
// smaller of them, centred on each detected opening. Exactly two windows
// are required.
func Standardize(windows []types.Window) (types.StereoPair, error) {
	if len(windows) != 2 {
		return types.StereoPair{}, &types.WindowCountError{Found: len(windows)}
	}

	side := windows[0].Content.Dx()
	for _, w := range windows {
		side = min(side, w.Content.Dx(), w.Content.Dy())
	}

	return types.StereoPair{
		Left:  squareUp(windows[0], side),
		Right: squareUp(windows[1], side),
	}, nil
}

func squareUp(w types.Window, side int) types.Window {
	origin := w.Content.Min.Add(image.Pt(
		(w.Content.Dx()-side)/2,
		(w.Content.Dy()-side)/2,
	))
	square := image.Rectangle{Min: origin, Max: origin.Add(image.Pt(side, side))}
	return types.Window{
		Bounds:  square,
		Content: square,
		Image:   imaging.Crop(w.Image, square.Sub(w.Bounds.Min)),
	}
}
