package types

import (
	"errors"
	"fmt"
	"image"
)

var (
	// ErrImageUnavailable reports a source that cannot be opened or decoded.
	ErrImageUnavailable = errors.New("image unavailable")
	// ErrWindowCount reports a mount without exactly two windows.
	ErrWindowCount = errors.New("unexpected window count")
	// ErrDimensionMismatch reports eye images that cannot be placed side by side.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrOutputWrite reports an encode or persist failure.
	ErrOutputWrite = errors.New("output write failed")
)

// WindowCountError is returned when segmentation does not yield a pair.
type WindowCountError struct {
	Found int
}

func (e *WindowCountError) Error() string {
	return fmt.Sprintf("expected 2 windows, found %d", e.Found)
}

func (e *WindowCountError) Is(target error) bool {
	return target == ErrWindowCount
}

// DimensionMismatchError is returned when the two eye images differ in height.
type DimensionMismatchError struct {
	Left  image.Point
	Right image.Point
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("eye images differ: left %dx%d, right %dx%d",
		e.Left.X, e.Left.Y, e.Right.X, e.Right.Y)
}

func (e *DimensionMismatchError) Is(target error) bool {
	return target == ErrDimensionMismatch
}

// StageError attaches the failing stage to an error.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// StageOf returns the stage recorded in err, or "" if there is none.
func StageOf(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
