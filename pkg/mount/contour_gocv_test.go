//go:build gocv

package mount

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindExternalContoursCVMatchesGo(t *testing.T) {
	mask := createMask(200, 100, square(20, 20, 40), square(120, 30, 50))

	cv := findExternalContoursCV(mask)
	ref := FindExternalContours(mask)
	require.Len(t, cv, len(ref))

	var got, want []image.Rectangle
	for i := range cv {
		got = append(got, BoundingRect(cv[i]))
		want = append(want, BoundingRect(ref[i]))
	}
	assert.ElementsMatch(t, want, got)
}

func TestMeasureContourCV(t *testing.T) {
	mask := createMask(100, 100, square(10, 20, 30))
	contours := FindExternalContours(mask)
	require.Len(t, contours, 1)

	r, vertices := measureContourCV(contours[0], 0.02)
	assert.Equal(t, square(10, 20, 30), r)
	assert.Equal(t, 4, vertices)

	r, vertices = measureContourCV(nil, 0.02)
	assert.True(t, r.Empty())
	assert.Zero(t, vertices)
}
