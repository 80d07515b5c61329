package restore

import (
	"image"
	"image/color"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createFlatImage(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func createTestImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8((x * 7) % 256),
				G: uint8((y * 5) % 256),
				B: uint8(((x + y) * 3) % 256),
				A: 255,
			})
		}
	}
	return img
}

func assertFlat(t *testing.T, img *image.NRGBA, want color.NRGBA) {
	t.Helper()
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if !assert.Equal(t, want, img.NRGBAAt(x, y), "pixel (%d,%d)", x, y) {
				return
			}
		}
	}
}

func TestParamsFor(t *testing.T) {
	low, medium, high := ParamsFor(StrengthLow), ParamsFor(StrengthMedium), ParamsFor(StrengthHigh)

	assert.Equal(t, 50.0, low.BilateralSigmaColor)
	assert.Equal(t, 75.0, medium.BilateralSigmaColor)
	assert.Equal(t, 100.0, high.BilateralSigmaSpace)
	assert.Equal(t, 9, high.BilateralDiameter)

	assert.Equal(t, 5.0, low.NLMH)
	assert.Equal(t, 10.0, medium.NLMH)
	assert.Equal(t, 15.0, high.NLMH)
	assert.Equal(t, 7, medium.NLMTemplate)
	assert.Equal(t, 21, medium.NLMSearch)

	assert.Equal(t, 3, low.GaussianKernel)
	assert.Equal(t, 5, medium.GaussianKernel)
	assert.Equal(t, 7, high.GaussianKernel)
	assert.InDelta(t, 0.8, low.GaussianSigma(), 1e-9)
	assert.InDelta(t, 1.1, medium.GaussianSigma(), 1e-9)
	assert.InDelta(t, 1.4, high.GaussianSigma(), 1e-9)

	assert.Equal(t, uint8(30), medium.DustThreshold)
	assert.Equal(t, 3, medium.InpaintRadius)
	assert.Equal(t, 2.0, medium.CLAHEClip)
	assert.Equal(t, 8, medium.CLAHEGrid)
	assert.Equal(t, 1.2, medium.ChromaGain)

	// presets are values, not shared state
	assert.Equal(t, medium, ParamsFor(""))
	assert.Equal(t, low, ParamsFor(StrengthLow))
}

func TestParseMethodAndStrength(t *testing.T) {
	m, err := ParseMethod("NLM")
	require.NoError(t, err)
	assert.Equal(t, MethodNLM, m)

	m, err = ParseMethod("none")
	require.NoError(t, err)
	assert.Equal(t, MethodNone, m)

	_, err = ParseMethod("wavelet")
	assert.Error(t, err)

	s, err := ParseStrength("")
	require.NoError(t, err)
	assert.Equal(t, StrengthMedium, s)

	_, err = ParseStrength("extreme")
	assert.Error(t, err)
}

func TestChainOrder(t *testing.T) {
	assert.Empty(t, Chain(Options{}))
	assert.False(t, Options{}.Enabled())

	opts := Options{Denoise: MethodBilateral, Strength: StrengthHigh, RemoveDust: true, RemoveAging: true}
	assert.True(t, opts.Enabled())

	var names []string
	for _, f := range Chain(opts) {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"median", "dust", "denoise_bilateral_high", "fade"}, names)

	names = names[:0]
	for _, f := range Chain(Options{Denoise: MethodGaussian}) {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"denoise_gaussian_medium"}, names)
}

func TestDenoiseKeepsFlatImageFlat(t *testing.T) {
	c := color.NRGBA{R: 120, G: 80, B: 60, A: 255}
	img := createFlatImage(24, 24, c)

	assertFlat(t, Bilateral(img, 9, 75, 75), c)
	assertFlat(t, NonLocalMeans(img, 10, 3, 5), c)
	assertFlat(t, Apply(img, Options{Denoise: MethodGaussian}, nil), c)
}

func TestBilateralPreservesEdge(t *testing.T) {
	img := createFlatImage(20, 20, color.NRGBA{R: 20, G: 20, B: 20, A: 255})
	for y := 0; y < 20; y++ {
		for x := 10; x < 20; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 230, G: 230, B: 230, A: 255})
		}
	}
	out := Bilateral(img, 9, 50, 50)
	assert.Equal(t, uint8(20), out.NRGBAAt(9, 10).R)
	assert.Equal(t, uint8(230), out.NRGBAAt(10, 10).R)
}

func TestNonLocalMeansReducesNoise(t *testing.T) {
	img := createFlatImage(24, 24, color.NRGBA{R: 100, G: 100, B: 100, A: 255})
	img.SetNRGBA(12, 12, color.NRGBA{R: 112, G: 112, B: 112, A: 255})

	out := NonLocalMeans(img, 15, 3, 7)
	got := out.NRGBAAt(12, 12).R
	assert.Less(t, got, uint8(112))
	assert.GreaterOrEqual(t, got, uint8(100))
}

func TestDustMaskAndInpaint(t *testing.T) {
	bg := color.NRGBA{R: 100, G: 100, B: 100, A: 255}
	img := createFlatImage(40, 40, bg)
	for y := 20; y < 22; y++ {
		for x := 20; x < 22; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 250, G: 250, B: 250, A: 255})
		}
	}

	mask := DustMask(img, 2, 30)
	set := 0
	for _, v := range mask.Pix {
		if v != 0 {
			set++
		}
	}
	assert.Equal(t, 16, set)
	assert.Equal(t, uint8(255), mask.GrayAt(19, 19).Y)
	assert.Equal(t, uint8(0), mask.GrayAt(18, 18).Y)

	out := Inpaint(img, mask, 3)
	assertFlat(t, out, bg)
	assert.Equal(t, uint8(250), img.NRGBAAt(20, 20).R, "input must not change")
}

func TestInpaintKeepsUnmaskedPixels(t *testing.T) {
	img := createTestImage(30, 30)
	mask := image.NewGray(image.Rect(0, 0, 30, 30))
	mask.SetGray(15, 15, color.Gray{Y: 255})

	out := Inpaint(img, mask, 3)
	for y := 0; y < 30; y++ {
		for x := 0; x < 30; x++ {
			if x == 15 && y == 15 {
				continue
			}
			require.Equal(t, img.NRGBAAt(x, y), out.NRGBAAt(x, y))
		}
	}
}

func TestApplyRemovesSpeck(t *testing.T) {
	bg := color.NRGBA{R: 90, G: 90, B: 90, A: 255}
	img := createFlatImage(32, 32, bg)
	img.SetNRGBA(16, 16, color.NRGBA{R: 255, G: 255, B: 255, A: 255})

	out := Apply(img, Options{RemoveDust: true}, nil)
	assertFlat(t, out, bg)
}

func TestCLAHEExpandsRange(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			gray.Pix[y*gray.Stride+x] = uint8(100 + x*40/64)
		}
	}
	out := CLAHE(gray, 2.0, 8)

	lo, hi := uint8(255), uint8(0)
	for _, v := range out.Pix {
		lo, hi = min(lo, v), max(hi, v)
	}
	assert.Greater(t, int(hi)-int(lo), 40)
}

func TestCorrectFadeBoostsChroma(t *testing.T) {
	img := createFlatImage(32, 32, color.NRGBA{R: 150, G: 100, B: 100, A: 255})
	out := CorrectFade(img, 2.0, 8, 1.2)

	p := out.NRGBAAt(10, 10)
	assert.Greater(t, int(p.R)-int(p.G), 50)
	assert.Equal(t, uint8(255), p.A)
}

func TestApplyDoesNotModifyInput(t *testing.T) {
	img := createTestImage(32, 32)
	before := append([]uint8(nil), img.Pix...)

	out := Apply(img, Options{Denoise: MethodBilateral, RemoveDust: true, RemoveAging: true}, nil)
	assert.Equal(t, before, img.Pix)
	assert.Equal(t, img.Bounds(), out.Bounds())
}

func TestApplyPairParallelMatchesSequential(t *testing.T) {
	left := createTestImage(40, 40)
	right := createTestImage(40, 40)
	right.SetNRGBA(5, 5, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	opts := Options{Denoise: MethodGaussian, Strength: StrengthLow, RemoveDust: true, RemoveAging: true}

	var mu sync.Mutex
	seen := map[string]bool{}
	observe := func(name string, _ image.Image) {
		mu.Lock()
		defer mu.Unlock()
		seen[name] = true
	}

	l1, r1 := ApplyPair(left, right, opts, false, nil)
	l2, r2 := ApplyPair(left, right, opts, true, observe)

	assert.Equal(t, l1.Pix, l2.Pix)
	assert.Equal(t, r1.Pix, r2.Pix)
	for _, name := range []string{"left_median", "left_dust_mask", "right_denoise_gaussian_low", "right_fade"} {
		assert.True(t, seen[name], name)
	}
}

func BenchmarkBilateral(b *testing.B) {
	img := createTestImage(256, 256)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Bilateral(img, 9, 75, 75)
	}
}

func BenchmarkNonLocalMeans(b *testing.B) {
	img := createTestImage(128, 128)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		NonLocalMeans(img, 10, 7, 21)
	}
}

type countingBackend struct {
	Backend
	mu    sync.Mutex
	calls []string
}

func (b *countingBackend) record(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, name)
}

func (b *countingBackend) Bilateral(img *image.NRGBA, d int, sigmaColor, sigmaSpace float64) *image.NRGBA {
	b.record("bilateral")
	return b.Backend.Bilateral(img, d, sigmaColor, sigmaSpace)
}

func (b *countingBackend) NonLocalMeans(img *image.NRGBA, h float64, template, search int) *image.NRGBA {
	b.record("nlm")
	return b.Backend.NonLocalMeans(img, h, template, search)
}

func (b *countingBackend) Inpaint(img *image.NRGBA, mask *image.Gray, radius int) *image.NRGBA {
	b.record("inpaint")
	return b.Backend.Inpaint(img, mask, radius)
}

func (b *countingBackend) CLAHE(gray *image.Gray, clip float64, grid int) *image.Gray {
	b.record("clahe")
	return b.Backend.CLAHE(gray, clip, grid)
}

func TestChainWithRoutesThroughBackend(t *testing.T) {
	b := &countingBackend{Backend: goBackend{}}
	out := createTestImage(24, 24)
	for _, f := range ChainWith(Options{Denoise: MethodBilateral, RemoveDust: true, RemoveAging: true}, b) {
		out = f.Apply(out, nil)
	}
	assert.Equal(t, []string{"inpaint", "bilateral", "clahe"}, b.calls)
	assert.Equal(t, image.Rect(0, 0, 24, 24), out.Bounds())

	b.calls = nil
	for _, f := range ChainWith(Options{Denoise: MethodNLM, Strength: StrengthLow}, b) {
		f.Apply(out, nil)
	}
	assert.Equal(t, []string{"nlm"}, b.calls)
}

func TestChainWithNilUsesDefault(t *testing.T) {
	opts := Options{Denoise: MethodGaussian, RemoveAging: true}
	assert.Len(t, ChainWith(opts, nil), len(Chain(opts)))
}
