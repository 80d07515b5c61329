// Package restore cleans up aged slide exposures: dust and scratch removal,
// noise reduction and fade correction.
package restore

import (
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"
)

// Method selects the noise reduction filter.
type Method string

const (
	MethodNone      Method = ""
	MethodBilateral Method = "bilateral"
	MethodNLM       Method = "nlm"
	MethodGaussian  Method = "gaussian"
)

// ParseMethod validates a noise reduction method name. "none" and "" both
// disable noise reduction.
func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(s))); m {
	case MethodNone, MethodBilateral, MethodNLM, MethodGaussian:
		return m, nil
	case "none":
		return MethodNone, nil
	default:
		return "", fmt.Errorf("unknown noise reduction method %q (use bilateral, nlm or gaussian)", s)
	}
}

// Strength selects a parameter preset.
type Strength string

const (
	StrengthLow    Strength = "low"
	StrengthMedium Strength = "medium"
	StrengthHigh   Strength = "high"
)

// ParseStrength validates a strength name. An empty string is medium.
func ParseStrength(s string) (Strength, error) {
	switch st := Strength(strings.ToLower(strings.TrimSpace(s))); st {
	case StrengthLow, StrengthMedium, StrengthHigh:
		return st, nil
	case "":
		return StrengthMedium, nil
	default:
		return "", fmt.Errorf("unknown strength %q (use low, medium or high)", s)
	}
}

// Options selects the filters applied to each eye.
type Options struct {
	Denoise     Method   `json:"denoise"`
	Strength    Strength `json:"strength"`
	RemoveDust  bool     `json:"remove_dust"`
	RemoveAging bool     `json:"remove_aging"`
}

// Enabled reports whether any filter is selected.
func (o Options) Enabled() bool {
	return o.Denoise != MethodNone || o.RemoveDust || o.RemoveAging
}

// Params is the full parameter set for one strength.
type Params struct {
	BilateralDiameter   int
	BilateralSigmaColor float64
	BilateralSigmaSpace float64

	NLMH        float64
	NLMTemplate int
	NLMSearch   int

	GaussianKernel int

	MedianKernel  int
	DustRadius    int
	DustThreshold uint8
	InpaintRadius int

	CLAHEClip  float64
	CLAHEGrid  int
	ChromaGain float64
}

// GaussianSigma derives the blur sigma from the kernel size.
func (p Params) GaussianSigma() float64 {
	return 0.3*(float64(p.GaussianKernel-1)*0.5-1) + 0.8
}

// ParamsFor returns the preset for strength. Unknown strengths get medium.
func ParamsFor(strength Strength) Params {
	p := Params{
		BilateralDiameter:   9,
		BilateralSigmaColor: 75,
		BilateralSigmaSpace: 75,
		NLMH:                10,
		NLMTemplate:         7,
		NLMSearch:           21,
		GaussianKernel:      5,
		MedianKernel:        3,
		DustRadius:          2,
		DustThreshold:       30,
		InpaintRadius:       3,
		CLAHEClip:           2.0,
		CLAHEGrid:           8,
		ChromaGain:          1.2,
	}
	switch strength {
	case StrengthLow:
		p.BilateralSigmaColor, p.BilateralSigmaSpace = 50, 50
		p.NLMH = 5
		p.GaussianKernel = 3
	case StrengthHigh:
		p.BilateralSigmaColor, p.BilateralSigmaSpace = 100, 100
		p.NLMH = 15
		p.GaussianKernel = 7
	}
	return p
}

// Observer receives intermediate images by name.
type Observer func(name string, img image.Image)

func (o Observer) emit(name string, img image.Image) {
	if o != nil {
		o(name, img)
	}
}

// Filter is one step of the restoration chain.
type Filter struct {
	Name  string
	Apply func(img *image.NRGBA, observe Observer) *image.NRGBA
}

// Chain returns the filters selected by opts in application order: median
// and dust removal, noise reduction, fade correction. The heavy filters run
// on the default backend.
func Chain(opts Options) []Filter {
	return ChainWith(opts, defaultBackend)
}

// ChainWith is Chain with the heavy filters running on b.
func ChainWith(opts Options, b Backend) []Filter {
	if b == nil {
		b = defaultBackend
	}
	p := ParamsFor(opts.Strength)
	var chain []Filter

	if opts.RemoveDust {
		chain = append(chain,
			Filter{Name: "median", Apply: func(img *image.NRGBA, _ Observer) *image.NRGBA {
				return Median(img, p.MedianKernel)
			}},
			Filter{Name: "dust", Apply: func(img *image.NRGBA, observe Observer) *image.NRGBA {
				mask := DustMask(img, p.DustRadius, p.DustThreshold)
				observe.emit("dust_mask", mask)
				return b.Inpaint(img, mask, p.InpaintRadius)
			}},
		)
	}

	switch opts.Denoise {
	case MethodBilateral:
		chain = append(chain, Filter{Name: denoiseName(opts), Apply: func(img *image.NRGBA, _ Observer) *image.NRGBA {
			return b.Bilateral(img, p.BilateralDiameter, p.BilateralSigmaColor, p.BilateralSigmaSpace)
		}})
	case MethodNLM:
		chain = append(chain, Filter{Name: denoiseName(opts), Apply: func(img *image.NRGBA, _ Observer) *image.NRGBA {
			return b.NonLocalMeans(img, p.NLMH, p.NLMTemplate, p.NLMSearch)
		}})
	case MethodGaussian:
		chain = append(chain, Filter{Name: denoiseName(opts), Apply: func(img *image.NRGBA, _ Observer) *image.NRGBA {
			return imaging.Blur(img, p.GaussianSigma())
		}})
	}

	if opts.RemoveAging {
		chain = append(chain, Filter{Name: "fade", Apply: func(img *image.NRGBA, _ Observer) *image.NRGBA {
			return correctFade(img, p.CLAHEClip, p.CLAHEGrid, p.ChromaGain, b.CLAHE)
		}})
	}
	return chain
}

func denoiseName(opts Options) string {
	strength := opts.Strength
	if strength == "" {
		strength = StrengthMedium
	}
	return fmt.Sprintf("denoise_%s_%s", opts.Denoise, strength)
}

// Apply runs the chain selected by opts on img. The input is never
// modified; with no filter selected a copy is returned.
func Apply(img *image.NRGBA, opts Options, observe Observer) *image.NRGBA {
	out := imaging.Clone(img)
	for _, f := range Chain(opts) {
		out = f.Apply(out, observe)
		observe.emit(f.Name, out)
	}
	return out
}

// ApplyPair runs the same chain on both eyes, on two goroutines when
// parallel is set. The result does not depend on parallel. Observed names
// are prefixed with "left_" or "right_"; observe must be safe for concurrent
// use when parallel is set.
func ApplyPair(left, right *image.NRGBA, opts Options, parallel bool, observe Observer) (*image.NRGBA, *image.NRGBA) {
	prefixed := func(prefix string) Observer {
		if observe == nil {
			return nil
		}
		return func(name string, img image.Image) {
			observe(prefix+name, img)
		}
	}

	if !parallel {
		return Apply(left, opts, prefixed("left_")), Apply(right, opts, prefixed("right_"))
	}

	var l, r *image.NRGBA
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		l = Apply(left, opts, prefixed("left_"))
	}()
	go func() {
		defer wg.Done()
		r = Apply(right, opts, prefixed("right_"))
	}()
	wg.Wait()
	return l, r
}

// Median removes salt-and-pepper noise with a size x size median.
func Median(img *image.NRGBA, size int) *image.NRGBA {
	return imaging.Clone(effect.Median(img, float64(size/2)))
}
