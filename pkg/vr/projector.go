// Package vr prepares eye images for head-mounted viewers: each eye is
// resized and pre-distorted with a barrel warp that cancels the pincushion
// distortion of the headset lenses, then both eyes are joined side by side.
package vr

import (
	"fmt"
	"image"
	"math"
	"sync"

	xdraw "golang.org/x/image/draw"

	"github.com/menta2k/stereoslide/internal/utils"
)

// Config holds the per-eye projection settings.
type Config struct {
	TargetWidth  int `json:"target_width"`
	TargetHeight int `json:"target_height"`
	// DistortionStrength is the radial coefficient k of
	// r' = r * (1 + k * (r / cx)^2). Zero is the identity warp.
	DistortionStrength float64 `json:"distortion_strength"`
	// Distort disables the warp entirely when false.
	Distort bool `json:"distort"`
}

// DefaultConfig returns the projection used by common headsets.
func DefaultConfig() Config {
	return Config{
		TargetWidth:        2160,
		TargetHeight:       1200,
		DistortionStrength: 0.6,
		Distort:            true,
	}
}

// Validate checks that the target size is usable.
func (c Config) Validate() error {
	if c.TargetWidth <= 0 || c.TargetHeight <= 0 {
		return fmt.Errorf("target size must be positive, got %dx%d", c.TargetWidth, c.TargetHeight)
	}
	if math.IsNaN(c.DistortionStrength) || math.IsInf(c.DistortionStrength, 0) {
		return fmt.Errorf("distortion strength must be finite")
	}
	return nil
}

// Projector resizes and warps eye images. The inverse warp map depends only
// on the configuration, so it is computed once and shared by every call.
type Projector struct {
	config Config

	once       sync.Once
	mapX, mapY []float32
}

// NewProjector creates a Projector for cfg.
func NewProjector(cfg Config) *Projector {
	return &Projector{config: cfg}
}

// Config returns the projector configuration.
func (p *Projector) Config() Config {
	return p.config
}

// Project resizes img to the target size and applies the barrel warp when
// enabled. The result is always TargetWidth x TargetHeight and opaque.
func (p *Projector) Project(img image.Image) *image.RGBA {
	resized := p.Resize(img)
	if !p.config.Distort {
		return resized
	}
	return p.Distort(resized)
}

// Resize scales img to the target size with bilinear interpolation.
func (p *Projector) Resize(img image.Image) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, p.config.TargetWidth, p.config.TargetHeight))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return dst
}

// Distort applies the inverse radial warp to a target-sized image. Output
// pixels whose source falls outside the image are opaque black.
func (p *Projector) Distort(src *image.RGBA) *image.RGBA {
	w, h := p.config.TargetWidth, p.config.TargetHeight
	if src.Rect != image.Rect(0, 0, w, h) {
		src = p.Resize(src)
	}
	p.once.Do(p.buildMap)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	utils.ParallelRows(h, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < w; x++ {
				i := y*w + x
				o := y*dst.Stride + x*4
				bilinearSample(src.Pix, src.Stride, w, h, float64(p.mapX[i]), float64(p.mapY[i]), dst.Pix[o:o+4])
			}
		}
	})
	return dst
}

// buildMap computes, for every output pixel, the source coordinate of the
// barrel warp around the image centre.
func (p *Projector) buildMap() {
	w, h := p.config.TargetWidth, p.config.TargetHeight
	k := p.config.DistortionStrength
	cx, cy := float64(w)/2, float64(h)/2

	p.mapX = make([]float32, w*h)
	p.mapY = make([]float32, w*h)
	for y := 0; y < h; y++ {
		dy := float64(y) - cy
		for x := 0; x < w; x++ {
			dx := float64(x) - cx
			r2 := (dx*dx + dy*dy) / (cx * cx)
			f := 1 + k*r2
			p.mapX[y*w+x] = float32(cx + dx*f)
			p.mapY[y*w+x] = float32(cy + dy*f)
		}
	}
}

// bilinearSample writes the colour at (fx, fy) into out. Samples whose
// integer corner is outside the image are opaque black; the far neighbour of
// the last row and column is clamped.
func bilinearSample(pix []uint8, stride, w, h int, fx, fy float64, out []uint8) {
	x := int(math.Floor(fx))
	y := int(math.Floor(fy))
	if math.IsNaN(fx) || math.IsNaN(fy) || x < 0 || x >= w || y < 0 || y >= h {
		out[0], out[1], out[2], out[3] = 0, 0, 0, 255
		return
	}
	tx := fx - float64(x)
	ty := fy - float64(y)
	x1, y1 := x+1, y+1
	if x1 >= w {
		x1, tx = x, 0
	}
	if y1 >= h {
		y1, ty = y, 0
	}
	i00 := y*stride + x*4
	i10 := y*stride + x1*4
	i01 := y1*stride + x*4
	i11 := y1*stride + x1*4

	w00 := (1 - tx) * (1 - ty)
	w10 := tx * (1 - ty)
	w01 := (1 - tx) * ty
	w11 := tx * ty

	for c := 0; c < 3; c++ {
		v := w00*float64(pix[i00+c]) + w10*float64(pix[i10+c]) + w01*float64(pix[i01+c]) + w11*float64(pix[i11+c])
		switch {
		case v < 0:
			v = 0
		case v > 255:
			v = 255
		}
		out[c] = uint8(v + 0.5)
	}
	out[3] = 255
}
