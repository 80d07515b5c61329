// Package debugsink collects intermediate images of a conversion run.
package debugsink

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/google/uuid"
	"github.com/nfnt/resize"
)

// Sink receives named intermediate images. Implementations must not fail
// the run: errors are theirs to handle.
type Sink interface {
	Emit(stage string, img image.Image)
}

// Nop discards everything.
type Nop struct{}

func (Nop) Emit(string, image.Image) {}

// Artifact is one emitted image.
type Artifact struct {
	Stage string
	Image image.Image
}

// Memory keeps every artifact in memory.
type Memory struct {
	mu        sync.Mutex
	artifacts []Artifact
}

func (m *Memory) Emit(stage string, img image.Image) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.artifacts = append(m.artifacts, Artifact{Stage: stage, Image: img})
}

// Artifacts returns the artifacts in emission order.
func (m *Memory) Artifacts() []Artifact {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Artifact(nil), m.artifacts...)
}

// Stages returns the emitted stage names in order.
func (m *Memory) Stages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	stages := make([]string, len(m.artifacts))
	for i, a := range m.artifacts {
		stages[i] = a.Stage
	}
	return stages
}

// Get returns the last image emitted for stage.
func (m *Memory) Get(stage string) (image.Image, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.artifacts) - 1; i >= 0; i-- {
		if m.artifacts[i].Stage == stage {
			return m.artifacts[i].Image, true
		}
	}
	return nil, false
}

// DefaultMaxSide bounds the larger side of images written by Dir.
const DefaultMaxSide = 2048

// Dir writes every artifact as <root>/<run>/<NN>_<stage>.png. Write
// failures are logged and otherwise ignored.
type Dir struct {
	ctx     context.Context
	dir     string
	maxSide uint

	mu  sync.Mutex
	seq int
}

// NewDir creates a sink writing below root into the directory of run. An
// empty run gets a random id. The directory is created on the first Emit.
func NewDir(ctx context.Context, root, run string) *Dir {
	if run == "" {
		run = uuid.NewString()
	}
	return &Dir{
		ctx:     ctx,
		dir:     filepath.Join(root, run),
		maxSide: DefaultMaxSide,
	}
}

// SetMaxSide changes the thumbnail bound. Zero writes full-size images.
func (d *Dir) SetMaxSide(side uint) {
	d.maxSide = side
}

// Path returns the run directory.
func (d *Dir) Path() string {
	return d.dir
}

func (d *Dir) Emit(stage string, img image.Image) {
	d.mu.Lock()
	d.seq++
	seq := d.seq
	d.mu.Unlock()

	if err := d.write(seq, stage, img); err != nil {
		logger.Warnf(d.ctx, "unable to write debug image %q: %v", stage, err)
		return
	}
	logger.Tracef(d.ctx, "wrote debug image %q", stage)
}

func (d *Dir) write(seq int, stage string, img image.Image) error {
	if img == nil || img.Bounds().Empty() {
		return fmt.Errorf("empty image")
	}
	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", d.dir, err)
	}

	b := img.Bounds()
	if d.maxSide > 0 && (uint(b.Dx()) > d.maxSide || uint(b.Dy()) > d.maxSide) {
		img = resize.Thumbnail(d.maxSide, d.maxSide, img, resize.Bilinear)
	}

	path := filepath.Join(d.dir, fmt.Sprintf("%02d_%s.png", seq, fileStage(stage)))
	return imaging.Save(img, path)
}

func fileStage(stage string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, stage)
}
