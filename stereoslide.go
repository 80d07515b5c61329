// Package stereoslide converts scans of vintage stereo slides into
// side-by-side frames for VR headsets.
//
// A scan shows a cardboard mount with two square exposures. The converter
// finds both openings, crops them to equal squares, optionally restores
// them, pre-distorts each eye for the headset lenses and joins them:
//
//	conv := stereoslide.New()
//	res, err := conv.ProcessFile(ctx, "slide.jpg", "output/slide.jpg")
//	if err != nil {
//		log.Fatalf("%s failed: %v", types.StageOf(err), err)
//	}
//	fmt.Println(res.Frame.Bounds())
//
// The stages live in their own packages:
//
//  1. Segment (pkg/segment): binary window mask from Otsu thresholding
//  2. Mount (pkg/mount): contour analysis, window extraction, squaring
//  3. Restore (pkg/restore): optional dust, noise and fade filters
//  4. VR (pkg/vr): lens pre-distortion and side-by-side composition
//
// Every failure returned by a Converter is a *types.StageError naming the
// stage that failed.
package stereoslide

import (
	"context"
	"fmt"
	"image"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/menta2k/stereoslide/internal/utils"
	"github.com/menta2k/stereoslide/pkg/debugsink"
	"github.com/menta2k/stereoslide/pkg/imageio"
	"github.com/menta2k/stereoslide/pkg/mount"
	"github.com/menta2k/stereoslide/pkg/restore"
	"github.com/menta2k/stereoslide/pkg/segment"
	"github.com/menta2k/stereoslide/pkg/types"
	"github.com/menta2k/stereoslide/pkg/vr"
)

// Version of the converter
const Version = "1.0.0"

// Config holds the settings of every stage.
type Config struct {
	Segment    segment.Config
	Mount      mount.Config
	Restore    restore.Options
	Projection vr.Config
	Output     imageio.Config
	// Parallel processes both eyes concurrently. Output is identical either
	// way.
	Parallel bool
}

// DefaultConfig returns the default conversion settings.
func DefaultConfig() Config {
	return Config{
		Segment:    segment.DefaultConfig(),
		Mount:      mount.DefaultConfig(),
		Projection: vr.DefaultConfig(),
		Output:     imageio.DefaultConfig(),
		Parallel:   true,
	}
}

// Validate checks the settings that can make a conversion impossible.
func (c Config) Validate() error {
	if err := c.Mount.Validate(); err != nil {
		return fmt.Errorf("mount: %w", err)
	}
	if err := c.Projection.Validate(); err != nil {
		return fmt.Errorf("projection: %w", err)
	}
	if c.Output.Quality < 1 || c.Output.Quality > 100 {
		return fmt.Errorf("output: quality must be between 1 and 100, got %d", c.Output.Quality)
	}
	return nil
}

// Converter runs the conversion pipeline. A Converter may be shared by
// concurrent calls.
type Converter struct {
	config    Config
	segmenter *segment.Segmenter
	extractor *mount.Extractor
	projector *vr.Projector
	codec     *imageio.Codec
	sink      debugsink.Sink
	debugDir  string
}

// Result holds the output frame and the intermediate data of one
// conversion.
type Result struct {
	Frame   *image.NRGBA     `json:"-"`
	Mask    *image.Gray      `json:"-"`
	Windows []types.Window   `json:"windows"`
	Pair    types.StereoPair `json:"pair"`
}

// New creates a Converter with default configuration
func New() *Converter {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a Converter with custom configuration. Call
// Config.Validate first for configurations built from user input.
func NewWithConfig(config Config) *Converter {
	return &Converter{
		config:    config,
		segmenter: segment.NewWithConfig(config.Segment),
		extractor: mount.NewWithConfig(config.Mount),
		projector: vr.NewProjector(config.Projection),
		codec:     imageio.NewWithConfig(config.Output),
		sink:      debugsink.Nop{},
	}
}

// Config returns the converter configuration.
func (c *Converter) Config() Config {
	return c.config
}

// SetDebugSink routes intermediate images to sink. nil disables debug
// output.
func (c *Converter) SetDebugSink(sink debugsink.Sink) {
	if sink == nil {
		sink = debugsink.Nop{}
	}
	c.sink = sink
}

// SetDebugDir makes ProcessFile write the intermediate images of each run
// to <dir>/<run id>/. It takes precedence over SetDebugSink for files; an
// empty dir turns it off.
func (c *Converter) SetDebugDir(dir string) {
	c.debugDir = dir
}

func debugging(sink debugsink.Sink) bool {
	_, nop := sink.(debugsink.Nop)
	return !nop
}

func stageError(stage types.Stage, err error) error {
	return &types.StageError{Stage: stage, Err: err}
}

// Convert turns a scanned mount into a side-by-side VR frame of
// 2*TargetWidth x TargetHeight pixels.
func (c *Converter) Convert(ctx context.Context, img image.Image) (*Result, error) {
	return c.convert(ctx, img, c.sink)
}

func (c *Converter) convert(ctx context.Context, img image.Image, sink debugsink.Sink) (*Result, error) {
	if err := imageio.Validate(img); err != nil {
		return nil, stageError(types.StageLoad, err)
	}

	logger.Tracef(ctx, "segmenting on the %s backend", c.segmenter.Backend().Name())
	mask := c.segmenter.Segment(img)
	sink.Emit("mask", mask)
	if segment.IsEmpty(mask) {
		logger.Debugf(ctx, "segmentation found no window pixels")
	}
	if err := ctx.Err(); err != nil {
		return nil, stageError(types.StageSegment, err)
	}

	windows, candidates := c.extractor.ExtractWithCandidates(mask, img)
	logger.Debugf(ctx, "%d contours, %d windows", len(candidates), len(windows))
	if debugging(sink) {
		var rejected []image.Rectangle
		for _, cand := range candidates {
			if !cand.Accepted {
				logger.Tracef(ctx, "rejected contour %v: %s", cand.Rect, cand.Reason)
				rejected = append(rejected, cand.Rect)
			}
		}
		sink.Emit("detection", debugsink.Overlay(img, windows, rejected))
	}
	if err := ctx.Err(); err != nil {
		return nil, stageError(types.StageExtract, err)
	}

	pair, err := mount.Standardize(windows)
	if err != nil {
		return nil, stageError(types.StageStandardize, err)
	}
	logger.Debugf(ctx, "eyes squared to %dpx at %v and %v", pair.Size(), pair.Left.Content.Min, pair.Right.Content.Min)
	sink.Emit("left_window", pair.Left.Image)
	sink.Emit("right_window", pair.Right.Image)

	if c.config.Restore.Enabled() {
		var observe restore.Observer
		if debugging(sink) {
			observe = func(name string, img image.Image) {
				sink.Emit("restore_"+name, img)
			}
		}
		logger.Tracef(ctx, "restoring on the %s backend", restore.DefaultBackend().Name())
		pair.Left.Image, pair.Right.Image = restore.ApplyPair(pair.Left.Image, pair.Right.Image, c.config.Restore, c.config.Parallel, observe)
		if err := ctx.Err(); err != nil {
			return nil, stageError(types.StageRestore, err)
		}
	}

	left, right, err := c.project(ctx, pair)
	if err != nil {
		return nil, stageError(types.StageProject, err)
	}
	sink.Emit("left_projected", left)
	sink.Emit("right_projected", right)

	frame, err := vr.Compose(left, right)
	if err != nil {
		return nil, stageError(types.StageComposite, err)
	}
	sink.Emit("frame", frame)

	return &Result{
		Frame:   frame,
		Mask:    mask,
		Windows: windows,
		Pair:    pair,
	}, nil
}

func (c *Converter) project(ctx context.Context, pair types.StereoPair) (*image.RGBA, *image.RGBA, error) {
	var left, right *image.RGBA
	if !c.config.Parallel {
		left = c.projector.Project(pair.Left.Image)
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		right = c.projector.Project(pair.Right.Image)
		return left, right, ctx.Err()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		left = c.projector.Project(pair.Left.Image)
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		right = c.projector.Project(pair.Right.Image)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return left, right, nil
}

// ProcessFile converts the slide at input and writes the frame to output.
// The output format follows its extension; a path without an image
// extension gets ".jpg". Nothing is written when any stage fails.
func (c *Converter) ProcessFile(ctx context.Context, input, output string) (*Result, error) {
	runID := uuid.NewString()
	ctx = belt.WithField(ctx, "run_id", runID)
	ctx = belt.WithField(ctx, "input", input)
	output = utils.WithImageExtension(output)

	sink := c.sink
	if c.debugDir != "" {
		dir := debugsink.NewDir(ctx, c.debugDir, runID)
		logger.Infof(ctx, "debug images go to %s", dir.Path())
		sink = dir
	}

	img, err := c.codec.LoadImage(input)
	if err != nil {
		return nil, stageError(types.StageLoad, err)
	}
	info := imageio.GetImageInfo(img)
	logger.Debugf(ctx, "loaded %dx%d, %d channels (%s)", info.Width, info.Height, info.Channels, utils.FileSize(input))

	res, err := c.convert(ctx, img, sink)
	if err != nil {
		return nil, err
	}

	if err := c.codec.SaveImage(res.Frame, output); err != nil {
		return nil, stageError(types.StageWrite, err)
	}
	logger.Infof(ctx, "wrote %s (%dx%d, %s)", output, res.Frame.Rect.Dx(), res.Frame.Rect.Dy(), utils.FileSize(output))
	return res, nil
}
