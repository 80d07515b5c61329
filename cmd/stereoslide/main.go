package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/spf13/pflag"

	"github.com/menta2k/stereoslide"
	"github.com/menta2k/stereoslide/internal/config"
	"github.com/menta2k/stereoslide/internal/logging"
	"github.com/menta2k/stereoslide/internal/utils"
	"github.com/menta2k/stereoslide/pkg/restore"
	"github.com/menta2k/stereoslide/pkg/types"
)

type options struct {
	loggerLevel logger.Level
	configPath  string
	writeConfig string

	debug    bool
	debugDir string
	jsonOut  bool

	noise    string
	strength string
	dust     bool
	aging    bool

	width        int
	height       int
	distortion   float64
	noDistortion bool

	polarity     string
	stapleMargin int

	quality   int
	lossless  bool
	parallel  bool
	jobs      int
	recursive bool
	suffix    string
	format    string
}

func newFlagSet(name string, o *options) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "syntax: %s [flags] <input image|directory> [output image|directory]\n", name)
		fs.PrintDefaults()
	}

	o.loggerLevel = logging.DefaultLevel
	fs.Var(&o.loggerLevel, "log-level", "Log level")
	fs.StringVar(&o.configPath, "config", "", "JSON configuration file (default "+config.GetConfigPath()+" when present)")
	fs.StringVar(&o.writeConfig, "write-config", "", "write the effective configuration to this file and exit")

	fs.BoolVar(&o.debug, "debug", false, "write intermediate images")
	fs.StringVar(&o.debugDir, "debug-dir", "debug", "directory for intermediate images")
	fs.BoolVar(&o.jsonOut, "json", false, "write detected windows as JSON next to the output (single file)")

	fs.StringVar(&o.noise, "noise-reduction", "none", "noise reduction: none|bilateral|nlm|gaussian")
	fs.StringVar(&o.strength, "noise-strength", "medium", "noise reduction strength: low|medium|high")
	fs.BoolVar(&o.dust, "remove-dust", false, "remove dust and scratches (no denoising unless --noise-reduction is set; bilateral pairs well)")
	fs.BoolVar(&o.aging, "remove-aging", false, "correct faded colours (no denoising unless --noise-reduction is set; bilateral pairs well)")

	fs.IntVar(&o.width, "width", 2160, "per-eye output width")
	fs.IntVar(&o.height, "height", 1200, "per-eye output height")
	fs.Float64Var(&o.distortion, "distortion", 0.6, "barrel pre-distortion strength")
	fs.BoolVar(&o.noDistortion, "no-distortion", false, "skip the lens pre-distortion")

	fs.StringVar(&o.polarity, "polarity", "auto", "window polarity: auto|dark|light")
	fs.IntVar(&o.stapleMargin, "staple-margin", 0, "pixels trimmed from each window edge (15 skips typical staples)")

	fs.IntVar(&o.quality, "quality", 95, "JPEG/WebP output quality (1-100)")
	fs.BoolVar(&o.lossless, "lossless", false, "WebP lossless output")
	fs.BoolVar(&o.parallel, "parallel", true, "process both eyes concurrently")
	fs.IntVar(&o.jobs, "jobs", 2, "slides converted at once in directory mode")
	fs.BoolVar(&o.recursive, "recursive", false, "include subdirectories in directory mode")
	fs.StringVar(&o.suffix, "suffix", "_vr", "output name suffix in directory mode")
	fs.StringVar(&o.format, "format", "jpg", "output format: jpg|png|webp")
	return fs
}

// override copies the flags given on the command line into cfg.
func (o *options) override(fs *pflag.FlagSet, cfg *config.Config) {
	changed := fs.Changed
	if changed("noise-reduction") {
		cfg.Restore.Denoise = restore.Method(o.noise)
	}
	if changed("noise-strength") {
		cfg.Restore.Strength = restore.Strength(o.strength)
	}
	if changed("remove-dust") {
		cfg.Restore.RemoveDust = o.dust
	}
	if changed("remove-aging") {
		cfg.Restore.RemoveAging = o.aging
	}
	if changed("width") {
		cfg.Projection.TargetWidth = o.width
	}
	if changed("height") {
		cfg.Projection.TargetHeight = o.height
	}
	if changed("distortion") {
		cfg.Projection.DistortionStrength = o.distortion
	}
	if changed("no-distortion") {
		cfg.Projection.Distort = !o.noDistortion
	}
	if changed("polarity") {
		cfg.Segment.Polarity = o.polarity
	}
	if changed("staple-margin") {
		cfg.Extract.StapleMargin = o.stapleMargin
	}
	if changed("quality") {
		cfg.Output.Quality = o.quality
	}
	if changed("lossless") {
		cfg.Output.Lossless = o.lossless
	}
	if changed("parallel") {
		cfg.Pipeline.Parallel = o.parallel
	}
	if changed("jobs") {
		cfg.Pipeline.Jobs = o.jobs
	}
	if changed("suffix") {
		cfg.Output.Suffix = o.suffix
	}
	if changed("format") {
		cfg.Output.DefaultFormat = o.format
	}
	if changed("debug-dir") || (o.debug && cfg.Output.DebugDir == "") {
		cfg.Output.DebugDir = o.debugDir
	}
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var o options
	fs := newFlagSet(filepath.Base(os.Args[0]), &o)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	ctx := logging.WithLogger(context.Background(), o.loggerLevel)
	ctx, cancelFn := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancelFn()
	defer belt.Flush(ctx)

	cfg, err := loadConfig(o.configPath)
	if err != nil {
		logger.Errorf(ctx, "%v", err)
		return 1
	}
	o.override(fs, cfg)

	if err := cfg.Validate(); err != nil {
		logger.Errorf(ctx, "invalid configuration: %v", err)
		return 2
	}

	if o.writeConfig != "" {
		if err := cfg.SaveToFile(o.writeConfig); err != nil {
			logger.Errorf(ctx, "%v", err)
			return 1
		}
		logger.Infof(ctx, "wrote %s", o.writeConfig)
		return 0
	}

	if fs.NArg() < 1 || fs.NArg() > 2 {
		fs.Usage()
		return 2
	}
	input := fs.Arg(0)
	output := fs.Arg(1)

	conv := stereoslide.NewWithConfig(cfg.ConverterConfig())
	if o.debug {
		conv.SetDebugDir(cfg.Output.DebugDir)
		logger.Infof(ctx, "debug images go to %s", cfg.Output.DebugDir)
	}

	if utils.DirExists(input) {
		if output == "" {
			output = cfg.Output.OutputDir
		}
		return runDir(ctx, conv, cfg, input, output, o.recursive)
	}

	if output == "" {
		output = utils.OutputFilename(input, cfg.Output.OutputDir, cfg.Output.Suffix, cfg.Output.DefaultFormat)
	} else if utils.DirExists(output) {
		output = utils.OutputFilename(input, output, cfg.Output.Suffix, cfg.Output.DefaultFormat)
	}
	if err := runFile(ctx, conv, input, output, o.jsonOut); err != nil {
		report(os.Stderr, err)
		return 1
	}
	return 0
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	if def := config.GetConfigPath(); utils.FileExists(def) {
		return config.LoadFromFile(def)
	}
	return config.Default(), nil
}

func runFile(ctx context.Context, conv *stereoslide.Converter, input, output string, jsonOut bool) error {
	res, err := conv.ProcessFile(ctx, input, output)
	if err != nil {
		return err
	}
	output = utils.WithImageExtension(output)
	b := res.Frame.Bounds()
	fmt.Printf("wrote %s (%s, %dx%d)\n", output, utils.FileSize(output), b.Dx(), b.Dy())
	if jsonOut {
		return writeJSON(output, res)
	}
	return nil
}

func runDir(ctx context.Context, conv *stereoslide.Converter, cfg *config.Config, input, output string, recursive bool) int {
	results, err := conv.ProcessDir(ctx, input, output, stereoslide.BatchOptions{
		Suffix:    cfg.Output.Suffix,
		Format:    cfg.Output.DefaultFormat,
		Jobs:      cfg.Pipeline.Jobs,
		Recursive: recursive,
	})
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(os.Stderr, "FAIL %s: ", r.Input)
			report(os.Stderr, r.Err)
			continue
		}
		fmt.Printf("ok   %s -> %s\n", r.Input, r.Output)
	}
	if err != nil {
		if len(results) == 0 {
			report(os.Stderr, err)
		}
		return 1
	}
	return 0
}

func writeJSON(output string, res *stereoslide.Result) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	path := output[:len(output)-len(filepath.Ext(output))] + ".json"
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// report prints one line describing err.
func report(w io.Writer, err error) {
	var wc *types.WindowCountError
	var se *types.StageError
	switch {
	case errors.As(err, &wc):
		fmt.Fprintf(w, "expected 2 windows, found %d; try --polarity dark|light or --debug\n", wc.Found)
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(w, "interrupted")
	case errors.As(err, &se):
		fmt.Fprintf(w, "%s failed: %v\n", se.Stage, se.Err)
	default:
		fmt.Fprintf(w, "error: %v\n", err)
	}
}
