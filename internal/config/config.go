package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/menta2k/stereoslide"
	"github.com/menta2k/stereoslide/pkg/imageio"
	"github.com/menta2k/stereoslide/pkg/mount"
	"github.com/menta2k/stereoslide/pkg/restore"
	"github.com/menta2k/stereoslide/pkg/segment"
	"github.com/menta2k/stereoslide/pkg/viewer"
	"github.com/menta2k/stereoslide/pkg/vr"
)

// Config holds the application configuration
type Config struct {
	Segment    SegmentConfig   `json:"segment"`
	Extract    ExtractConfig   `json:"extract"`
	Projection vr.Config       `json:"projection"`
	Restore    restore.Options `json:"restore"`
	Output     OutputConfig    `json:"output"`
	Viewer     viewer.Config   `json:"viewer"`
	Pipeline   PipelineConfig  `json:"pipeline"`
}

// SegmentConfig holds configuration for mount segmentation
type SegmentConfig struct {
	Polarity  string `json:"polarity"`
	MorphSize int    `json:"morph_size"`
}

// ExtractConfig holds configuration for window detection
type ExtractConfig struct {
	MinWindowRatio  float64 `json:"min_window_ratio"`
	MaxWindowRatio  float64 `json:"max_window_ratio"`
	AspectTolerance float64 `json:"aspect_tolerance"`
	ApproxEpsilon   float64 `json:"approx_epsilon"`
	BorderMargin    int     `json:"border_margin"`
	StapleMargin    int     `json:"staple_margin"`
}

// OutputConfig holds configuration for output generation
type OutputConfig struct {
	DefaultFormat    string   `json:"default_format"`
	Quality          int      `json:"quality"`
	Lossless         bool     `json:"lossless"`
	SupportedFormats []string `json:"supported_formats"`
	OutputDir        string   `json:"output_dir"`
	Suffix           string   `json:"suffix"`
	DebugDir         string   `json:"debug_dir"`
}

// PipelineConfig holds configuration for scheduling
type PipelineConfig struct {
	Parallel bool `json:"parallel"`
	Jobs     int  `json:"jobs"`
}

// Default returns a configuration with default values
func Default() *Config {
	seg := segment.DefaultConfig()
	mnt := mount.DefaultConfig()
	out := imageio.DefaultConfig()
	return &Config{
		Segment: SegmentConfig{
			Polarity:  string(seg.Polarity),
			MorphSize: seg.MorphSize,
		},
		Extract: ExtractConfig{
			MinWindowRatio:  mnt.MinWindowRatio,
			MaxWindowRatio:  mnt.MaxWindowRatio,
			AspectTolerance: mnt.AspectTolerance,
			ApproxEpsilon:   mnt.ApproxEpsilon,
			BorderMargin:    mnt.BorderMargin,
			StapleMargin:    mnt.StapleMargin,
		},
		Projection: vr.DefaultConfig(),
		Restore: restore.Options{
			Strength: restore.StrengthMedium,
		},
		Output: OutputConfig{
			DefaultFormat:    "jpg",
			Quality:          out.Quality,
			Lossless:         out.Lossless,
			SupportedFormats: out.SupportedFormats,
			OutputDir:        "./output",
			Suffix:           "_vr",
		},
		Viewer: viewer.DefaultConfig(),
		Pipeline: PipelineConfig{
			Parallel: true,
			Jobs:     2,
		},
	}
}

// LoadFromFile loads configuration from a JSON file. Fields missing from
// the file keep their default values.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if _, err := segment.ParsePolarity(c.Segment.Polarity); err != nil {
		return fmt.Errorf("segment.polarity: %w", err)
	}

	if c.Segment.MorphSize < 1 {
		return fmt.Errorf("segment.morph_size must be positive")
	}

	if _, err := restore.ParseMethod(string(c.Restore.Denoise)); err != nil {
		return fmt.Errorf("restore.denoise: %w", err)
	}

	if _, err := restore.ParseStrength(string(c.Restore.Strength)); err != nil {
		return fmt.Errorf("restore.strength: %w", err)
	}

	switch c.Output.DefaultFormat {
	case "jpg", "jpeg", "png", "webp", "":
	default:
		return fmt.Errorf("output.default_format %q is not supported", c.Output.DefaultFormat)
	}

	if len(c.Output.SupportedFormats) == 0 {
		return fmt.Errorf("output.supported_formats cannot be empty")
	}

	if c.Pipeline.Jobs < 1 {
		return fmt.Errorf("pipeline.jobs must be positive")
	}

	// the served directory is checked when the viewer starts
	if c.Viewer.Port < 0 || c.Viewer.Port > 65535 {
		return fmt.Errorf("viewer.port %d is out of range", c.Viewer.Port)
	}

	return c.ConverterConfig().Validate()
}

// ConverterConfig maps the file configuration onto the converter
// configuration. Invalid enum values fall back to their defaults; Validate
// reports them.
func (c *Config) ConverterConfig() stereoslide.Config {
	pc := stereoslide.DefaultConfig()

	if p, err := segment.ParsePolarity(c.Segment.Polarity); err == nil {
		pc.Segment.Polarity = p
	}
	pc.Segment.MorphSize = c.Segment.MorphSize

	pc.Mount = mount.Config{
		MinWindowRatio:  c.Extract.MinWindowRatio,
		MaxWindowRatio:  c.Extract.MaxWindowRatio,
		AspectTolerance: c.Extract.AspectTolerance,
		ApproxEpsilon:   c.Extract.ApproxEpsilon,
		BorderMargin:    c.Extract.BorderMargin,
		StapleMargin:    c.Extract.StapleMargin,
	}

	pc.Restore = c.Restore
	if m, err := restore.ParseMethod(string(c.Restore.Denoise)); err == nil {
		pc.Restore.Denoise = m
	}
	if s, err := restore.ParseStrength(string(c.Restore.Strength)); err == nil {
		pc.Restore.Strength = s
	}

	pc.Projection = c.Projection
	pc.Output = imageio.Config{
		SupportedFormats: c.Output.SupportedFormats,
		Quality:          c.Output.Quality,
		Lossless:         c.Output.Lossless,
	}
	pc.Parallel = c.Pipeline.Parallel
	return pc
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "stereoslide", "config.json")
}
