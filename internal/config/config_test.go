package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/stereoslide"
	"github.com/menta2k/stereoslide/pkg/restore"
	"github.com/menta2k/stereoslide/pkg/segment"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "auto", cfg.Segment.Polarity)
	assert.Equal(t, 2160, cfg.Projection.TargetWidth)
	assert.Equal(t, 1200, cfg.Projection.TargetHeight)
	assert.Equal(t, 8000, cfg.Viewer.Port)
}

func TestDefaultMatchesConverterDefaults(t *testing.T) {
	pc := Default().ConverterConfig()
	want := stereoslide.DefaultConfig()

	assert.Equal(t, want.Segment, pc.Segment)
	assert.Equal(t, want.Mount, pc.Mount)
	assert.Equal(t, want.Projection, pc.Projection)
	assert.Equal(t, want.Output, pc.Output)
	assert.Equal(t, want.Parallel, pc.Parallel)
	assert.False(t, pc.Restore.Enabled())
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	cfg := Default()
	cfg.Segment.Polarity = "dark"
	cfg.Extract.StapleMargin = 15
	cfg.Restore.Denoise = restore.MethodNLM
	cfg.Restore.Strength = restore.StrengthHigh
	cfg.Projection.DistortionStrength = 0.4
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	pc := loaded.ConverterConfig()
	assert.Equal(t, segment.PolarityDark, pc.Segment.Polarity)
	assert.Equal(t, 15, pc.Mount.StapleMargin)
	assert.Equal(t, restore.MethodNLM, pc.Restore.Denoise)
	assert.InDelta(t, 0.4, pc.Projection.DistortionStrength, 1e-9)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"viewer": {"port": 9000}}`), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Viewer.Port)
	assert.Equal(t, Default().Projection, cfg.Projection)
	assert.Equal(t, Default().Extract, cfg.Extract)
}

func TestLoadErrors(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0644))
	_, err = LoadFromFile(path)
	assert.ErrorContains(t, err, "failed to parse")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"polarity", func(c *Config) { c.Segment.Polarity = "grey" }, "segment.polarity"},
		{"morph size", func(c *Config) { c.Segment.MorphSize = 0 }, "morph_size"},
		{"denoise", func(c *Config) { c.Restore.Denoise = "wavelet" }, "restore.denoise"},
		{"strength", func(c *Config) { c.Restore.Strength = "max" }, "restore.strength"},
		{"format", func(c *Config) { c.Output.DefaultFormat = "tiff" }, "default_format"},
		{"formats", func(c *Config) { c.Output.SupportedFormats = nil }, "supported_formats"},
		{"jobs", func(c *Config) { c.Pipeline.Jobs = 0 }, "pipeline.jobs"},
		{"viewer", func(c *Config) { c.Viewer.Port = 70000 }, "viewer.port"},
		{"quality", func(c *Config) { c.Output.Quality = 0 }, "quality"},
		{"ratios", func(c *Config) { c.Extract.MinWindowRatio = 0.5 }, "mount"},
		{"target", func(c *Config) { c.Projection.TargetWidth = 0 }, "projection"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.errMsg)
		})
	}
}

func TestGetConfigPath(t *testing.T) {
	assert.Equal(t, "config.json", filepath.Base(GetConfigPath()))
	assert.Contains(t, GetConfigPath(), "stereoslide")
}
