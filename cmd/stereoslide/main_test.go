package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/stereoslide/internal/config"
	"github.com/menta2k/stereoslide/pkg/restore"
	"github.com/menta2k/stereoslide/pkg/types"
)

func TestReportWindowCountIsOneLine(t *testing.T) {
	var buf bytes.Buffer
	err := &types.StageError{Stage: types.StageStandardize, Err: &types.WindowCountError{Found: 1}}
	report(&buf, err)

	assert.Equal(t, "expected 2 windows, found 1; try --polarity dark|light or --debug\n", buf.String())
}

func TestReportStageError(t *testing.T) {
	var buf bytes.Buffer
	err := fmt.Errorf("slide.png: %w", &types.StageError{Stage: types.StageLoad, Err: types.ErrImageUnavailable})
	report(&buf, err)

	assert.Equal(t, "load failed: image unavailable\n", buf.String())
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
}

func TestReportOtherErrors(t *testing.T) {
	var buf bytes.Buffer
	report(&buf, &types.StageError{Stage: types.StageSegment, Err: context.Canceled})
	assert.Equal(t, "interrupted\n", buf.String())

	buf.Reset()
	report(&buf, errors.New("no images found in in/"))
	assert.Equal(t, "error: no images found in in/\n", buf.String())
}

func TestFlagsOverrideConfig(t *testing.T) {
	var o options
	fs := newFlagSet("stereoslide", &o)
	require.NoError(t, fs.Parse([]string{"--remove-dust", "--polarity", "dark", "--no-distortion", "--jobs", "4", "in.jpg"}))

	cfg := config.Default()
	cfg.Output.Quality = 80
	o.override(fs, cfg)

	assert.True(t, cfg.Restore.RemoveDust)
	assert.Equal(t, "dark", cfg.Segment.Polarity)
	assert.False(t, cfg.Projection.Distort)
	assert.Equal(t, 4, cfg.Pipeline.Jobs)
	assert.Equal(t, 80, cfg.Output.Quality, "unset flags keep file values")
	assert.Equal(t, restore.MethodNone, cfg.Restore.Denoise)
	assert.Equal(t, []string{"in.jpg"}, fs.Args())
}

func TestRestorationFlagsMentionDenoising(t *testing.T) {
	var o options
	fs := newFlagSet("stereoslide", &o)
	for _, name := range []string{"remove-dust", "remove-aging"} {
		f := fs.Lookup(name)
		require.NotNil(t, f, name)
		assert.Contains(t, f.Usage, "--noise-reduction", name)
	}
}
