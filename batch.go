package stereoslide

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/facebookincubator/go-belt/tool/logger"
	"golang.org/x/sync/errgroup"

	"github.com/menta2k/stereoslide/internal/utils"
	"github.com/menta2k/stereoslide/pkg/types"
)

// BatchOptions controls directory conversion.
type BatchOptions struct {
	// Suffix is appended to each output base name.
	Suffix string
	// Format is the output extension; empty keeps the input's.
	Format string
	// Jobs bounds the number of slides converted at once. Zero uses one
	// job per CPU.
	Jobs      int
	Recursive bool
}

// FileResult is the outcome for one slide of a batch.
type FileResult struct {
	Input  string
	Output string
	Err    error
}

// ProcessDir converts every image in inputDir into outputDir. Slides in
// subdirectories keep their relative directory under outputDir. A failing
// slide does not stop the others; the returned error joins every failure
// and results lists each slide in input order. Two slides that would write
// the same output (slide.png and slide.jpg with one format) both fail
// rather than overwrite each other.
func (c *Converter) ProcessDir(ctx context.Context, inputDir, outputDir string, opts BatchOptions) ([]FileResult, error) {
	files, err := utils.ListImageFiles(inputDir, opts.Recursive)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no images found in %s", inputDir)
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	logger.Infof(ctx, "converting %d slides with %d jobs", len(files), jobs)

	results := make([]FileResult, len(files))
	var mu sync.Mutex
	var failures []error

	claimed := make(map[string][]int, len(files))
	for i, input := range files {
		output, err := batchOutput(inputDir, outputDir, input, opts)
		if err != nil {
			return nil, err
		}
		results[i] = FileResult{Input: input, Output: output}
		claimed[output] = append(claimed[output], i)
	}
	for i := range results {
		output := results[i].Output
		if n := len(claimed[output]); n > 1 {
			err := stageError(types.StageWrite, fmt.Errorf("%w: %s is the output of %d slides", types.ErrOutputWrite, output, n))
			results[i].Err = err
			failures = append(failures, fmt.Errorf("%s: %w", results[i].Input, err))
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i := range results {
		if results[i].Err != nil {
			continue
		}
		i := i
		input, output := results[i].Input, results[i].Output
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i].Err = err
				return err
			}
			if _, err := c.ProcessFile(gctx, input, output); err != nil {
				logger.Errorf(gctx, "%s: %v", input, err)
				results[i].Err = err
				mu.Lock()
				failures = append(failures, fmt.Errorf("%s: %w", input, err))
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}

	if len(failures) > 0 {
		return results, fmt.Errorf("%d of %d slides failed: %w", len(failures), len(files), errors.Join(failures...))
	}
	return results, nil
}

// batchOutput maps input to its output path, mirroring its directory
// relative to inputDir, and creates that directory.
func batchOutput(inputDir, outputDir, input string, opts BatchOptions) (string, error) {
	dir := outputDir
	if rel, err := filepath.Rel(inputDir, filepath.Dir(input)); err == nil && rel != "." && filepath.IsLocal(rel) {
		dir = filepath.Join(outputDir, rel)
	}
	if err := utils.EnsureDir(dir); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	return utils.OutputFilename(input, dir, opts.Suffix, opts.Format), nil
}
