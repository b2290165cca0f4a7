package engine

import (
	"context"
	"fmt"
	"os"

	"github.com/klauspost/compress/gzip"

	"dbdock/pkg/runner"
)

// runToFile streams the spec's stdout into destPath as-is. The copy
// uses bounded buffers; dumps are never materialized in memory.
func runToFile(ctx context.Context, run runner.Runner, spec runner.Spec, destPath string) (err error) {
	f, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", destPath, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", destPath, cerr)
		}
	}()

	spec.Stdout = f
	return run.Run(ctx, spec)
}

// runToGzip streams the spec's stdout through a gzip writer into
// destPath. Used for the SQL-text artifact formats.
func runToGzip(ctx context.Context, run runner.Runner, spec runner.Spec, destPath string) (err error) {
	f, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", destPath, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", destPath, cerr)
		}
	}()

	zw := gzip.NewWriter(f)
	spec.Stdout = zw
	if err := run.Run(ctx, spec); err != nil {
		zw.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finish compressing %s: %w", destPath, err)
	}
	return nil
}

// runFromFile streams artifactPath into the spec's stdin
func runFromFile(ctx context.Context, run runner.Runner, spec runner.Spec, artifactPath string) error {
	f, err := os.Open(artifactPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", artifactPath, err)
	}
	defer f.Close()

	spec.Stdin = f
	return run.Run(ctx, spec)
}

// runFromGzip decompresses artifactPath into the spec's stdin. This
// replaces the reference pipeline's gunzip child process; the byte
// stream reaching the client is identical.
func runFromGzip(ctx context.Context, run runner.Runner, spec runner.Spec, artifactPath string) error {
	f, err := os.Open(artifactPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", artifactPath, err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("%s is not a gzip artifact: %w", artifactPath, err)
	}
	defer zr.Close()

	spec.Stdin = zr
	return run.Run(ctx, spec)
}
