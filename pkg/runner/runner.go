// Package runner executes external database tools, either inside an
// ephemeral Docker container or directly on the host, with piped
// standard streams and captured diagnostics.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/docker/docker/client"
)

// Spec describes one external tool invocation: the tool and its
// argument vector, the container image to run it in (empty means run
// on the host), environment overrides, bind mounts, and where the
// standard streams go. Stderr is always captured for diagnostics.
type Spec struct {
	Image  string
	Argv   []string
	Env    map[string]string
	Binds  []string
	Stdin  io.Reader
	Stdout io.Writer
}

// Tool returns the name of the tool the spec invokes
func (s Spec) Tool() string {
	if len(s.Argv) == 0 {
		return ""
	}
	return s.Argv[0]
}

// Runner executes tool invocations
type Runner interface {
	// Run executes the spec, blocking until the process exits and
	// its output stream is fully drained.
	Run(ctx context.Context, spec Spec) error

	// Output executes the spec and returns its captured stdout.
	Output(ctx context.Context, spec Spec) (string, error)
}

// ExitError reports a tool that exited non-zero, with its captured
// diagnostic output
type ExitError struct {
	Tool   string
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s exited with code %d", e.Tool, e.Code)
	}
	return fmt.Sprintf("%s exited with code %d: %s", e.Tool, e.Code, e.Stderr)
}

// Docker runs specs in ephemeral containers via the docker CLI.
// Specs without an image run directly on the host.
type Docker struct {
	bin string
}

// NewDocker creates a runner using the docker binary from PATH
func NewDocker() *Docker {
	return &Docker{bin: "docker"}
}

// Ping verifies the Docker daemon is reachable. Called before a run
// that needs containers so connectivity problems surface up front
// instead of mid-backup.
func (d *Docker) Ping(ctx context.Context) error {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return fmt.Errorf("failed to create Docker client: %w", err)
	}
	defer cli.Close()

	if _, err := cli.Ping(ctx); err != nil {
		return fmt.Errorf("docker daemon is not reachable: %w", err)
	}
	return nil
}

// Run executes the spec, wiring the configured streams and capturing
// stderr. Descriptors are released on every exit path by os/exec.
func (d *Docker) Run(ctx context.Context, spec Spec) error {
	cmd := d.command(ctx, spec)
	cmd.Stdin = spec.Stdin
	if spec.Stdout != nil {
		cmd.Stdout = spec.Stdout
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return wrapRunError(spec, err, stderr.String())
	}
	return nil
}

// Output executes the spec and returns the captured stdout as text
func (d *Docker) Output(ctx context.Context, spec Spec) (string, error) {
	var out bytes.Buffer
	spec.Stdout = &out
	if err := d.Run(ctx, spec); err != nil {
		return "", err
	}
	return out.String(), nil
}

func (d *Docker) command(ctx context.Context, spec Spec) *exec.Cmd {
	if spec.Image == "" {
		cmd := exec.CommandContext(ctx, spec.Argv[0], spec.Argv[1:]...)
		if len(spec.Env) > 0 {
			cmd.Env = append(os.Environ(), envList(spec.Env)...)
		}
		return cmd
	}

	args := []string{"run", "--rm"}
	if spec.Stdin != nil {
		args = append(args, "-i")
	}
	for _, kv := range envList(spec.Env) {
		args = append(args, "-e", kv)
	}
	for _, bind := range spec.Binds {
		args = append(args, "-v", bind)
	}
	args = append(args, spec.Image)
	args = append(args, spec.Argv...)
	return exec.CommandContext(ctx, d.bin, args...)
}

// envList renders the env map as KEY=VALUE pairs in a stable order
func envList(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+env[k])
	}
	return pairs
}

func wrapRunError(spec Spec, err error, stderr string) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{
			Tool:   spec.Tool(),
			Code:   exitErr.ExitCode(),
			Stderr: strings.TrimSpace(stderr),
		}
	}
	return fmt.Errorf("failed to run %s: %w", spec.Tool(), err)
}
