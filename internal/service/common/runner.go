//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/kballard/go-shellquote"

	"github.com/oshokin/ori/internal/logger"
)

// Runner executes external commands.
type Runner interface {
	// Output runs the command and returns its standard output.
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
	// Run runs the command with standard streams attached to the runner's writers.
	Run(ctx context.Context, name string, args ...string) error
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	// Stdout receives the output of Run. Nil discards it.
	Stdout io.Writer
	// Stderr receives diagnostics of Run. Nil discards them.
	Stderr io.Writer
}

// maxStderrInError bounds the stderr excerpt attached to command errors.
const maxStderrInError = 4096

// NewExecRunner returns a runner that streams into the given writers.
func NewExecRunner(stdout, stderr io.Writer) *ExecRunner {
	return &ExecRunner{
		Stdout: stdout,
		Stderr: stderr,
	}
}

// Output implements Runner.
func (r *ExecRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	logger.DebugKV(ctx, "Running command", "command", CommandLine(name, args...))

	var stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		return output, commandError(name, err, stderr.String())
	}

	return output, nil
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	logger.DebugKV(ctx, "Running command", "command", CommandLine(name, args...))

	var stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = r.Stdout

	if r.Stderr != nil {
		cmd.Stderr = io.MultiWriter(r.Stderr, &stderr)
	} else {
		cmd.Stderr = &stderr
	}

	if err := cmd.Run(); err != nil {
		return commandError(name, err, stderr.String())
	}

	return nil
}

// CommandLine renders a command the way a shell user would type it.
func CommandLine(name string, args ...string) string {
	return shellquote.Join(append([]string{name}, args...)...)
}

func commandError(name string, err error, stderr string) error {
	stderr = strings.TrimSpace(stderr)
	if len(stderr) > maxStderrInError {
		stderr = stderr[len(stderr)-maxStderrInError:]
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && stderr != "" {
		return fmt.Errorf("%s: %w: %s", name, err, stderr)
	}

	return fmt.Errorf("%s: %w", name, err)
}
