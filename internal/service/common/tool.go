//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// ErrToolNotInstalled is returned when a required external tool cannot be run.
var ErrToolNotInstalled = errors.New("tool is not installed")

// lookPath is replaced in tests.
//
//nolint:gochecknoglobals // Test seam for PATH lookups.
var lookPath = exec.LookPath

// EnsureTool checks that the tool is on PATH and answers the given probe
// arguments (for example "version") with a zero exit status.
func EnsureTool(ctx context.Context, runner Runner, name string, probe ...string) error {
	if _, err := lookPath(name); err != nil {
		return fmt.Errorf("%w: %s", ErrToolNotInstalled, name)
	}

	if len(probe) == 0 {
		return nil
	}

	if _, err := runner.Output(ctx, name, probe...); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrToolNotInstalled, name, err)
	}

	return nil
}

// ExecutableName appends the platform executable extension to a base name.
func ExecutableName(base string) string {
	if strings.Contains(strings.ToLower(runtime.GOOS), "windows") && !strings.HasSuffix(base, ".exe") {
		return base + ".exe"
	}

	return base
}
