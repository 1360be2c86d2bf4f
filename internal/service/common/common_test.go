//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	err   error
	calls [][]string
}

func (s *stubRunner) Output(_ context.Context, name string, args ...string) ([]byte, error) {
	s.calls = append(s.calls, append([]string{name}, args...))

	return nil, s.err
}

func (s *stubRunner) Run(ctx context.Context, name string, args ...string) error {
	_, err := s.Output(ctx, name, args...)

	return err
}

// TestCommandLine quotes arguments containing spaces.
func TestCommandLine(t *testing.T) {
	t.Parallel()

	require.Equal(t, "adb -s deadbeef001 install '/tmp/my app.apk'",
		CommandLine("adb", "-s", "deadbeef001", "install", "/tmp/my app.apk"))
}

// TestEnsureTool_Missing reports a missing tool distinctly.
func TestEnsureTool_Missing(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{}

	err := EnsureTool(context.Background(), runner, "ori-definitely-not-installed-tool", "version")
	require.ErrorIs(t, err, ErrToolNotInstalled)
	require.Contains(t, err.Error(), "ori-definitely-not-installed-tool")
	require.Empty(t, runner.calls)
}

// TestEnsureTool_ProbeFails treats a failing probe as not installed.
func TestEnsureTool_ProbeFails(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("relies on a POSIX executable bit")
	}

	dir := t.TempDir()
	tool := filepath.Join(dir, "fake-tool")
	require.NoError(t, os.WriteFile(tool, []byte("#!/bin/sh\nexit 0\n"), 0o755)) //nolint:gosec // Test executable.

	runner := &stubRunner{}
	require.NoError(t, EnsureTool(context.Background(), runner, tool, "version"))
	require.Equal(t, [][]string{{tool, "version"}}, runner.calls)

	runner = &stubRunner{err: errors.New("exit status 1")}
	err := EnsureTool(context.Background(), runner, tool, "version")
	require.ErrorIs(t, err, ErrToolNotInstalled)
}

// TestExecRunner runs a real command and captures its output.
func TestExecRunner(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("uses /bin/sh")
	}

	var stdout, stderr bytes.Buffer

	runner := NewExecRunner(&stdout, &stderr)

	output, err := runner.Output(context.Background(), "/bin/sh", "-c", "printf hello")
	require.NoError(t, err)
	require.Equal(t, "hello", string(output))

	require.NoError(t, runner.Run(context.Background(), "/bin/sh", "-c", "echo out; echo err >&2"))
	require.Equal(t, "out\n", stdout.String())
	require.Equal(t, "err\n", stderr.String())

	err = runner.Run(context.Background(), "/bin/sh", "-c", "echo broken >&2; exit 3")
	require.Error(t, err)
	require.Contains(t, err.Error(), "broken")
}

// TestIsProcessRunning never finds a made-up executable.
func TestIsProcessRunning(t *testing.T) {
	t.Parallel()

	running, err := IsProcessRunning("ori-definitely-not-running")
	require.NoError(t, err)
	require.False(t, running)
}
