package cross

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/ori/internal/domain/android"
	"github.com/oshokin/ori/internal/service/common"
)

// TestArgs renders the optional flags in a stable order.
func TestArgs(t *testing.T) {
	t.Parallel()

	req := &Request{
		Target:      android.TargetArmV7,
		PackageName: "my-app",
	}

	require.Equal(t, []string{
		"--color", "always", "build", "--target", "armv7-linux-androideabi",
		"--message-format=json", "--package", "my-app", "--lib",
	}, Args(req))

	req.Release = true
	req.Offline = true
	req.Features = []string{"vulkan", "audio"}

	require.Equal(t, []string{
		"--color", "always", "build", "--target", "armv7-linux-androideabi",
		"--message-format=json", "--package", "my-app", "--lib",
		"--release", "--offline", "--features", "vulkan,audio",
	}, Args(req))
}

// TestHostPath maps container paths back to the workspace.
func TestHostPath(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	targetDir := filepath.Join(root, "target")
	library := filepath.Join(targetDir, "aarch64-linux-android", "debug", "libmy_app.so")

	require.NoError(t, os.MkdirAll(filepath.Dir(library), 0o755))
	require.NoError(t, os.WriteFile(library, []byte("ELF"), 0o600))

	require.Equal(t, library, HostPath(root, targetDir, library))
	require.Equal(t, library, HostPath(root, targetDir, "/project/target/aarch64-linux-android/debug/libmy_app.so"))
	require.Equal(t, library, HostPath(root, targetDir, "/target/aarch64-linux-android/debug/libmy_app.so"))
	require.Equal(t, "/nowhere/libmy_app.so", HostPath(root, targetDir, "/nowhere/libmy_app.so"))
}

// TestBuilder_Build runs a stand-in compiler that emits a message stream.
func TestBuilder_Build(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("uses a POSIX shell script")
	}

	root := t.TempDir()
	library := filepath.Join(root, "target", "x86_64-linux-android", "release", "libmy_app.so")
	require.NoError(t, os.MkdirAll(filepath.Dir(library), 0o755))
	require.NoError(t, os.WriteFile(library, []byte("ELF"), 0o600))

	argsFile := filepath.Join(root, "args.txt")
	script := "#!/bin/sh\n" +
		"echo \"$@\" > " + argsFile + "\n" +
		"echo '   Compiling my-app v0.1.0'\n" +
		"echo '" + artifactLine(packageID, `"cdylib"`, `"`+library+`"`) + "'\n" +
		"echo 'some warning' >&2\n" +
		"exit 0\n"

	executable := filepath.Join(root, "cross")
	require.NoError(t, os.WriteFile(executable, []byte(script), 0o755)) //nolint:gosec // Test executable.

	var stdout, stderr bytes.Buffer

	builder := New(common.NewExecRunner(&stdout, &stderr), executable, WithOutput(&stdout, &stderr))

	result, err := builder.Build(context.Background(), &Request{
		Target:          android.TargetX86_64,
		PackageName:     "my-app",
		PackageID:       packageID,
		WorkspaceRoot:   root,
		TargetDirectory: filepath.Join(root, "target"),
		Release:         true,
	})
	require.NoError(t, err)
	require.Equal(t, library, result.LibraryPath)
	require.Contains(t, stdout.String(), "Compiling my-app")
	require.Contains(t, stderr.String(), "some warning")

	recorded, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	require.Contains(t, string(recorded), "--target x86_64-linux-android")
	require.Contains(t, string(recorded), "--release")
}

// TestBuilder_BuildFailure reports a missing artifact together with the exit
// status and keeps both streams when they share one writer.
func TestBuilder_BuildFailure(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("uses a POSIX shell script")
	}

	root := t.TempDir()
	executable := filepath.Join(root, "cross")
	script := "#!/bin/sh\necho 'error[E0425]: cannot find value'\necho 'warning: unused import' >&2\nexit 101\n"
	require.NoError(t, os.WriteFile(executable, []byte(script), 0o755)) //nolint:gosec // Test executable.

	var output bytes.Buffer

	builder := New(common.NewExecRunner(nil, nil), executable, WithOutput(&output, &output))

	_, err := builder.Build(context.Background(), &Request{
		Target:        android.TargetArm64,
		PackageName:   "my-app",
		PackageID:     packageID,
		WorkspaceRoot: root,
	})
	require.ErrorIs(t, err, ErrArtifactNotGenerated)
	require.Contains(t, output.String(), "error[E0425]")
	require.Contains(t, output.String(), "warning: unused import")
}

// TestWithOutput_SharedWriter serializes a writer passed for both streams.
func TestWithOutput_SharedWriter(t *testing.T) {
	t.Parallel()

	var output bytes.Buffer

	shared := New(nil, "", WithOutput(&output, &output))
	require.IsType(t, &lockedWriter{}, shared.output)
	require.Same(t, shared.output, shared.errOutput)

	var other bytes.Buffer

	split := New(nil, "", WithOutput(&output, &other))
	require.Same(t, &output, split.output)
	require.Same(t, &other, split.errOutput)

	files := New(nil, "", WithOutput(os.Stdout, os.Stdout))
	require.Same(t, os.Stdout, files.output)
}

type answerPrompter struct {
	answer bool
	asked  int
}

func (p *answerPrompter) Confirm(string) (bool, error) {
	p.asked++

	return p.answer, nil
}

// TestBuilder_EnsureDeclined keeps the not-installed error when the user declines.
func TestBuilder_EnsureDeclined(t *testing.T) {
	t.Parallel()

	prompter := &answerPrompter{}
	builder := New(common.NewExecRunner(nil, nil), "ori-missing-cross", WithPrompter(prompter))

	err := builder.Ensure(context.Background())
	require.ErrorIs(t, err, common.ErrToolNotInstalled)
	require.Equal(t, 1, prompter.asked)
}
