package cross

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"strings"
	"sync"

	"github.com/AlecAivazis/survey/v2"

	"github.com/oshokin/ori/internal/domain/android"
	"github.com/oshokin/ori/internal/logger"
	"github.com/oshokin/ori/internal/service/common"
)

const (
	// DefaultExecutable is the cross toolchain executable looked up on PATH.
	DefaultExecutable = "cross"
	// DefaultCargo is the cargo executable used to install cross.
	DefaultCargo = "cargo"

	// installRepository is the source cross is installed from.
	installRepository = "https://github.com/cross-rs/cross"

	// legacyProjectMount is where older cross images mount the workspace.
	legacyProjectMount = "/project"
	// legacyTargetMount is where older cross images mount the target directory.
	legacyTargetMount = "/target"
)

// Request describes a single library build.
type Request struct {
	// Target is the architecture to build for.
	Target android.Target
	// PackageName is passed to --package.
	PackageName string
	// PackageID matches compiler-artifact messages of the package.
	PackageID string
	// WorkspaceRoot is the build working directory.
	WorkspaceRoot string
	// TargetDirectory is the host build output directory.
	TargetDirectory string
	// Release selects the release profile.
	Release bool
	// Offline forbids network access during the build.
	Offline bool
	// Features are enabled cargo features.
	Features []string
}

// Result is a successful build.
type Result struct {
	// Artifact is the last artifact reported for the package.
	Artifact *Artifact
	// LibraryPath is the host path of the shared library.
	LibraryPath string
}

// Prompter asks the user yes/no questions.
type Prompter interface {
	Confirm(message string) (bool, error)
}

// SurveyPrompter asks questions on the terminal.
type SurveyPrompter struct{}

// Confirm implements Prompter.
func (SurveyPrompter) Confirm(message string) (bool, error) {
	answer := false
	prompt := &survey.Confirm{
		Message: message,
		Default: true,
	}

	if err := survey.AskOne(prompt, &answer); err != nil {
		return false, err
	}

	return answer, nil
}

// Builder runs cross builds.
type Builder struct {
	// runner executes the probe and installation commands.
	runner common.Runner
	// executable is the cross path or name.
	executable string
	// cargo is the cargo path or name.
	cargo string
	// prompter confirms installing cross. Nil never installs.
	prompter Prompter
	// output receives echoed diagnostics.
	output io.Writer
	// errOutput receives the compiler's standard error.
	errOutput io.Writer
}

// Option configures a Builder.
type Option func(*Builder)

// WithCargo sets the cargo executable.
func WithCargo(cargo string) Option {
	return func(b *Builder) {
		if cargo != "" {
			b.cargo = cargo
		}
	}
}

// WithPrompter enables the offer to install a missing cross.
func WithPrompter(prompter Prompter) Option {
	return func(b *Builder) {
		b.prompter = prompter
	}
}

// WithOutput redirects diagnostics and compiler stderr. A writer passed for
// both is shared between the scanner and the stderr copy, so writes to it are
// serialized.
func WithOutput(output, errOutput io.Writer) Option {
	return func(b *Builder) {
		if sameWriter(output, errOutput) {
			shared := &lockedWriter{w: output}
			output, errOutput = shared, shared
		}

		if output != nil {
			b.output = output
		}

		if errOutput != nil {
			b.errOutput = errOutput
		}
	}
}

// lockedWriter serializes writes from the scanner and the exec stderr copy.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.w.Write(p)
}

func sameWriter(a, b io.Writer) bool {
	if a == nil || b == nil {
		return false
	}

	if _, ok := a.(*os.File); ok {
		// Files are handed to the child directly and need no copy goroutine.
		return false
	}

	return reflect.TypeOf(a).Comparable() && reflect.TypeOf(b).Comparable() && a == b
}

// New returns a builder that runs the given cross executable.
func New(runner common.Runner, executable string, opts ...Option) *Builder {
	if executable == "" {
		executable = DefaultExecutable
	}

	builder := &Builder{
		runner:     runner,
		executable: executable,
		cargo:      DefaultCargo,
		output:     os.Stdout,
		errOutput:  os.Stderr,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder
}

// Ensure checks that cross is installed, offering to install it when missing.
func (b *Builder) Ensure(ctx context.Context) error {
	err := common.EnsureTool(ctx, b.runner, b.executable, "--version")
	if err == nil || !errors.Is(err, common.ErrToolNotInstalled) || b.prompter == nil {
		return err
	}

	confirmed, promptErr := b.prompter.Confirm(b.executable + " is not installed. Install it with cargo now?")
	if promptErr != nil {
		logger.DebugKV(ctx, "Prompt failed", "error", promptErr)
		return err
	}

	if !confirmed {
		return err
	}

	logger.InfoKV(ctx, "Installing cross", "source", installRepository)

	if err = b.runner.Run(ctx, b.cargo, "install", "cross", "--git", installRepository); err != nil {
		return fmt.Errorf("install cross: %w", err)
	}

	return common.EnsureTool(ctx, b.runner, b.executable, "--version")
}

// Build compiles the library and returns the host path of its cdylib.
func (b *Builder) Build(ctx context.Context, req *Request) (*Result, error) {
	args := Args(req)

	logger.InfoKV(ctx, "Building shared library",
		"package", req.PackageName, "target", req.Target.Triple(), "release", req.Release)
	logger.DebugKV(ctx, "Running command", "command", common.CommandLine(b.executable, args...))

	cmd := exec.CommandContext(ctx, b.executable, args...)
	cmd.Dir = req.WorkspaceRoot
	cmd.Stderr = b.errOutput

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("open %s output: %w", b.executable, err)
	}

	if err = cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", b.executable, err)
	}

	artifact, scanErr := ScanMessages(stdout, req.PackageID, b.output)
	if scanErr != nil {
		// Unblock the compiler if the scanner stopped early.
		_, _ = io.Copy(io.Discard, stdout)
	}

	waitErr := cmd.Wait()

	switch {
	case scanErr != nil && waitErr != nil:
		return nil, fmt.Errorf("%w: %s: %w", scanErr, b.executable, waitErr)
	case scanErr != nil:
		return nil, scanErr
	case waitErr != nil:
		logger.WarnKV(ctx, "Compiler exited with an error after producing the library", "error", waitErr)
	}

	library, err := artifact.SharedLibrary()
	if err != nil {
		return nil, err
	}

	return &Result{
		Artifact:    artifact,
		LibraryPath: HostPath(req.WorkspaceRoot, req.TargetDirectory, library),
	}, nil
}

// Args returns the cross arguments for the request.
func Args(req *Request) []string {
	args := []string{
		"--color", "always",
		"build",
		"--target", req.Target.Triple(),
		"--message-format=json",
		"--package", req.PackageName,
		"--lib",
	}

	if req.Release {
		args = append(args, "--release")
	}

	if req.Offline {
		args = append(args, "--offline")
	}

	if len(req.Features) > 0 {
		args = append(args, "--features", strings.Join(req.Features, ","))
	}

	return args
}

// HostPath maps a filename reported from inside the build container to the
// host. The first existing candidate wins; the reported path is returned when
// none exists.
func HostPath(workspaceRoot, targetDirectory, reported string) string {
	slashed := filepath.ToSlash(reported)
	candidates := []string{
		reported,
		filepath.Join(workspaceRoot, strings.TrimPrefix(slashed, "/")),
	}

	if rest, ok := strings.CutPrefix(slashed, legacyProjectMount+"/"); ok {
		candidates = append(candidates, filepath.Join(workspaceRoot, filepath.FromSlash(rest)))
	}

	if rest, ok := strings.CutPrefix(slashed, legacyTargetMount+"/"); ok && targetDirectory != "" {
		candidates = append(candidates, filepath.Join(targetDirectory, filepath.FromSlash(rest)))
	}

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return reported
}
