package apk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/oshokin/ori/internal/config"
	"github.com/oshokin/ori/internal/container"
	"github.com/oshokin/ori/internal/domain/android"
	"github.com/oshokin/ori/internal/logger"
	"github.com/oshokin/ori/internal/metadata"
	"github.com/oshokin/ori/internal/repository/sdk"
	"github.com/oshokin/ori/internal/service/adb"
	"github.com/oshokin/ori/internal/service/common"
	"github.com/oshokin/ori/internal/service/cross"
	"github.com/oshokin/ori/internal/service/manifest"
	"github.com/oshokin/ori/internal/service/packager"
)

var (
	// ErrTargetNotSpecified is returned when neither --target nor a device determines the target.
	ErrTargetNotSpecified = errors.New("target not specified, use --target")
	// ErrSDKRootNotFound is returned when no Android SDK root is configured or it does not exist.
	ErrSDKRootNotFound = errors.New("android sdk not found, use --sdk or set ANDROID_HOME")
)

// Options are the inputs of the apk commands.
type Options struct {
	// Config holds settings; nil means defaults.
	Config *config.Config
	// SDKRoot overrides the configured SDK root.
	SDKRoot string
	// Release selects the release profile; debug builds are debuggable.
	Release bool
	// PEMPath is a PEM bundle with the signing key and certificate; empty uses the debug key.
	PEMPath string
	// Target is an explicit target triple.
	Target string
	// Package selects the workspace package; empty means the root package.
	Package string
	// Offline forbids network access.
	Offline bool
	// Features are enabled cargo features.
	Features []string
	// Device is the device id to install to; empty selects automatically.
	Device string
	// ManifestPath is the Cargo.toml to build; empty uses the current directory.
	ManifestPath string
	// Stdout receives compiler diagnostics and tool output.
	Stdout io.Writer
	// Stderr receives tool errors.
	Stderr io.Writer
	// Prompter confirms installing missing tools; nil never installs.
	Prompter cross.Prompter
}

// workflow holds the collaborators of one command execution.
type workflow struct {
	// opts are the command inputs.
	opts *Options
	// cfg are the effective settings.
	cfg *config.Config
	// runner executes external tools.
	runner common.Runner
}

// Build builds the APK and returns its path.
func Build(ctx context.Context, opts *Options) (string, error) {
	ctx = logger.WithName(ctx, "apk-build")

	w, err := newWorkflow(opts)
	if err != nil {
		return "", err
	}

	target, err := w.explicitTarget()
	if err != nil {
		return "", err
	}

	if target == android.TargetUnknown {
		return "", ErrTargetNotSpecified
	}

	return w.build(ctx, target)
}

// Install builds the APK for a device and installs it there.
func Install(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "apk-install")

	w, err := newWorkflow(opts)
	if err != nil {
		return err
	}

	target, err := w.explicitTarget()
	if err != nil {
		return err
	}

	bridge := adb.New(w.runner, w.cfg.ADB)
	if err = bridge.Ensure(ctx); err != nil {
		return err
	}

	devices, err := bridge.ListDevices(ctx)
	if err != nil {
		return err
	}

	device, err := adb.SelectDevice(devices, opts.Device)
	if err != nil {
		return err
	}

	if target == android.TargetUnknown {
		target = device.Target
	}

	logger.InfoKV(ctx, "Selected device", "device", device.ID, "abi", device.Target.ABI())

	apkPath, err := w.build(ctx, target)
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Installing package", "device", device.ID, "path", apkPath)

	if err = bridge.Install(ctx, device.ID, apkPath); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Package installed", "device", device.ID)

	return nil
}

func newWorkflow(opts *Options) (*workflow, error) {
	if opts == nil {
		opts = &Options{}
	}

	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	stdout, stderr := opts.Stdout, opts.Stderr
	if stdout == nil {
		stdout = os.Stdout
	}

	if stderr == nil {
		stderr = os.Stderr
	}

	opts.Stdout, opts.Stderr = stdout, stderr

	return &workflow{
		opts:   opts,
		cfg:    cfg,
		runner: common.NewExecRunner(stdout, stderr),
	}, nil
}

// explicitTarget parses --target; TargetUnknown means it was not given.
func (w *workflow) explicitTarget() (android.Target, error) {
	if w.opts.Target == "" {
		return android.TargetUnknown, nil
	}

	return android.ParseTriple(w.opts.Target)
}

func (w *workflow) build(ctx context.Context, target android.Target) (string, error) {
	ctx = logger.WithKV(ctx, "target", target.Triple())

	if err := common.EnsureTool(ctx, w.runner, w.cfg.Cargo, "--version"); err != nil {
		return "", err
	}

	logger.Info(ctx, "Reading workspace metadata")

	workspace, err := metadata.LoadWorkspace(ctx, w.runner, w.cfg.Cargo, w.opts.ManifestPath)
	if err != nil {
		return "", err
	}

	project, err := workspace.Package(w.opts.Package)
	if err != nil {
		return "", err
	}

	general, err := metadata.ResolveGeneral(project)
	if err != nil {
		return "", err
	}

	pkg, err := metadata.ResolvePackage(project)
	if err != nil {
		return "", err
	}

	apkManifest := manifest.Synthesize(project, general, pkg)
	logger.InfoKV(ctx, "Synthesized manifest",
		"package", apkManifest.Package, "version_code", apkManifest.VersionCode, "version_name", apkManifest.VersionName)

	tools, err := w.buildTools()
	if err != nil {
		return "", err
	}

	signer, err := w.signer()
	if err != nil {
		return "", err
	}

	builder := cross.New(w.runner, w.cfg.Cross,
		cross.WithCargo(w.cfg.Cargo),
		cross.WithPrompter(w.opts.Prompter),
		cross.WithOutput(w.opts.Stdout, w.opts.Stderr))

	if err = builder.Ensure(ctx); err != nil {
		return "", err
	}

	result, err := builder.Build(ctx, &cross.Request{
		Target:          target,
		PackageName:     project.Name,
		PackageID:       project.ID,
		WorkspaceRoot:   workspace.WorkspaceRoot,
		TargetDirectory: workspace.TargetDirectory,
		Release:         w.opts.Release,
		Offline:         w.opts.Offline,
		Features:        w.opts.Features,
	})
	if err != nil {
		return "", err
	}

	resolver := sdk.New(
		sdk.WithHTTPClient(&http.Client{Timeout: w.cfg.DownloadTimeout}),
		sdk.WithRepositoryURL(w.cfg.RepositoryURL),
		sdk.WithOffline(w.opts.Offline))

	platformJar, err := resolver.Ensure(ctx, workspace.TargetDirectory, manifest.CompileSDKVersion)
	if err != nil {
		return "", err
	}

	dexPath, err := packager.InstallPayload(ctx, filepath.Dir(platformJar))
	if err != nil {
		return "", err
	}

	apkPath := filepath.Join(filepath.Dir(result.LibraryPath), project.Name+".apk")

	err = packager.Run(ctx, &packager.Options{
		New:         packager.BuildToolsFactory(tools, w.runner),
		OutputPath:  apkPath,
		Manifest:    apkManifest,
		Debuggable:  !w.opts.Release,
		Icon:        iconPath(workspace.WorkspaceRoot, pkg.Icon),
		PlatformJar: platformJar,
		DexPath:     dexPath,
		Target:      target,
		LibraryPath: result.LibraryPath,
		Signer:      signer,
	})
	if err != nil {
		return "", err
	}

	logger.InfoKV(ctx, "Package written", "path", apkPath)

	return apkPath, nil
}

// sdkRoot resolves the SDK root: flag, then settings and environment.
func (w *workflow) sdkRoot() (string, error) {
	root := w.opts.SDKRoot
	if root == "" {
		root = w.cfg.SDKRoot
	}

	if root == "" {
		return "", ErrSDKRootNotFound
	}

	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrSDKRootNotFound, root)
	}

	return root, nil
}

func (w *workflow) buildTools() (*container.BuildTools, error) {
	root, err := w.sdkRoot()
	if err != nil {
		return nil, err
	}

	return container.FindBuildTools(root)
}

// signer loads --pem or falls back to the bundled debug key.
func (w *workflow) signer() (*container.Signer, error) {
	if w.opts.PEMPath == "" {
		return container.DebugSigner()
	}

	data, err := os.ReadFile(filepath.Clean(w.opts.PEMPath))
	if err != nil {
		return nil, fmt.Errorf("read pem file: %w", err)
	}

	return container.NewSigner(data)
}

// iconPath resolves the icon relative to the workspace root.
func iconPath(workspaceRoot, icon string) string {
	if icon == "" || filepath.IsAbs(icon) {
		return icon
	}

	return filepath.Join(workspaceRoot, icon)
}
