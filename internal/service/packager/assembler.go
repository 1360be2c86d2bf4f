package packager

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/ori/internal/container"
	"github.com/oshokin/ori/internal/domain/android"
	"github.com/oshokin/ori/internal/logger"
	"github.com/oshokin/ori/internal/service/common"
)

// Container is the builder the assembler drives.
type Container interface {
	// AddResources compiles the optional icon and links against the platform jar.
	AddResources(ctx context.Context, icon, platformJar string) error
	// AddBinaryPayload adds the DEX payload.
	AddBinaryPayload(ctx context.Context, dexPath string) error
	// AddNativeLibrary adds the shared library for a target.
	AddNativeLibrary(ctx context.Context, target android.Target, libraryPath string) error
	// Finish writes the package, signed when signer is not nil.
	Finish(ctx context.Context, signer *container.Signer) error
	// Close releases intermediate state.
	Close() error
}

// Factory creates a container writing to path.
type Factory func(path string, manifest *android.Manifest, debuggable bool) (Container, error)

// Options are the inputs of one assembly.
type Options struct {
	// New creates the container.
	New Factory
	// OutputPath is the APK to write.
	OutputPath string
	// Manifest is the synthesized manifest.
	Manifest *android.Manifest
	// Debuggable marks the package debuggable.
	Debuggable bool
	// Icon is the optional icon image.
	Icon string
	// PlatformJar is the cached platform jar.
	PlatformJar string
	// DexPath is the materialized DEX payload.
	DexPath string
	// Target is the architecture of the library.
	Target android.Target
	// LibraryPath is the shared library.
	LibraryPath string
	// Signer signs the package.
	Signer *container.Signer
}

var errFactoryRequired = errors.New("container factory must be provided")

// Run assembles the package.
func Run(ctx context.Context, opts *Options) (err error) {
	if opts.New == nil {
		return errFactoryRequired
	}

	ctx = logger.WithKV(ctx, "apk", opts.OutputPath)

	logger.Debug(ctx, "Creating package")

	apk, err := opts.New(opts.OutputPath, opts.Manifest, opts.Debuggable)
	if err != nil {
		return fmt.Errorf("create package: %w", err)
	}

	defer func() {
		if closeErr := apk.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close package: %w", closeErr)
		}
	}()

	logger.DebugKV(ctx, "Adding resources", "icon", opts.Icon, "platform_jar", opts.PlatformJar)

	if err = apk.AddResources(ctx, opts.Icon, opts.PlatformJar); err != nil {
		return fmt.Errorf("add resources: %w", err)
	}

	logger.DebugKV(ctx, "Adding dex payload", "path", opts.DexPath)

	if err = apk.AddBinaryPayload(ctx, opts.DexPath); err != nil {
		return fmt.Errorf("add dex payload: %w", err)
	}

	logger.DebugKV(ctx, "Adding native library", "abi", opts.Target.ABI(), "path", opts.LibraryPath)

	if err = apk.AddNativeLibrary(ctx, opts.Target, opts.LibraryPath); err != nil {
		return fmt.Errorf("add native library: %w", err)
	}

	logger.Debug(ctx, "Finishing package")

	if err = apk.Finish(ctx, opts.Signer); err != nil {
		return fmt.Errorf("finish package: %w", err)
	}

	return nil
}

// BuildToolsFactory returns a Factory backed by the SDK build tools.
func BuildToolsFactory(tools *container.BuildTools, runner common.Runner) Factory {
	return func(path string, manifest *android.Manifest, debuggable bool) (Container, error) {
		writer, err := container.New(tools, runner, path, manifest, debuggable)
		if err != nil {
			return nil, err
		}

		return writer, nil
	}
}
