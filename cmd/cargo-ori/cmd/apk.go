package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/oshokin/ori/internal/domain/android"
	"github.com/oshokin/ori/internal/service/apk"
	"github.com/oshokin/ori/internal/service/cross"
)

var (
	// apkOptions collects the flags shared by the apk subcommands.
	apkOptions apk.Options

	// apkCmd groups the APK workflows.
	apkCmd = &cobra.Command{
		Use:   "apk",
		Short: "Build or install an Android package.",
	}

	// apkBuildCmd builds the package.
	apkBuildCmd = &cobra.Command{
		Use:   "build",
		Short: "Build a signed APK.",
		Long: `Builds the cdylib of the package for --target and writes <package>.apk next to it.

Supported targets: ` + strings.Join(android.Triples(), ", "),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()

			opts, err := commandOptions(cmd)
			if err != nil {
				return err
			}

			apkPath, err := apk.Build(ctx, opts)
			if err != nil {
				return err
			}

			_, _ = color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "APK written to %s\n", apkPath)

			return nil
		},
	}

	// apkInstallCmd builds the package and installs it on a device.
	apkInstallCmd = &cobra.Command{
		Use:   "install",
		Short: "Build the APK and install it on a connected device.",
		Long: `Builds the APK for the architecture of the connected device, or for --target when
given, and installs it with adb. With several devices attached, choose one with --device.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()

			opts, err := commandOptions(cmd)
			if err != nil {
				return err
			}

			if err = apk.Install(ctx, opts); err != nil {
				return err
			}

			_, _ = color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), "APK installed")

			return nil
		},
	}
)

// commandOptions completes the parsed flags with settings and terminal streams.
func commandOptions(cmd *cobra.Command) (*apk.Options, error) {
	cfg, err := loadSettings()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	opts := apkOptions
	opts.Config = cfg
	opts.Stdout = cmd.OutOrStdout()
	opts.Stderr = cmd.ErrOrStderr()
	opts.Prompter = cross.SurveyPrompter{}

	return &opts, nil
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := apkCmd.PersistentFlags()
	flags.StringVar(&apkOptions.SDKRoot, "sdk", "", "android sdk root (default: $ANDROID_HOME)")
	flags.BoolVarP(&apkOptions.Release, "release", "r", false, "build with the release profile")
	flags.StringVar(&apkOptions.PEMPath, "pem", "", "pem file with the signing key and certificate (default: debug key)")
	flags.StringVar(&apkOptions.Target, "target", "", "target triple")
	flags.StringVarP(&apkOptions.Package, "package", "p", "", "package to build (default: root package)")
	flags.BoolVar(&apkOptions.Offline, "offline", false, "run without accessing the network")
	flags.StringSliceVarP(&apkOptions.Features, "features", "F", nil, "space or comma separated list of features to activate")
	flags.StringVar(&apkOptions.ManifestPath, "manifest-path", "", "path to Cargo.toml")

	apkInstallCmd.Flags().StringVarP(&apkOptions.Device, "device", "d", "", "device id to install to (default: the only connected device)")

	apkCmd.AddCommand(apkBuildCmd, apkInstallCmd)
}
