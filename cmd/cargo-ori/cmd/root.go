package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/oshokin/ori/internal/config"
	"github.com/oshokin/ori/internal/logger"
	"github.com/oshokin/ori/internal/version"
)

// cargoSubcommand is the argument cargo passes when run as `cargo ori`.
const cargoSubcommand = "ori"

var (
	// configPath is the optional settings file.
	configPath string
	// verbose enables debug logging.
	verbose bool

	// rootCmd represents the base command.
	rootCmd = &cobra.Command{
		Use:   "cargo-ori",
		Short: "Build and install Android packages from Cargo projects.",
		Long: `Builds the shared library of a Cargo package with cross, wraps it into a signed
APK together with a generated manifest and an entry activity, and installs it on
an attached device with adb.

Run it directly or as a cargo subcommand: cargo ori apk build --target aarch64-linux-android`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
)

// Execute runs the cargo-ori CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	args := os.Args[1:]
	if len(args) > 0 && args[0] == cargoSubcommand {
		args = args[1:]
	}

	rootCmd.SetArgs(args)

	if err := rootCmd.Execute(); err != nil {
		_, _ = color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadSettings reads the settings file and applies the log level.
func loadSettings() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if !logger.Configure(cfg.LogLevel, verbose) {
		logger.Warnf(context.Background(), "Unknown log level %q, using info", cfg.LogLevel)
	}

	return cfg, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to settings file (default: ./ori.yaml or $XDG_CONFIG_HOME/ori/ori.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(apkCmd, configCmd)
}
