package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/oshokin/ori/internal/config"
)

var (
	// overwrite allows replacing an existing settings file.
	overwrite bool

	errSettingsExist = errors.New("settings file already exists, use --force to overwrite")

	// configCmd groups settings helpers.
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Manage cargo-ori settings.",
	}

	// configInitCmd writes a settings file with the defaults.
	configInitCmd = &cobra.Command{
		Use:   "init [path]",
		Short: "Write a settings file with default values.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				path string
				err  error
			)

			if len(args) > 0 {
				path = args[0]
			} else if path, err = config.DefaultPath(); err != nil {
				return err
			}

			if _, err = os.Stat(path); err == nil && !overwrite {
				return fmt.Errorf("%s: %w", path, errSettingsExist)
			}

			cfg := config.Default()
			cfg.SDKRoot = os.Getenv("ANDROID_HOME")

			if err = config.Save(path, cfg); err != nil {
				return err
			}

			_, _ = color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "Settings written to %s\n", path)

			return nil
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	configInitCmd.Flags().BoolVarP(&overwrite, "force", "f", false, "overwrite an existing settings file")
	configCmd.AddCommand(configInitCmd)
}
