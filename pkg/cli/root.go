// Package cli provides the command-line interface for the conda plugin
package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// pluginAPIVersion is the linuxdeploy plugin protocol version this tool speaks
const pluginAPIVersion = "0"

// NewRootCommand builds the root command. Each call returns a fresh command
// with its own flag state, so invocations never share parse results.
func NewRootCommand(version string) *cobra.Command {
	var (
		queryAPIVersion bool
		queryPluginType bool
		showVersion     bool
	)

	cmd := &cobra.Command{
		Use:   "linuxdeploy-plugin-conda [flags] <AppDir>",
		Short: "Bundle a relocatable conda-based Python runtime into an AppDir",
		Long: `linuxdeploy-plugin-conda installs Miniconda plus a user-declared set of
conda and pip packages into an AppDir, rewrites every build-time absolute
path so the bundle runs from any location, and trims bulk that is not
needed at run time.

All configuration is taken from the environment (CONDA_PACKAGES,
CONDA_CHANNELS, CONDA_PYTHON_VERSION, PIP_REQUIREMENTS, ...).`,

		SilenceUsage: true,
		Args:         cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case queryAPIVersion:
				fmt.Fprintln(cmd.OutOrStdout(), pluginAPIVersion)
				return nil
			case queryPluginType:
				fmt.Fprintln(cmd.OutOrStdout(), "input")
				return nil
			case showVersion:
				fmt.Fprintf(cmd.OutOrStdout(), "linuxdeploy-plugin-conda %s\n", version)
				return nil
			}

			if len(args) != 1 {
				_ = cmd.Usage()
				return fmt.Errorf("exactly one AppDir argument is required")
			}
			return runPipeline(args[0])
		},
	}

	cmd.Flags().BoolVar(&queryAPIVersion, "plugin-api-version", false,
		"Print the linuxdeploy plugin API version and quit")
	cmd.Flags().BoolVar(&queryPluginType, "plugin-type", false,
		"Print the linuxdeploy plugin type and quit")
	cmd.Flags().BoolVar(&showVersion, "version", false,
		"Print version information and quit")

	// A bad flag is fatal, but the usage text must still reach the user;
	// SilenceUsage only covers errors raised from RunE.
	cmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		fmt.Fprintln(cmd.ErrOrStderr(), cmd.UsageString())
		return err
	})

	return cmd
}

// Execute runs the CLI
func Execute(version string) error {
	return NewRootCommand(version).Execute()
}

// Helper functions

func printError(message string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", color.RedString("[conda-plugin]"), message)
}

func printInfo(message string) {
	fmt.Printf("%s %s\n", color.CyanString("[conda-plugin]"), message)
}
