package root

import (
	"github.com/spf13/cobra"
)

// rootCmd is the base command for the club portal admin CLI. Subcommands are attached in wire.go.
var rootCmd = &cobra.Command{
	Use:           "clubportal",
	Short:         "Club portal admin CLI",
	Long:          "Administrative utilities for the club portal (admin bootstrap, tenant lifecycle, dev tokens).",
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the CLI.
func Execute() error {
	if wireErr != nil {
		return wireErr
	}
	return rootCmd.Execute()
}

// Root returns the mutable root command for wiring from subpackages.
func Root() *cobra.Command {
	return rootCmd
}
