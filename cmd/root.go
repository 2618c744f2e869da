// Package cmd implements the crane CLI shell: a thin command/flag
// frontend over the queue manager's HTTP control surface (§6 EXTERNAL
// INTERFACES). It never touches the store or engine directly — every
// subcommand but `server` talks to a running daemon over loopback HTTP.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Version information, set via ldflags during build.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:     "crane",
	Short:   "A multi-connection download manager",
	Long:    `crane is a download manager core with SSRF-safe fetching, chunked multi-connection downloads, and a queue manager, driven through a thin CLI.`,
	Version: Version,
}

// Execute runs the root command, exiting with status 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetVersionTemplate("crane version {{.Version}}\n")
}
