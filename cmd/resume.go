package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var resumeCmd = &cobra.Command{
	Use:   "resume <id>",
	Short: "Resume a paused download",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		port := requireActivePort()

		id, err := resolveID(port, args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if err := postAction(port, "/resume", id); err != nil {
			fmt.Fprintf(os.Stderr, "Error resuming %s: %v\n", args[0], err)
			os.Exit(1)
		}
		fmt.Printf("Resumed %s\n", shortID(id))
	},
}

func init() {
	rootCmd.AddCommand(resumeCmd)
}
