package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var pauseCmd = &cobra.Command{
	Use:   "pause <id>",
	Short: "Pause a downloading item",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		port := requireActivePort()

		id, err := resolveID(port, args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if err := postAction(port, "/pause", id); err != nil {
			fmt.Fprintf(os.Stderr, "Error pausing %s: %v\n", args[0], err)
			os.Exit(1)
		}
		fmt.Printf("Paused %s\n", shortID(id))
	},
}

func init() {
	rootCmd.AddCommand(pauseCmd)
}
