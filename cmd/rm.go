package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rmCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"kill"},
	Short:   "Cancel a download, leaving it listed as failed",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		port := requireActivePort()

		id, err := resolveID(port, args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if err := postAction(port, "/rm", id); err != nil {
			fmt.Fprintf(os.Stderr, "Error removing %s: %v\n", args[0], err)
			os.Exit(1)
		}
		fmt.Printf("Cancelled %s\n", shortID(id))
	},
}

func init() {
	rootCmd.AddCommand(rmCmd)
}
