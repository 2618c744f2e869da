package cmd

import (
	"fmt"
	"os"

	"github.com/crane-dl/crane/internal/clipboard"
	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:     "add [url]...",
	Aliases: []string{"get"},
	Short:   "Add one or more downloads to the running daemon",
	Long:    `Send one or more URLs to the queue of a running crane daemon.`,
	Run: func(cmd *cobra.Command, args []string) {
		batchFile, _ := cmd.Flags().GetString("batch")
		output, _ := cmd.Flags().GetString("output")
		connections, _ := cmd.Flags().GetInt("connections")
		fromClipboard, _ := cmd.Flags().GetBool("clipboard")

		var urls []string
		urls = append(urls, args...)

		if batchFile != "" {
			fileURLs, err := readURLsFromFile(batchFile)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error reading batch file: %v\n", err)
				os.Exit(1)
			}
			urls = append(urls, fileURLs...)
		}

		if fromClipboard {
			url := clipboard.ReadURL()
			if url == "" {
				fmt.Fprintln(os.Stderr, "Error: clipboard does not contain a valid http(s) URL.")
				os.Exit(1)
			}
			urls = append(urls, url)
		}

		if len(urls) == 0 {
			cmd.Help()
			return
		}

		port := requireActivePort()

		succeeded := 0
		for _, url := range urls {
			id, err := postDownload(port, DownloadRequest{
				URL:         url,
				Path:        output,
				Connections: connections,
			})
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error adding %s: %v\n", url, err)
				continue
			}
			fmt.Printf("Queued %s (%s)\n", url, id[:8])
			succeeded++
		}

		if succeeded == 0 {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().StringP("batch", "b", "", "file containing URLs to add, one per line")
	addCmd.Flags().StringP("output", "o", "", "save directory override")
	addCmd.Flags().IntP("connections", "c", 0, "connection count override (0 = server default)")
	addCmd.Flags().Bool("clipboard", false, "read a URL from the system clipboard")
}
