package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/crane-dl/crane/internal/types"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List downloads known to the running daemon",
	Run: func(cmd *cobra.Command, args []string) {
		jsonOutput, _ := cmd.Flags().GetBool("json")
		watch, _ := cmd.Flags().GetBool("watch")

		port := requireActivePort()

		if !watch {
			printDownloads(port, jsonOutput)
			return
		}
		for {
			fmt.Print("\033[H\033[2J")
			printDownloads(port, jsonOutput)
			time.Sleep(time.Second)
		}
	},
}

func printDownloads(port int, jsonOutput bool) {
	items, err := fetchDownloads(port)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing downloads: %v\n", err)
		os.Exit(1)
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(items, "", "  ")
		fmt.Println(string(data))
		return
	}

	if len(items) == 0 {
		fmt.Println("No downloads found.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tFILENAME\tSTATUS\tPROGRESS\tSPEED\tSIZE")
	for _, item := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			shortID(item.ID), truncate(item.Filename, 28), renderStatus(item.Status),
			progressString(item), speedString(item.Speed), sizeString(item.TotalSize))
	}
	w.Flush()
}

func progressString(item downloadItem) string {
	if item.TotalSize <= 0 {
		return "-"
	}
	pct := float64(item.Downloaded) * 100 / float64(item.TotalSize)
	return fmt.Sprintf("%.1f%%", pct)
}

func speedString(bytesPerSec float64) string {
	if bytesPerSec <= 0 {
		return "-"
	}
	return humanize.Bytes(uint64(bytesPerSec)) + "/s"
}

func sizeString(totalSize int64) string {
	if totalSize <= 0 {
		return "-"
	}
	return humanize.IBytes(uint64(totalSize))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

// renderStatus colors a status string the way the teacher's status
// display component would, without needing a full component tree for a
// one-shot CLI table row.
func renderStatus(status string) string {
	var color lipgloss.Color
	switch types.DownloadStatus(status) {
	case types.StatusCompleted:
		color = "10" // green
	case types.StatusFailed:
		color = "9" // red
	case types.StatusPaused, types.StatusQueued:
		color = "11" // yellow
	default:
		color = "12" // blue: downloading/pending/analysing
	}
	return lipgloss.NewStyle().Foreground(color).Render(status)
}

func init() {
	rootCmd.AddCommand(lsCmd)
	lsCmd.Flags().Bool("json", false, "output as JSON")
	lsCmd.Flags().Bool("watch", false, "refresh the table every second")
}
