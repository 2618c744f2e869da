package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <id>",
	Short: "Show detailed status for one download",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		port := requireActivePort()

		id, err := resolveID(port, args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		item, err := fetchStatus(port, id)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		label := lipgloss.NewStyle().Bold(true)
		fmt.Printf("%s %s\n", label.Render("ID:"), item.ID)
		fmt.Printf("%s %s\n", label.Render("URL:"), item.URL)
		fmt.Printf("%s %s\n", label.Render("Filename:"), item.Filename)
		fmt.Printf("%s %s\n", label.Render("Status:"), renderStatus(item.Status))
		fmt.Printf("%s %s / %s (%s)\n", label.Render("Progress:"), sizeString(item.Downloaded), sizeString(item.TotalSize), progressString(item))
		fmt.Printf("%s %s\n", label.Render("Speed:"), speedString(item.Speed))
		if item.ETASeconds > 0 {
			fmt.Printf("%s %ds\n", label.Render("ETA:"), item.ETASeconds)
		}
		if item.Error != "" {
			fmt.Printf("%s %s\n", label.Render("Error:"), item.Error)
		}
	},
}

func fetchStatus(port int, id string) (downloadItem, error) {
	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/status?id=%s", port, id))
	if err != nil {
		return downloadItem{}, fmt.Errorf("failed to reach daemon: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return downloadItem{}, fmt.Errorf("daemon returned %s", resp.Status)
	}

	var item downloadItem
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return downloadItem{}, fmt.Errorf("failed to decode daemon response: %w", err)
	}
	return item, nil
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
