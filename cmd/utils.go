package cmd

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/crane-dl/crane/internal/config"
)

// readActivePort reads the daemon's loopback port from the port file,
// returning 0 if no daemon is running.
func readActivePort() int {
	data, err := os.ReadFile(filepath.Join(config.GetCraneDir(), "port"))
	if err != nil {
		return 0
	}
	var port int
	fmt.Sscanf(string(data), "%d", &port)
	return port
}

// requireActivePort reads the daemon's port or exits with a clear error.
func requireActivePort() int {
	port := readActivePort()
	if port == 0 {
		fmt.Fprintln(os.Stderr, "Error: no crane daemon is running.")
		fmt.Fprintln(os.Stderr, "Start one with 'crane server'.")
		os.Exit(1)
	}
	return port
}

// readURLsFromFile reads newline-delimited URLs from a batch file,
// skipping blank lines and '#'-prefixed comments.
func readURLsFromFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open batch file: %w", err)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			urls = append(urls, line)
		}
	}
	return urls, scanner.Err()
}

// postDownload sends a single DownloadRequest to the daemon and returns
// the assigned download ID.
func postDownload(port int, req DownloadRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	resp, err := http.Post(fmt.Sprintf("http://127.0.0.1:%d/download", port), "application/json", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to reach daemon: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("daemon returned %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	var out downloadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode daemon response: %w", err)
	}
	return out.ID, nil
}

// postAction sends a no-body POST to one of /pause, /resume, /rm.
func postAction(port int, path, id string) error {
	resp, err := http.Post(fmt.Sprintf("http://127.0.0.1:%d%s?id=%s", port, path, id), "application/json", nil)
	if err != nil {
		return fmt.Errorf("failed to reach daemon: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("daemon returned %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}
	return nil
}

// fetchDownloads retrieves the full download list from the daemon.
func fetchDownloads(port int) ([]downloadItem, error) {
	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/list", port))
	if err != nil {
		return nil, fmt.Errorf("failed to reach daemon: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("daemon returned %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	var items []downloadItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("failed to decode daemon response: %w", err)
	}
	return items, nil
}

// resolveID expands a partial ID prefix to the single matching
// download's full ID, erroring on ambiguity and passing full-length IDs
// straight through. When nothing matches, or the list cannot be fetched,
// the prefix is returned unchanged.
func resolveID(port int, partial string) (string, error) {
	if len(partial) >= 32 {
		return partial, nil
	}

	items, err := fetchDownloads(port)
	if err != nil {
		return partial, nil
	}

	var matches []string
	for _, item := range items {
		if strings.HasPrefix(item.ID, partial) {
			matches = append(matches, item.ID)
		}
	}

	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return partial, nil
	default:
		return "", fmt.Errorf("ambiguous ID prefix %q matches %d downloads", partial, len(matches))
	}
}
