package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/crane-dl/crane/internal/bandwidth"
	"github.com/crane-dl/crane/internal/config"
	"github.com/crane-dl/crane/internal/engine"
	"github.com/crane-dl/crane/internal/queue"
	"github.com/crane-dl/crane/internal/store"
	"github.com/crane-dl/crane/internal/types"
	"github.com/crane-dl/crane/internal/utils"
	"github.com/spf13/cobra"
)

const reconcileInterval = time.Second

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the crane daemon that owns the download queue",
	Long: `Run the crane daemon: acquires the single-instance lock, opens the
store, and listens on a loopback HTTP port for the CLI and the
browser-extension bridge. Blocks until interrupted.`,
	Run: func(cmd *cobra.Command, args []string) {
		isMaster, err := AcquireLock()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error acquiring lock: %v\n", err)
			os.Exit(1)
		}
		if !isMaster {
			fmt.Fprintln(os.Stderr, "Error: a crane daemon is already running.")
			os.Exit(1)
		}
		defer ReleaseLock()

		portFlag, _ := cmd.Flags().GetInt("port")
		outputDir, _ := cmd.Flags().GetString("output")

		cfg, err := config.LoadSettings()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		if outputDir == "" {
			outputDir = cfg.General.DownloadLocation
		}

		utils.ConfigureDebug(config.GetLogsDir())

		st, err := store.Open(config.GetStorePath())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
			os.Exit(1)
		}
		defer st.Close()

		limiter := bandwidth.NewLimiter(cfg.Downloads.BandwidthLimit, toSpeedSchedule(cfg.Network.SpeedSchedule))
		mgr := queue.New(st, engine.New(limiter), cfg.Downloads.MaxConcurrent, nil)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		if _, err := mgr.CheckPending(ctx); err != nil {
			utils.Debug("initial check-pending failed: %v", err)
		}

		var listener net.Listener
		port := portFlag
		if port > 0 {
			listener, err = net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: could not bind to port %d: %v\n", port, err)
				os.Exit(1)
			}
		} else {
			port, listener = findAvailablePort(8080)
			if listener == nil {
				fmt.Fprintln(os.Stderr, "Error: could not find an available port")
				os.Exit(1)
			}
		}

		saveActivePort(port)
		defer removeActivePort()

		srv := &http.Server{Handler: newMux(mgr, outputDir)}
		go func() {
			if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
				utils.Debug("HTTP server error: %v", err)
			}
		}()

		go reconcile(ctx, mgr)

		fmt.Printf("crane daemon listening on 127.0.0.1:%d\n", port)
		fmt.Println("Press Ctrl+C to stop.")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh

		fmt.Println("\nShutting down...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
	serverCmd.Flags().IntP("port", "p", 0, "port to listen on (default: 8080 or first available)")
	serverCmd.Flags().StringP("output", "o", "", "default save directory (default: config's general.download_location)")
}

// reconcile polls check-completed/check-pending at 1 Hz, matching the
// queue manager's documented poll cadence (§5 CONCURRENCY & RESOURCE MODEL).
func reconcile(ctx context.Context, mgr *queue.Manager) {
	ticker := time.NewTicker(reconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := mgr.CheckCompleted(ctx); err != nil {
				utils.Debug("check-completed failed: %v", err)
			}
			if _, err := mgr.CheckPending(ctx); err != nil {
				utils.Debug("check-pending failed: %v", err)
			}
		}
	}
}

func newMux(mgr *queue.Manager, defaultSaveDir string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/download", func(w http.ResponseWriter, r *http.Request) {
		handleDownload(w, r, mgr, defaultSaveDir)
	})
	mux.HandleFunc("/list", func(w http.ResponseWriter, r *http.Request) {
		handleList(w, r, mgr)
	})
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		handleStatus(w, r, mgr)
	})
	mux.HandleFunc("/pause", func(w http.ResponseWriter, r *http.Request) {
		handleAction(w, r, mgr, mgr.Pause)
	})
	mux.HandleFunc("/resume", func(w http.ResponseWriter, r *http.Request) {
		handleAction(w, r, mgr, mgr.Resume)
	})
	mux.HandleFunc("/rm", func(w http.ResponseWriter, r *http.Request) {
		handleAction(w, r, mgr, mgr.Cancel)
	})
	return mux
}

func handleDownload(w http.ResponseWriter, r *http.Request, mgr *queue.Manager, defaultSaveDir string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req DownloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if req.URL == "" {
		http.Error(w, "url is required", http.StatusBadRequest)
		return
	}
	if strings.Contains(req.Path, "..") || strings.Contains(req.Filename, "..") {
		http.Error(w, "invalid path", http.StatusBadRequest)
		return
	}
	if strings.ContainsAny(req.Filename, "/\\") {
		http.Error(w, "invalid filename", http.StatusBadRequest)
		return
	}

	saveDir := req.Path
	if saveDir == "" {
		saveDir = defaultSaveDir
	}
	if err := os.MkdirAll(saveDir, 0o755); err != nil {
		http.Error(w, "could not create save directory: "+err.Error(), http.StatusInternalServerError)
		return
	}

	utils.Debug("download request: url=%s path=%s", req.URL, saveDir)

	opts := types.DownloadOptions{
		Filename:    req.Filename,
		Connections: req.Connections,
		Referrer:    req.Referrer,
		Cookies:     req.Cookies,
		UserAgent:   req.UserAgent,
	}

	id, err := mgr.Add(r.Context(), req.URL, saveDir, opts)
	if err != nil {
		writeCoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, downloadResponse{Status: "queued", ID: id})
}

func handleList(w http.ResponseWriter, r *http.Request, mgr *queue.Manager) {
	downloads, err := mgr.ListDownloads()
	if err != nil {
		writeCoreError(w, err)
		return
	}

	items := make([]downloadItem, 0, len(downloads))
	for _, d := range downloads {
		items = append(items, toDownloadItem(mgr, d))
	}
	writeJSON(w, http.StatusOK, items)
}

func handleStatus(w http.ResponseWriter, r *http.Request, mgr *queue.Manager) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}

	downloads, err := mgr.ListDownloads()
	if err != nil {
		writeCoreError(w, err)
		return
	}
	for _, d := range downloads {
		if d.ID == id {
			writeJSON(w, http.StatusOK, toDownloadItem(mgr, d))
			return
		}
	}
	http.Error(w, "download not found", http.StatusNotFound)
}

func toDownloadItem(mgr *queue.Manager, d *types.Download) downloadItem {
	item := downloadItem{
		ID:         d.ID,
		URL:        d.URL,
		Filename:   d.Filename,
		Status:     d.Status.String(),
		Downloaded: d.DownloadedSize,
		Speed:      d.Speed,
	}
	if d.TotalSize != nil {
		item.TotalSize = *d.TotalSize
	}
	if d.ErrorMessage != nil {
		item.Error = *d.ErrorMessage
	}
	if progress, ok := mgr.Progress(d.ID); ok {
		item.Downloaded = progress.Downloaded
		item.Speed = progress.Speed
		if progress.TotalSize > 0 {
			item.TotalSize = progress.TotalSize
		}
		if progress.ETASeconds != nil {
			item.ETASeconds = *progress.ETASeconds
		}
	}
	return item
}

func handleAction(w http.ResponseWriter, r *http.Request, mgr *queue.Manager, action func(context.Context, string) error) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}
	if err := action(r.Context(), id); err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, actionResponse{Status: "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeCoreError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if kind, ok := types.KindOf(err); ok {
		switch kind {
		case types.ErrNotFound:
			status = http.StatusNotFound
		case types.ErrInvalidState, types.ErrURLParse, types.ErrPathTraversal, types.ErrUnsupportedScheme, types.ErrPrivateNetwork:
			status = http.StatusBadRequest
		}
	}
	http.Error(w, err.Error(), status)
}

// saveActivePort writes the active port to the well-known port file for
// browser-extension and CLI discovery.
func saveActivePort(port int) {
	portFile := filepath.Join(config.GetCraneDir(), "port")
	os.WriteFile(portFile, []byte(fmt.Sprintf("%d", port)), 0o644)
	utils.Debug("HTTP server listening on port %d", port)
}

// removeActivePort cleans up the port file on exit.
func removeActivePort() {
	os.Remove(filepath.Join(config.GetCraneDir(), "port"))
}

// toSpeedSchedule adapts the TOML-facing config shape to the bandwidth
// package's runtime type.
func toSpeedSchedule(entries []config.SpeedScheduleEntry) []types.SpeedScheduleEntry {
	out := make([]types.SpeedScheduleEntry, len(entries))
	for i, e := range entries {
		out[i] = types.SpeedScheduleEntry{StartHour: e.StartHour, EndHour: e.EndHour, Limit: e.Limit}
	}
	return out
}

// findAvailablePort tries ports starting from start until one is free.
func findAvailablePort(start int) (int, net.Listener) {
	for port := start; port < start+100; port++ {
		ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err == nil {
			return port, ln
		}
	}
	return 0, nil
}
