package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	debugDir  string
	debugMu   sync.Mutex
	debugOnce sync.Once
	debugFile *os.File
)

// ConfigureDebug sets the directory debug logs are written to. The
// daemon calls it at startup with config.GetLogsDir(); tests point it at
// a temporary directory.
func ConfigureDebug(dir string) {
	debugMu.Lock()
	defer debugMu.Unlock()
	debugDir = dir
	if debugFile != nil {
		debugFile.Close()
		debugFile = nil
	}
	debugOnce = sync.Once{}
}

// Debug appends a formatted, timestamped line to the current session's
// debug log file, creating the file (named debug-YYYYMMDD-HHMMSS.log) on
// first call. Failures to open or write the log are swallowed: debug
// logging must never be allowed to break a download.
func Debug(format string, args ...interface{}) {
	debugOnce.Do(openDebugFile)

	debugMu.Lock()
	f := debugFile
	debugMu.Unlock()
	if f == nil {
		return
	}

	line := fmt.Sprintf(format, args...)
	fmt.Fprintf(f, "[%s] %s\n", time.Now().Format(time.RFC3339), line)
}

func openDebugFile() {
	debugMu.Lock()
	defer debugMu.Unlock()

	dir := debugDir
	if dir == "" {
		dir = defaultLogsDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return
	}

	name := fmt.Sprintf("debug-%s.log", time.Now().Format("20060102-150405"))
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return
	}
	debugFile = f
}

// CleanupLogs deletes the oldest debug log files beyond keep, by
// filename timestamp ordering (newest kept).
func CleanupLogs(keep int) {
	dir := debugDir
	if dir == "" {
		dir = defaultLogsDir()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	var logs []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, "debug-") && strings.HasSuffix(name, ".log") {
			logs = append(logs, name)
		}
	}

	if len(logs) <= keep {
		return
	}

	sort.Strings(logs) // timestamp-embedded names sort chronologically
	toDelete := logs[:len(logs)-keep]
	for _, name := range toDelete {
		os.Remove(filepath.Join(dir, name))
	}
}

// defaultLogsDir avoids importing internal/config directly to keep this
// leaf package free of the config package's own dependency surface;
// callers that care about the real logs directory call ConfigureDebug
// with config.GetLogsDir() during startup.
func defaultLogsDir() string {
	if dir := os.Getenv("CRANE_HOME"); dir != "" {
		return filepath.Join(dir, "logs")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".crane", "logs")
	}
	return filepath.Join(home, ".crane", "logs")
}
