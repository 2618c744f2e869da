// Package events defines the message types the engine publishes on the
// events channel passed to queue.New (and from there to engine.Start).
// The daemon passes a nil channel; its CLI and HTTP endpoints read
// progress from the queue manager instead.
package events

import (
	"time"

	"github.com/crane-dl/crane/internal/engine/handle"
)

// ProgressMsg represents a progress update from the downloader.
type ProgressMsg struct {
	DownloadID        string
	Downloaded        int64
	Total             int64
	Speed             float64 // bytes per second
	ActiveConnections int
}

// DownloadCompleteMsg signals that the download finished successfully.
// DetectedMimeType is filled in from a magic-byte sniff of the finished
// file when the server's declared Content-Type was missing or generic;
// nil when sniffing found nothing more specific.
type DownloadCompleteMsg struct {
	DownloadID       string
	Filename         string
	Elapsed          time.Duration
	Total            int64
	DetectedMimeType *string
}

// DownloadErrorMsg signals that an error occurred.
type DownloadErrorMsg struct {
	DownloadID string
	Err        error
}

// DownloadStartedMsg is sent when a download actually starts (after the
// analyser resolves metadata).
type DownloadStartedMsg struct {
	DownloadID string
	URL        string
	Filename   string
	Total      int64
	DestPath   string // full path to the destination file
	Handle     *handle.Handle
}

// DownloadPausedMsg signals a download was paused.
type DownloadPausedMsg struct {
	DownloadID string
	Downloaded int64
}

// DownloadResumedMsg signals a paused download resumed.
type DownloadResumedMsg struct {
	DownloadID string
}

// DownloadRequestMsg describes a request to start a download (e.g. from
// the browser-extension bridge). Nothing in this module publishes or
// consumes it; the queue's check-pending pass reads pending store rows.
type DownloadRequestMsg struct {
	ID       string
	URL      string
	Filename string
	Path     string
}
