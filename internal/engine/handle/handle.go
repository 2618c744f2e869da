// Package handle implements the live, in-process counterpart of a
// running download: the atomic counters a fetcher writes to and the
// small struct the queue manager holds to query/pause/cancel it,
// matching the "Handle" concept of the engine design.
package handle

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/crane-dl/crane/internal/types"
)

// Handle is returned by the engine and held by the queue for the
// lifetime of an active download. It exposes finished/error queries,
// pause/cancel, and a progress snapshot synthesised from live atomic
// counters — never by touching the store directly.
type Handle struct {
	ID         string
	Downloaded atomic.Int64
	TotalSize  int64

	ActiveWorkers atomic.Int32
	Done          atomic.Bool
	Paused        atomic.Bool
	errVal        atomic.Pointer[error]

	StartTime time.Time
	CancelFn  context.CancelFunc

	// SessionStartBytes is how many bytes were already downloaded when
	// the current in-process session started (e.g. after a resume).
	SessionStartBytes int64

	mu          sync.Mutex // protects TotalSize, StartTime, SessionStartBytes, connProgress
	connProgress []types.ConnectionProgress
}

// New creates a Handle for a download of known or unknown (0) total size.
func New(id string, totalSize int64, cancel context.CancelFunc) *Handle {
	return &Handle{
		ID:        id,
		TotalSize: totalSize,
		StartTime: time.Now(),
		CancelFn:  cancel,
	}
}

// SetTotalSize updates the total size once it becomes known (e.g. after
// the analyser resolves Content-Length) and resets the session clock.
func (h *Handle) SetTotalSize(size int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.TotalSize = size
	h.SessionStartBytes = h.Downloaded.Load()
	h.StartTime = time.Now()
}

// SyncSessionStart resets the speed-measurement baseline to the current
// downloaded count, used when a paused download resumes.
func (h *Handle) SyncSessionStart() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.SessionStartBytes = h.Downloaded.Load()
	h.StartTime = time.Now()
}

// SetConnectionProgress records the latest per-chunk snapshot for the
// next Progress() call.
func (h *Handle) SetConnectionProgress(conns []types.ConnectionProgress) {
	h.mu.Lock()
	h.connProgress = conns
	h.mu.Unlock()
}

// SetError records the terminal error and marks the handle finished.
func (h *Handle) SetError(err error) {
	h.errVal.Store(&err)
	h.Done.Store(true)
}

// Error returns the terminal error, or nil if none was recorded.
func (h *Handle) Error() error {
	if e := h.errVal.Load(); e != nil {
		return *e
	}
	return nil
}

// Finish marks the handle as finished without an error (success path).
func (h *Handle) Finish() {
	h.Done.Store(true)
}

// IsFinished reports whether the download has reached a terminal state
// (success or failure) in this process.
func (h *Handle) IsFinished() bool {
	return h.Done.Load()
}

// Pause signals cancellation cooperatively. Per the current design,
// pause is equivalent to cancel-then-restart: chunk files are not
// persisted as a resume checkpoint (see design notes on chunk-based
// resume as a future upgrade).
func (h *Handle) Pause() {
	h.Paused.Store(true)
	if h.CancelFn != nil {
		h.CancelFn()
	}
}

// Cancel signals cancellation without marking the handle paused.
func (h *Handle) Cancel() {
	if h.CancelFn != nil {
		h.CancelFn()
	}
}

// IsPaused reports whether Pause (as opposed to Cancel) was the reason
// this handle's context was cancelled.
func (h *Handle) IsPaused() bool {
	return h.Paused.Load()
}

// Progress synthesises a DownloadProgress snapshot from the live atomic
// counters: downloaded, total size, average speed since the session
// start, and ETA.
func (h *Handle) Progress() types.DownloadProgress {
	downloaded := h.Downloaded.Load()

	h.mu.Lock()
	total := h.TotalSize
	elapsed := time.Since(h.StartTime).Seconds()
	sessionStart := h.SessionStartBytes
	conns := append([]types.ConnectionProgress(nil), h.connProgress...)
	h.mu.Unlock()

	var speed float64
	if elapsed > 0 {
		speed = float64(downloaded-sessionStart) / elapsed
	}

	var eta *int64
	if speed > 0 && total > 0 {
		remaining := total - downloaded
		if remaining < 0 {
			remaining = 0
		}
		secs := int64(float64(remaining) / speed)
		eta = &secs
	}

	return types.DownloadProgress{
		DownloadID:  h.ID,
		Downloaded:  downloaded,
		TotalSize:   total,
		Speed:       speed,
		ETASeconds:  eta,
		Connections: conns,
	}
}
