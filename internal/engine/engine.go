// Package engine runs a single download to completion: planning byte
// ranges across connections when the server supports it, falling back
// to one connection otherwise, and publishing progress and lifecycle
// events as it goes. It never touches the store directly — the queue
// manager polls the returned handles and persists status transitions.
package engine

import (
	"context"

	"github.com/crane-dl/crane/internal/bandwidth"
	"github.com/crane-dl/crane/internal/engine/events"
	"github.com/crane-dl/crane/internal/engine/handle"
	"github.com/crane-dl/crane/internal/mimecat"
	"github.com/crane-dl/crane/internal/types"
)

// Engine runs downloads. Per-download state lives on the *handle.Handle
// returned by Start; the only shared state is the bandwidth limiter
// every download's workers acquire tokens from.
type Engine struct {
	limiter *bandwidth.Limiter
}

// New returns a ready-to-use Engine. limiter may be nil, meaning
// downloads run unthrottled.
func New(limiter *bandwidth.Limiter) *Engine { return &Engine{limiter: limiter} }

// acquireBandwidth blocks until n bytes worth of tokens are available,
// or returns immediately if limiter is nil (unthrottled).
func acquireBandwidth(ctx context.Context, limiter *bandwidth.Limiter, n int64) error {
	if limiter == nil {
		return nil
	}
	return limiter.Acquire(ctx, n)
}

// Start launches a download in a background goroutine and returns
// immediately with a Handle the caller can poll, pause, or cancel. The
// Handle is also attached to the DownloadStartedMsg published on
// eventsCh so a listener can correlate future progress/lifecycle
// messages without waiting for Start to return.
func (e *Engine) Start(ctx context.Context, id, rawURL, savePath string, analysis *types.UrlAnalysis, opts types.DownloadOptions, eventsCh chan<- any) *handle.Handle {
	downloadCtx, cancel := context.WithCancel(ctx)

	var totalSize int64
	if analysis.TotalSize != nil {
		totalSize = *analysis.TotalSize
	}

	h := handle.New(id, totalSize, cancel)

	publish(eventsCh, events.DownloadStartedMsg{
		DownloadID: id,
		URL:        rawURL,
		Filename:   analysis.Filename,
		Total:      totalSize,
		DestPath:   savePath,
		Handle:     h,
	})

	go e.run(downloadCtx, id, rawURL, savePath, analysis, opts, h, eventsCh)

	return h
}

func (e *Engine) run(ctx context.Context, id, rawURL, savePath string, analysis *types.UrlAnalysis, opts types.DownloadOptions, h *handle.Handle, eventsCh chan<- any) {
	var result *types.DownloadResult
	var err error

	var totalSize int64
	if analysis.TotalSize != nil {
		totalSize = *analysis.TotalSize
	}

	if multiEligible(analysis, requestedConnectionsOrDefault(opts.Connections)) {
		result, err = downloadMulti(ctx, rawURL, savePath, totalSize, opts, h, eventsCh, e.limiter)
	} else {
		result, err = downloadSingle(ctx, rawURL, savePath, opts, h, eventsCh, e.limiter)
	}

	if err != nil {
		if h.IsPaused() {
			publish(eventsCh, events.DownloadPausedMsg{DownloadID: id, Downloaded: h.Downloaded.Load()})
			return
		}
		h.SetError(err)
		publish(eventsCh, events.DownloadErrorMsg{DownloadID: id, Err: err})
		return
	}

	var detected *string
	if analysis.MimeType == nil || mimecat.CategorizeMime(*analysis.MimeType) == types.CategoryOther {
		if mime := sniffMimeType(result.FinalPath); mime != "" && mimecat.CategorizeMime(mime) != types.CategoryOther {
			detected = &mime
		}
	}

	h.Finish()
	publish(eventsCh, events.DownloadCompleteMsg{
		DownloadID:       id,
		Filename:         savePath,
		Elapsed:          result.Elapsed,
		Total:            result.DownloadedBytes,
		DetectedMimeType: detected,
	})
}

func publish(eventsCh chan<- any, msg any) {
	if eventsCh == nil {
		return
	}
	eventsCh <- msg
}
