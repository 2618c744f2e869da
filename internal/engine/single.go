package engine

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/crane-dl/crane/internal/bandwidth"
	"github.com/crane-dl/crane/internal/engine/events"
	"github.com/crane-dl/crane/internal/engine/handle"
	"github.com/crane-dl/crane/internal/types"
	"github.com/crane-dl/crane/internal/utils"
)

const (
	maxRetries         = 3
	progressIntervalMs = 250
	singleChunkBytes   = 64 * 1024
)

var retryBackoff = [maxRetries]time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}

// incompleteSuffix names the temp file a single-connection fetch streams
// into before renaming it to the final destination on success.
const incompleteSuffix = ".cranedownload"

// downloadSingle streams url to savePath over one connection, retrying
// transient (5xx/network) failures up to maxRetries times with
// exponential backoff. It writes into savePath+incompleteSuffix and
// renames on success so a crash never leaves a half-written file at the
// final path.
func downloadSingle(ctx context.Context, rawURL, savePath string, opts types.DownloadOptions, h *handle.Handle, eventsCh chan<- any, limiter *bandwidth.Limiter) (*types.DownloadResult, error) {
	client := newClient(1)
	tmp := savePath + incompleteSuffix
	start := time.Now()

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			os.Remove(tmp)
			select {
			case <-time.After(retryBackoff[attempt-1]):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		downloaded, totalSize, err := attemptSingle(ctx, client, rawURL, tmp, opts, h, start, eventsCh, limiter)
		if err == nil {
			if dir := filepath.Dir(savePath); dir != "." {
				if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
					return nil, types.WrapError(types.ErrFilesystem, "create destination directory", mkErr)
				}
			}
			if err := os.Rename(tmp, savePath); err != nil {
				return nil, types.WrapError(types.ErrFilesystem, "rename completed download", err)
			}
			_ = totalSize
			return &types.DownloadResult{
				DownloadedBytes: downloaded,
				Elapsed:         time.Since(start),
				FinalPath:       savePath,
			}, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			if !h.IsPaused() {
				os.Remove(tmp)
			}
			return nil, ctx.Err()
		}
		if ce, ok := err.(*types.CoreError); ok && !ce.Retryable() {
			os.Remove(tmp)
			return nil, err
		}
		utils.Debug("engine: single-connection attempt %d failed: %v", attempt, err)
	}
	os.Remove(tmp)
	return nil, lastErr
}

// attemptSingle performs one GET-and-stream attempt, writing the body to
// tmpPath and reporting progress on eventsCh at most every
// progressIntervalMs.
func attemptSingle(ctx context.Context, client *http.Client, rawURL, tmpPath string, opts types.DownloadOptions, h *handle.Handle, start time.Time, eventsCh chan<- any, limiter *bandwidth.Limiter) (int64, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, 0, types.WrapError(types.ErrNetwork, "build request", err)
	}
	applyRequestHeaders(req, opts.UserAgent, opts.Referrer, opts.Cookies, opts.Headers)

	resp, err := client.Do(req)
	if err != nil {
		return 0, 0, types.WrapError(types.ErrNetwork, "send request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, 0, types.NewHTTPError(resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	totalSize := resp.ContentLength
	if totalSize > 0 {
		h.SetTotalSize(totalSize)
	}

	if dir := filepath.Dir(tmpPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, 0, types.WrapError(types.ErrFilesystem, "create temp directory", err)
		}
	}
	file, err := os.Create(tmpPath)
	if err != nil {
		return 0, 0, types.WrapError(types.ErrFilesystem, "create temp file", err)
	}
	defer file.Close()

	var downloaded int64
	buf := make([]byte, singleChunkBytes)
	lastReport := time.Now()

	for {
		if err := acquireBandwidth(ctx, limiter, int64(len(buf))); err != nil {
			return downloaded, totalSize, err
		}

		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := file.Write(buf[:n]); writeErr != nil {
				return downloaded, totalSize, types.WrapError(types.ErrFilesystem, "write temp file", writeErr)
			}
			downloaded += int64(n)
			h.Downloaded.Store(downloaded)

			if time.Since(lastReport) >= progressIntervalMs*time.Millisecond {
				reportProgress(eventsCh, h)
				lastReport = time.Now()
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return downloaded, totalSize, types.WrapError(types.ErrNetwork, "read response body", readErr)
		}
		if ctx.Err() != nil {
			return downloaded, totalSize, ctx.Err()
		}
	}

	reportProgress(eventsCh, h)
	return downloaded, totalSize, nil
}

// reportProgress publishes the handle's current snapshot on eventsCh,
// dropping the message if the channel is full rather than blocking the
// download loop on a slow consumer.
func reportProgress(eventsCh chan<- any, h *handle.Handle) {
	if eventsCh == nil {
		return
	}
	p := h.Progress()
	msg := events.ProgressMsg{
		DownloadID:        p.DownloadID,
		Downloaded:        p.Downloaded,
		Total:             p.TotalSize,
		Speed:             p.Speed,
		ActiveConnections: int(h.ActiveWorkers.Load()),
	}
	select {
	case eventsCh <- msg:
	default:
	}
}
