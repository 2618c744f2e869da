package engine

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/crane-dl/crane/internal/bandwidth"
	"github.com/crane-dl/crane/internal/engine/handle"
	"github.com/crane-dl/crane/internal/types"
	"github.com/crane-dl/crane/internal/utils"
)

// defaultConnections is used when the caller leaves
// DownloadOptions.Connections unset (zero).
const defaultConnections = 8

// multiEligible reports whether a multi-connection download can be
// attempted: the server must support byte ranges, the total size must
// be known, and the caller must have asked for more than one connection.
func multiEligible(analysis *types.UrlAnalysis, requestedConnections int) bool {
	return analysis.Resumable && analysis.TotalSize != nil && requestedConnections > 1
}

// downloadMulti splits rawURL's body into byte-range chunks, fetches
// each over its own connection in parallel, and merges the resulting
// chunk files into savePath in order. Any single chunk's terminal
// failure (after its own retries) cancels every other worker immediately
// and aborts the whole download; the scratch directory is removed
// unless the caller paused (as opposed to cancelled) the download. A
// resumed download does not reuse those chunk files: every chunk is
// recreated and fetched from its range start.
func downloadMulti(ctx context.Context, rawURL, savePath string, totalSize int64, opts types.DownloadOptions, h *handle.Handle, eventsCh chan<- any, limiter *bandwidth.Limiter) (*types.DownloadResult, error) {
	chunks := PlanChunks(totalSize, requestedConnectionsOrDefault(opts.Connections))
	tempDir := tempDirFor(savePath)
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, types.WrapError(types.ErrFilesystem, "create chunk scratch directory", err)
	}

	attemptCtx, cancelAttempt := context.WithCancel(ctx)
	defer cancelAttempt()

	client := newClient(len(chunks))
	counters := make([]atomic.Int64, len(chunks))
	start := time.Now()

	stopProgress := make(chan struct{})
	var progressWg sync.WaitGroup
	progressWg.Add(1)
	go func() {
		defer progressWg.Done()
		reportMultiProgress(stopProgress, chunks, &counters, totalSize, h, eventsCh)
	}()

	var wg sync.WaitGroup
	errs := make([]error, len(chunks))
	for i, chunk := range chunks {
		wg.Add(1)
		h.ActiveWorkers.Add(1)
		go func(i int, chunk types.ConnectionInfo) {
			defer wg.Done()
			defer h.ActiveWorkers.Add(-1)
			errs[i] = downloadChunk(attemptCtx, client, rawURL, chunk, tempDir, opts, &counters[i], limiter)
			if errs[i] != nil {
				cancelAttempt()
			}
		}(i, chunk)
	}
	wg.Wait()

	close(stopProgress)
	progressWg.Wait()

	var firstErr error
	for _, err := range errs {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		if !(ctx.Err() != nil && h.IsPaused()) {
			os.RemoveAll(tempDir)
		}
		return nil, firstErr
	}

	merged, err := mergeChunks(tempDir, savePath, chunks)
	if err != nil {
		os.RemoveAll(tempDir)
		return nil, err
	}
	if merged != totalSize {
		os.Remove(savePath)
		os.RemoveAll(tempDir)
		return nil, types.NewError(types.ErrMergeMismatch, fmt.Sprintf("expected %d bytes, got %d", totalSize, merged))
	}
	os.RemoveAll(tempDir)

	h.Downloaded.Store(merged)
	reportProgress(eventsCh, h)

	return &types.DownloadResult{
		DownloadedBytes: merged,
		Elapsed:         time.Since(start),
		FinalPath:       savePath,
	}, nil
}

func requestedConnectionsOrDefault(n int) int {
	if n > 0 {
		return n
	}
	return defaultConnections
}

// downloadChunk fetches one byte range into its scratch file, retrying
// transient failures up to maxRetries times with exponential backoff
// (the retry restarts the whole chunk: partial bytes from a failed
// attempt are discarded, matching the fixed byte-range contract).
func downloadChunk(ctx context.Context, client *http.Client, rawURL string, chunk types.ConnectionInfo, tempDir string, opts types.DownloadOptions, counter *atomic.Int64, limiter *bandwidth.Limiter) error {
	path := chunkPath(tempDir, chunk.ConnectionNum)

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			os.Remove(path)
			counter.Store(0)
			select {
			case <-time.After(retryBackoff[attempt-1]):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := attemptChunk(ctx, client, rawURL, chunk, path, opts, counter, limiter)
		if err == nil {
			return nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if ce, ok := err.(*types.CoreError); ok && !ce.Retryable() {
			return err
		}
		utils.Debug("engine: chunk %d attempt %d failed: %v", chunk.ConnectionNum, attempt, err)
	}
	return lastErr
}

func attemptChunk(ctx context.Context, client *http.Client, rawURL string, chunk types.ConnectionInfo, path string, opts types.DownloadOptions, counter *atomic.Int64, limiter *bandwidth.Limiter) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return types.WrapError(types.ErrNetwork, "build request", err)
	}
	applyRequestHeaders(req, opts.UserAgent, opts.Referrer, opts.Cookies, opts.Headers)
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", chunk.RangeStart, chunk.RangeEnd))

	resp, err := client.Do(req)
	if err != nil {
		return types.WrapError(types.ErrNetwork, "send request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return types.NewHTTPError(resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	file, err := os.Create(path)
	if err != nil {
		return types.WrapError(types.ErrFilesystem, "create chunk file", err)
	}
	defer file.Close()

	buf := make([]byte, singleChunkBytes)
	var downloaded int64
	for {
		if err := acquireBandwidth(ctx, limiter, int64(len(buf))); err != nil {
			return err
		}

		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := file.Write(buf[:n]); writeErr != nil {
				return types.WrapError(types.ErrFilesystem, "write chunk file", writeErr)
			}
			downloaded += int64(n)
			counter.Store(downloaded)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return types.WrapError(types.ErrNetwork, "read response body", readErr)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}

// reportMultiProgress ticks every progressIntervalMs, aggregating the
// per-chunk counters into a single handle snapshot, until stop closes.
func reportMultiProgress(stop <-chan struct{}, chunks []types.ConnectionInfo, counters *[]atomic.Int64, totalSize int64, h *handle.Handle, eventsCh chan<- any) {
	ticker := time.NewTicker(progressIntervalMs * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			conns := make([]types.ConnectionProgress, len(chunks))
			var total int64
			for i, c := range chunks {
				d := (*counters)[i].Load()
				total += d
				conns[i] = types.ConnectionProgress{
					ConnectionNum: c.ConnectionNum,
					Downloaded:    d,
					RangeStart:    c.RangeStart,
					RangeEnd:      c.RangeEnd,
				}
			}
			h.Downloaded.Store(total)
			h.SetConnectionProgress(conns)
			reportProgress(eventsCh, h)
		}
	}
}

// mergeChunks concatenates each chunk file, in connection order, into
// savePath, returning the total bytes written.
func mergeChunks(tempDir, savePath string, chunks []types.ConnectionInfo) (int64, error) {
	out, err := os.Create(savePath)
	if err != nil {
		return 0, types.WrapError(types.ErrFilesystem, "create destination file", err)
	}
	defer out.Close()

	var total int64
	buf := make([]byte, 64*1024)
	for _, c := range chunks {
		path := chunkPath(tempDir, c.ConnectionNum)
		in, err := os.Open(path)
		if err != nil {
			return total, types.WrapError(types.ErrFilesystem, "open chunk file", err)
		}
		n, err := io.CopyBuffer(out, in, buf)
		in.Close()
		total += n
		if err != nil {
			return total, types.WrapError(types.ErrFilesystem, "merge chunk file", err)
		}
	}
	return total, nil
}
