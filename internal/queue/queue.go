// Package queue manages download concurrency: starting downloads
// immediately while there is capacity, queuing the rest, and promoting
// queued downloads when a slot frees up. It is the single place that
// bridges the in-process engine to the persisted store.
package queue

import (
	"context"
	"net/url"
	"path/filepath"
	"sync"
	"time"

	"github.com/crane-dl/crane/internal/analyzer"
	"github.com/crane-dl/crane/internal/engine"
	"github.com/crane-dl/crane/internal/engine/handle"
	"github.com/crane-dl/crane/internal/store"
	"github.com/crane-dl/crane/internal/types"
	"github.com/google/uuid"
)

const defaultConnectionsPerDownload = 8

// Manager owns the set of in-flight downloads and decides, on every
// Add/Pause/Resume/Cancel/CheckCompleted call, whether a download runs
// now or waits its turn.
type Manager struct {
	store         *store.Store
	engine        *engine.Engine
	maxConcurrent int
	events        chan<- any

	mu     sync.Mutex
	active map[string]*handle.Handle
}

// New returns a Manager backed by st, running downloads through eng,
// allowing at most maxConcurrent active at a time. Lifecycle and
// progress events for every download it starts are published on
// eventsCh (may be nil to discard them).
func New(st *store.Store, eng *engine.Engine, maxConcurrent int, eventsCh chan<- any) *Manager {
	return &Manager{
		store:         st,
		engine:        eng,
		maxConcurrent: maxConcurrent,
		events:        eventsCh,
		active:        make(map[string]*handle.Handle),
	}
}

// Add analyzes rawURL, persists a new Download row, and either starts it
// immediately (capacity available) or queues it, returning the new
// download's ID.
func (m *Manager) Add(ctx context.Context, rawURL, saveDir string, opts types.DownloadOptions) (string, error) {
	analysis, err := analyzer.AnalyzeURL(ctx, rawURL)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	filename := opts.Filename
	if filename == "" {
		filename = analysis.Filename
	}
	savePath := filepath.Join(saveDir, filename)

	category := opts.Category
	if category == "" {
		category = analysis.Category
	}

	connections := opts.Connections
	if connections == 0 {
		connections = defaultConnectionsPerDownload
	}

	var sourceDomain *string
	if u, err := url.Parse(rawURL); err == nil && u.Hostname() != "" {
		host := u.Hostname()
		sourceDomain = &host
	}

	dl := &types.Download{
		ID:           id,
		URL:          rawURL,
		Filename:     filename,
		SavePath:     savePath,
		TotalSize:    analysis.TotalSize,
		Status:       types.StatusPending,
		MimeType:     analysis.MimeType,
		Category:     category,
		Resumable:    analysis.Resumable,
		Connections:  connections,
		SourceDomain: sourceDomain,
		Referrer:     optionalString(opts.Referrer),
		Cookies:      optionalString(opts.Cookies),
		UserAgent:    optionalString(opts.UserAgent),
		CreatedAt:    time.Now().UTC(),
	}
	if err := m.store.InsertDownload(dl); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.active) < m.maxConcurrent {
		if err := m.startLocked(ctx, dl, opts); err != nil {
			return "", err
		}
		return id, nil
	}

	if err := m.enqueueLocked(id); err != nil {
		return "", err
	}
	return id, nil
}

// Pause stops an active download's engine handle, marks it paused in
// the store, and promotes the next queued download if one is waiting.
func (m *Manager) Pause(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.active[id]
	if !ok {
		return types.NewError(types.ErrInvalidState, "download is not active")
	}
	delete(m.active, id)
	h.Pause()

	if err := m.store.UpdateDownloadStatus(id, types.StatusPaused, nil, nil); err != nil {
		return err
	}
	return m.tryStartNextLocked(ctx)
}

// Resume restarts a paused download immediately if there is capacity,
// or re-queues it otherwise.
func (m *Manager) Resume(ctx context.Context, id string) error {
	dl, err := m.store.GetDownload(id)
	if err != nil {
		return err
	}
	if dl.Status != types.StatusPaused {
		return types.NewError(types.ErrInvalidState, "download is not paused")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	opts := optionsFromDownload(dl)
	if len(m.active) < m.maxConcurrent {
		return m.startLocked(ctx, dl, opts)
	}
	return m.enqueueLocked(id)
}

// Cancel stops an active download (if any) and marks it failed with a
// "cancelled" error message, then promotes the next queued download.
func (m *Manager) Cancel(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if h, ok := m.active[id]; ok {
		delete(m.active, id)
		h.Cancel()
	}

	if err := m.store.UpdateQueuePosition(id, nil); err != nil {
		return err
	}
	cancelled := "cancelled"
	if err := m.store.UpdateDownloadStatus(id, types.StatusFailed, &cancelled, nil); err != nil {
		return err
	}
	return m.tryStartNextLocked(ctx)
}

// ActiveCount reports how many downloads are currently running.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

// ListDownloads returns every persisted download, most recent first.
func (m *Manager) ListDownloads() ([]*types.Download, error) {
	return m.store.ListDownloads()
}

// Progress returns the live progress snapshot for an active download,
// or ok=false if the download isn't currently running in this process.
func (m *Manager) Progress(id string) (types.DownloadProgress, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.active[id]
	if !ok {
		return types.DownloadProgress{}, false
	}
	return h.Progress(), true
}

// CheckCompleted scans active handles for ones that finished (success or
// error) since the last call, updates their store rows, frees their
// slots, and promotes queued downloads to fill them. Returns the IDs
// that finished this pass.
func (m *Manager) CheckCompleted(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var finished []string
	for id, h := range m.active {
		if h.IsFinished() {
			finished = append(finished, id)
		}
	}

	for _, id := range finished {
		h := m.active[id]
		delete(m.active, id)

		if err := h.Error(); err != nil {
			msg := err.Error()
			if uerr := m.store.UpdateDownloadStatus(id, types.StatusFailed, &msg, nil); uerr != nil {
				return finished, uerr
			}
			continue
		}
		if err := m.store.UpdateDownloadStatus(id, types.StatusCompleted, nil, nil); err != nil {
			return finished, err
		}
	}

	if len(finished) > 0 {
		if err := m.tryStartNextLocked(ctx); err != nil {
			return finished, err
		}
	}
	return finished, nil
}

// CheckPending picks up downloads inserted directly into the store by
// something other than Add (e.g. a browser-extension bridge writing
// StatusPending rows) and starts or queues each one. Returns the IDs
// that were started immediately.
func (m *Manager) CheckPending(ctx context.Context) ([]string, error) {
	pending, err := m.store.GetDownloadsByStatus(types.StatusPending)
	if err != nil {
		return nil, err
	}

	var started []string
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, dl := range pending {
		if _, ok := m.active[dl.ID]; ok {
			continue
		}

		if len(m.active) < m.maxConcurrent {
			if err := m.startLocked(ctx, dl, optionsFromDownload(dl)); err != nil {
				return started, err
			}
			started = append(started, dl.ID)
		} else if err := m.enqueueLocked(dl.ID); err != nil {
			return started, err
		}
	}
	return started, nil
}

// TryStartNext promotes the next queued download into the active set if
// there is capacity. Exported so callers (e.g. a periodic reconciler)
// can invoke it directly instead of waiting for Pause/Cancel/
// CheckCompleted to trigger it as a side effect.
func (m *Manager) TryStartNext(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tryStartNextLocked(ctx)
}

func (m *Manager) tryStartNextLocked(ctx context.Context) error {
	if len(m.active) >= m.maxConcurrent {
		return nil
	}

	next, err := m.store.GetNextQueued()
	if err != nil {
		return err
	}
	if next == nil {
		return nil
	}
	if err := m.store.UpdateQueuePosition(next.ID, nil); err != nil {
		return err
	}
	return m.startLocked(ctx, next, optionsFromDownload(next))
}

func (m *Manager) enqueueLocked(id string) error {
	maxPos, err := m.store.GetMaxQueuePosition()
	if err != nil {
		return err
	}
	var next int64 = 1
	if maxPos != nil {
		next = *maxPos + 1
	}
	if err := m.store.UpdateQueuePosition(id, &next); err != nil {
		return err
	}
	return m.store.UpdateDownloadStatus(id, types.StatusQueued, nil, nil)
}

// startLocked launches dl through the engine and registers its handle.
// Callers must hold m.mu.
func (m *Manager) startLocked(ctx context.Context, dl *types.Download, opts types.DownloadOptions) error {
	analysis := &types.UrlAnalysis{
		URL:       dl.URL,
		Filename:  dl.Filename,
		TotalSize: dl.TotalSize,
		MimeType:  dl.MimeType,
		Resumable: dl.Resumable,
		Category:  dl.Category,
	}

	h := m.engine.Start(ctx, dl.ID, dl.URL, dl.SavePath, analysis, opts, m.events)
	m.active[dl.ID] = h

	return m.store.UpdateDownloadStatus(dl.ID, types.StatusDownloading, nil, nil)
}

func optionsFromDownload(dl *types.Download) types.DownloadOptions {
	return types.DownloadOptions{
		Filename:    dl.Filename,
		Connections: dl.Connections,
		Category:    dl.Category,
		Referrer:    derefString(dl.Referrer),
		Cookies:     derefString(dl.Cookies),
		UserAgent:   derefString(dl.UserAgent),
	}
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
