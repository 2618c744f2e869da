package queue

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/crane-dl/crane/internal/engine"
	"github.com/crane-dl/crane/internal/store"
	"github.com/crane-dl/crane/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, maxConcurrent int) (*Manager, *store.Store) {
	t.Helper()
	st, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return New(st, engine.New(nil), maxConcurrent, nil), st
}

func waitFinished(t *testing.T, m *Manager, id string, timeout time.Duration) *types.Download {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if _, err := m.CheckCompleted(context.Background()); err != nil {
			t.Fatalf("CheckCompleted: %v", err)
		}
		dl, err := m.store.GetDownload(id)
		require.NoError(t, err)
		if dl.Status == types.StatusCompleted || dl.Status == types.StatusFailed {
			return dl
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("download %s did not finish within %s", id, timeout)
	return nil
}

func TestManager_AddStartsImmediatelyWhenCapacityAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("file contents"))
	}))
	defer srv.Close()

	m, _ := newTestManager(t, 2)
	dir := t.TempDir()

	id, err := m.Add(context.Background(), srv.URL, dir, types.DownloadOptions{Filename: "out.txt"})
	require.NoError(t, err)
	assert.Equal(t, 1, m.ActiveCount())

	dl := waitFinished(t, m, id, 2*time.Second)
	assert.Equal(t, types.StatusCompleted, dl.Status)
	assert.Equal(t, filepath.Join(dir, "out.txt"), dl.SavePath)
}

func TestManager_AddQueuesBeyondCapacityThenPromotes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("x"))
	}))
	defer srv.Close()

	m, _ := newTestManager(t, 1)
	dir := t.TempDir()

	first, err := m.Add(context.Background(), srv.URL, dir, types.DownloadOptions{Filename: "first.txt"})
	require.NoError(t, err)

	second, err := m.Add(context.Background(), srv.URL, dir, types.DownloadOptions{Filename: "second.txt"})
	require.NoError(t, err)

	secondRow, err := m.store.GetDownload(second)
	require.NoError(t, err)
	assert.Equal(t, types.StatusQueued, secondRow.Status)
	require.NotNil(t, secondRow.QueuePosition)

	waitFinished(t, m, first, 2*time.Second)
	waitFinished(t, m, second, 2*time.Second)

	secondRow, err = m.store.GetDownload(second)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, secondRow.Status)
}

func TestManager_CancelQueuedMarksFailedWithoutDisturbingActive(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
		w.Write([]byte("x"))
	}))
	defer srv.Close()

	m, _ := newTestManager(t, 1)
	dir := t.TempDir()

	first, err := m.Add(context.Background(), srv.URL, dir, types.DownloadOptions{Filename: "first.txt"})
	require.NoError(t, err)

	second, err := m.Add(context.Background(), srv.URL, dir, types.DownloadOptions{Filename: "second.txt"})
	require.NoError(t, err)

	require.NoError(t, m.Cancel(context.Background(), second))

	secondRow, err := m.store.GetDownload(second)
	require.NoError(t, err)
	assert.Equal(t, types.StatusFailed, secondRow.Status)

	close(block)
	waitFinished(t, m, first, 2*time.Second)
}

func TestManager_PauseFreesSlotForQueuedDownload(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
		w.Write([]byte("x"))
	}))
	defer srv.Close()

	immediate := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("quick"))
	}))
	defer immediate.Close()

	m, _ := newTestManager(t, 1)
	dir := t.TempDir()

	first, err := m.Add(context.Background(), srv.URL, dir, types.DownloadOptions{Filename: "first.txt"})
	require.NoError(t, err)

	second, err := m.Add(context.Background(), immediate.URL, dir, types.DownloadOptions{Filename: "second.txt"})
	require.NoError(t, err)

	require.NoError(t, m.Pause(context.Background(), first))

	firstRow, err := m.store.GetDownload(first)
	require.NoError(t, err)
	assert.Equal(t, types.StatusPaused, firstRow.Status)

	waitFinished(t, m, second, 2*time.Second)
	close(block)
}

func TestManager_CheckPendingPicksUpExternallyInsertedRows(t *testing.T) {
	m, st := newTestManager(t, 1)
	dir := t.TempDir()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("external"))
	}))
	defer srv.Close()

	dl := &types.Download{
		ID:          "external-1",
		URL:         srv.URL,
		Filename:    "external.txt",
		SavePath:    filepath.Join(dir, "external.txt"),
		Status:      types.StatusPending,
		Category:    types.CategoryOther,
		Connections: 1,
	}
	require.NoError(t, st.InsertDownload(dl))

	started, err := m.CheckPending(context.Background())
	require.NoError(t, err)
	assert.Contains(t, started, "external-1")

	waitFinished(t, m, "external-1", 2*time.Second)
}

func TestManager_ListDownloadsReturnsPersistedRows(t *testing.T) {
	m, _ := newTestManager(t, 1)
	dir := t.TempDir()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("x"))
	}))
	defer srv.Close()

	id, err := m.Add(context.Background(), srv.URL, dir, types.DownloadOptions{Filename: "out.txt"})
	require.NoError(t, err)

	list, err := m.ListDownloads()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)
}
