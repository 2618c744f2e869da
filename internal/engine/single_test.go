package engine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/crane-dl/crane/internal/engine/handle"
	"github.com/crane-dl/crane/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloadSingle_BasicDownload(t *testing.T) {
	body := []byte("hello, this is the file body")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	defer srv.Close()

	dir := t.TempDir()
	savePath := filepath.Join(dir, "out.txt")

	h := handle.New("dl-1", 0, func() {})
	result, err := downloadSingle(context.Background(), srv.URL, savePath, types.DownloadOptions{}, h, nil, nil)
	require.NoError(t, err)
	assert.EqualValues(t, len(body), result.DownloadedBytes)

	got, err := os.ReadFile(savePath)
	require.NoError(t, err)
	assert.Equal(t, body, got)

	_, statErr := os.Stat(savePath + incompleteSuffix)
	assert.True(t, os.IsNotExist(statErr), "temp file should be renamed away")
}

func TestDownloadSingle_HTTPErrorNotRetried(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	dir := t.TempDir()
	savePath := filepath.Join(dir, "out.txt")

	h := handle.New("dl-1", 0, func() {})
	_, err := downloadSingle(context.Background(), srv.URL, savePath, types.DownloadOptions{}, h, nil, nil)
	require.Error(t, err)
	kind, ok := types.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrHTTP, kind)
	assert.EqualValues(t, 1, hits.Load())
}

func TestDownloadSingle_RetriesServerErrorThenSucceeds(t *testing.T) {
	var hits atomic.Int64
	body := []byte("recovered body")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write(body)
	}))
	defer srv.Close()

	origBackoff := retryBackoff
	retryBackoff = [maxRetries]time.Duration{time.Millisecond, time.Millisecond, time.Millisecond}
	defer func() { retryBackoff = origBackoff }()

	dir := t.TempDir()
	savePath := filepath.Join(dir, "out.txt")

	h := handle.New("dl-1", 0, func() {})
	result, err := downloadSingle(context.Background(), srv.URL, savePath, types.DownloadOptions{}, h, nil, nil)
	require.NoError(t, err)
	assert.EqualValues(t, len(body), result.DownloadedBytes)
	assert.GreaterOrEqual(t, hits.Load(), int64(2))
}

func TestDownloadSingle_CustomHeadersApplied(t *testing.T) {
	var gotUA, gotReferer, gotCookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotReferer = r.Header.Get("Referer")
		gotCookie = r.Header.Get("Cookie")
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	savePath := filepath.Join(dir, "out.txt")

	h := handle.New("dl-1", 0, func() {})
	opts := types.DownloadOptions{UserAgent: "TestAgent/1.0", Referrer: "https://example.com", Cookies: "session=abc"}
	_, err := downloadSingle(context.Background(), srv.URL, savePath, opts, h, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "TestAgent/1.0", gotUA)
	assert.Equal(t, "https://example.com", gotReferer)
	assert.Equal(t, "session=abc", gotCookie)
}
