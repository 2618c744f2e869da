package protocol

import (
	"context"
	"testing"

	"github.com/crane-dl/crane/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerForURL_DispatchesByScheme(t *testing.T) {
	h, err := HandlerForURL("https://example.com/file.zip")
	require.NoError(t, err)
	assert.IsType(t, HTTPHandler{}, h)
	assert.True(t, h.SupportsMultiConnection())

	h, err = HandlerForURL("ftp://example.com/file.zip")
	require.NoError(t, err)
	assert.IsType(t, FTPHandler{}, h)
	assert.False(t, h.SupportsMultiConnection())
}

func TestHandlerForURL_RejectsUnsupportedScheme(t *testing.T) {
	_, err := HandlerForURL("magnet:?xt=urn:btih:abc")
	require.Error(t, err)
	kind, ok := types.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrUnsupportedScheme, kind)
}

func TestFTPHandler_NeverPanics(t *testing.T) {
	var h FTPHandler
	_, err := h.Analyze(context.Background(), "ftp://example.com/x")
	assert.Error(t, err)

	_, err = h.Download(context.Background(), "ftp://example.com/x", "/tmp/x", types.DownloadOptions{})
	assert.Error(t, err)
}
