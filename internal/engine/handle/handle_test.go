package handle

import (
	"context"
	"testing"
	"time"

	"github.com/crane-dl/crane/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestHandle_ProgressComputesSpeedAndETA(t *testing.T) {
	h := New("dl-1", 1000, nil)
	h.StartTime = time.Now().Add(-1 * time.Second)
	h.Downloaded.Store(500)

	p := h.Progress()
	assert.Equal(t, "dl-1", p.DownloadID)
	assert.Equal(t, int64(500), p.Downloaded)
	assert.Equal(t, int64(1000), p.TotalSize)
	assert.Greater(t, p.Speed, 0.0)
	assert.NotNil(t, p.ETASeconds)
}

func TestHandle_ProgressUnknownTotalHasNoETA(t *testing.T) {
	h := New("dl-2", 0, nil)
	h.Downloaded.Store(100)
	p := h.Progress()
	assert.Nil(t, p.ETASeconds)
}

func TestHandle_PauseCancelsContext(t *testing.T) {
	_, cancel := context.WithCancel(context.Background())
	called := false
	h := New("dl-3", 100, func() { called = true; cancel() })

	h.Pause()
	assert.True(t, called)
	assert.True(t, h.IsPaused())
}

func TestHandle_SetErrorMarksFinished(t *testing.T) {
	h := New("dl-4", 100, nil)
	assert.False(t, h.IsFinished())
	h.SetError(assertError("boom"))
	assert.True(t, h.IsFinished())
	assert.EqualError(t, h.Error(), "boom")
}

func TestHandle_FinishWithoutError(t *testing.T) {
	h := New("dl-5", 100, nil)
	h.Finish()
	assert.True(t, h.IsFinished())
	assert.NoError(t, h.Error())
}

func TestHandle_SetTotalSizeResetsSession(t *testing.T) {
	h := New("dl-6", 0, nil)
	h.Downloaded.Store(42)
	h.SetTotalSize(2000)
	p := h.Progress()
	assert.Equal(t, int64(2000), p.TotalSize)
}

func TestHandle_ConnectionProgressSnapshot(t *testing.T) {
	h := New("dl-7", 1000, nil)
	h.SetConnectionProgress([]types.ConnectionProgress{
		{ConnectionNum: 0, Downloaded: 10, RangeStart: 0, RangeEnd: 99},
	})
	p := h.Progress()
	assert.Len(t, p.Connections, 1)
	assert.Equal(t, 0, p.Connections[0].ConnectionNum)
}

type assertError string

func (e assertError) Error() string { return string(e) }
