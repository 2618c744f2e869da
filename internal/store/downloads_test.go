package store

import (
	"testing"
	"time"

	"github.com/crane-dl/crane/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeTestDownload(id string, status types.DownloadStatus) *types.Download {
	total := int64(1024)
	mime := "application/octet-stream"
	domain := "example.com"
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return &types.Download{
		ID:             id,
		URL:            "https://example.com/" + id + ".bin",
		Filename:       id + ".bin",
		SavePath:       "/tmp/" + id + ".bin",
		TotalSize:      &total,
		DownloadedSize: 0,
		Status:         status,
		MimeType:       &mime,
		Category:       types.CategoryOther,
		Resumable:      true,
		Connections:    4,
		Speed:          0,
		SourceDomain:   &domain,
		RetryCount:     0,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestInsertAndGetDownload(t *testing.T) {
	s, err := OpenInMemory()
	require.NoError(t, err)
	defer s.Close()

	dl := makeTestDownload("dl-1", types.StatusPending)
	require.NoError(t, s.InsertDownload(dl))

	fetched, err := s.GetDownload("dl-1")
	require.NoError(t, err)
	assert.Equal(t, "dl-1", fetched.ID)
	assert.Equal(t, dl.URL, fetched.URL)
	assert.Equal(t, dl.Filename, fetched.Filename)
	require.NotNil(t, fetched.TotalSize)
	assert.Equal(t, int64(1024), *fetched.TotalSize)
	assert.Equal(t, types.StatusPending, fetched.Status)
	assert.True(t, fetched.Resumable)
	assert.Equal(t, 4, fetched.Connections)
}

func TestGetMissingDownload_ReturnsNotFound(t *testing.T) {
	s, err := OpenInMemory()
	require.NoError(t, err)
	defer s.Close()

	_, err = s.GetDownload("nonexistent")
	require.Error(t, err)
	kind, ok := types.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrNotFound, kind)
}

func TestListDownloads_OrderedByCreatedAtDesc(t *testing.T) {
	s, err := OpenInMemory()
	require.NoError(t, err)
	defer s.Close()

	dl1 := makeTestDownload("dl-1", types.StatusPending)
	dl1.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	dl1.UpdatedAt = dl1.CreatedAt

	dl2 := makeTestDownload("dl-2", types.StatusDownloading)
	dl2.CreatedAt = time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	dl2.UpdatedAt = dl2.CreatedAt

	dl3 := makeTestDownload("dl-3", types.StatusCompleted)
	dl3.CreatedAt = time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC)
	dl3.UpdatedAt = dl3.CreatedAt

	require.NoError(t, s.InsertDownload(dl1))
	require.NoError(t, s.InsertDownload(dl2))
	require.NoError(t, s.InsertDownload(dl3))

	list, err := s.ListDownloads()
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "dl-3", list[0].ID)
	assert.Equal(t, "dl-2", list[1].ID)
	assert.Equal(t, "dl-1", list[2].ID)
}

func TestUpdateStatus(t *testing.T) {
	s, err := OpenInMemory()
	require.NoError(t, err)
	defer s.Close()

	dl := makeTestDownload("dl-1", types.StatusPending)
	require.NoError(t, s.InsertDownload(dl))

	msg, code := "timeout", "E001"
	require.NoError(t, s.UpdateDownloadStatus("dl-1", types.StatusFailed, &msg, &code))

	fetched, err := s.GetDownload("dl-1")
	require.NoError(t, err)
	assert.Equal(t, types.StatusFailed, fetched.Status)
	require.NotNil(t, fetched.ErrorMessage)
	assert.Equal(t, "timeout", *fetched.ErrorMessage)
	require.NotNil(t, fetched.ErrorCode)
	assert.Equal(t, "E001", *fetched.ErrorCode)
}

func TestUpdateStatus_CompletedSetsCompletedAt(t *testing.T) {
	s, err := OpenInMemory()
	require.NoError(t, err)
	defer s.Close()

	dl := makeTestDownload("dl-1", types.StatusDownloading)
	require.NoError(t, s.InsertDownload(dl))

	require.NoError(t, s.UpdateDownloadStatus("dl-1", types.StatusCompleted, nil, nil))

	fetched, err := s.GetDownload("dl-1")
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, fetched.Status)
	assert.NotNil(t, fetched.CompletedAt)
}

func TestUpdateProgress(t *testing.T) {
	s, err := OpenInMemory()
	require.NoError(t, err)
	defer s.Close()

	dl := makeTestDownload("dl-1", types.StatusDownloading)
	require.NoError(t, s.InsertDownload(dl))

	require.NoError(t, s.UpdateDownloadProgress("dl-1", 512, 1024.5))

	fetched, err := s.GetDownload("dl-1")
	require.NoError(t, err)
	assert.Equal(t, int64(512), fetched.DownloadedSize)
	assert.InDelta(t, 1024.5, fetched.Speed, 0.001)
}

func TestDeleteDownload(t *testing.T) {
	s, err := OpenInMemory()
	require.NoError(t, err)
	defer s.Close()

	dl := makeTestDownload("dl-1", types.StatusPending)
	require.NoError(t, s.InsertDownload(dl))
	require.NoError(t, s.DeleteDownload("dl-1"))

	_, err = s.GetDownload("dl-1")
	require.Error(t, err)
	kind, ok := types.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrNotFound, kind)
}

func TestDeleteMissing_ReturnsNotFound(t *testing.T) {
	s, err := OpenInMemory()
	require.NoError(t, err)
	defer s.Close()

	err = s.DeleteDownload("nonexistent")
	require.Error(t, err)
	kind, ok := types.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrNotFound, kind)
}

func TestGetDownloadsByStatus(t *testing.T) {
	s, err := OpenInMemory()
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.InsertDownload(makeTestDownload("dl-1", types.StatusPending)))
	require.NoError(t, s.InsertDownload(makeTestDownload("dl-2", types.StatusDownloading)))
	require.NoError(t, s.InsertDownload(makeTestDownload("dl-3", types.StatusPending)))

	pending, err := s.GetDownloadsByStatus(types.StatusPending)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	downloading, err := s.GetDownloadsByStatus(types.StatusDownloading)
	require.NoError(t, err)
	require.Len(t, downloading, 1)
	assert.Equal(t, "dl-2", downloading[0].ID)
}

func TestQueuePositionAndNextQueued(t *testing.T) {
	s, err := OpenInMemory()
	require.NoError(t, err)
	defer s.Close()

	dl1 := makeTestDownload("dl-1", types.StatusQueued)
	p1 := int64(2)
	dl1.QueuePosition = &p1

	dl2 := makeTestDownload("dl-2", types.StatusQueued)
	p2 := int64(1)
	dl2.QueuePosition = &p2

	dl3 := makeTestDownload("dl-3", types.StatusPending)

	require.NoError(t, s.InsertDownload(dl1))
	require.NoError(t, s.InsertDownload(dl2))
	require.NoError(t, s.InsertDownload(dl3))

	next, err := s.GetNextQueued()
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "dl-2", next.ID)

	newPos := int64(10)
	require.NoError(t, s.UpdateQueuePosition("dl-2", &newPos))

	next, err = s.GetNextQueued()
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "dl-1", next.ID)
}

func TestCountActiveDownloads(t *testing.T) {
	s, err := OpenInMemory()
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.InsertDownload(makeTestDownload("dl-1", types.StatusDownloading)))
	require.NoError(t, s.InsertDownload(makeTestDownload("dl-2", types.StatusAnalysing)))
	require.NoError(t, s.InsertDownload(makeTestDownload("dl-3", types.StatusPending)))
	require.NoError(t, s.InsertDownload(makeTestDownload("dl-4", types.StatusDownloading)))

	count, err := s.CountActiveDownloads()
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestGetMaxQueuePosition(t *testing.T) {
	s, err := OpenInMemory()
	require.NoError(t, err)
	defer s.Close()

	max, err := s.GetMaxQueuePosition()
	require.NoError(t, err)
	assert.Nil(t, max)

	dl1 := makeTestDownload("dl-1", types.StatusQueued)
	p1 := int64(5)
	dl1.QueuePosition = &p1
	dl2 := makeTestDownload("dl-2", types.StatusQueued)
	p2 := int64(10)
	dl2.QueuePosition = &p2

	require.NoError(t, s.InsertDownload(dl1))
	require.NoError(t, s.InsertDownload(dl2))

	max, err = s.GetMaxQueuePosition()
	require.NoError(t, err)
	require.NotNil(t, max)
	assert.Equal(t, int64(10), *max)
}

func TestDownloadRoundTrip_WithHeaders(t *testing.T) {
	s, err := OpenInMemory()
	require.NoError(t, err)
	defer s.Close()

	dl := makeTestDownload("dl-1", types.StatusPending)
	headers := `{"X-Custom":"value"}`
	dl.Headers = &headers
	require.NoError(t, s.InsertDownload(dl))

	fetched, err := s.GetDownload("dl-1")
	require.NoError(t, err)
	require.NotNil(t, fetched.Headers)
	assert.Equal(t, headers, *fetched.Headers)
}

func TestDuplicateID_ReturnsError(t *testing.T) {
	s, err := OpenInMemory()
	require.NoError(t, err)
	defer s.Close()

	dl := makeTestDownload("dl-1", types.StatusPending)
	require.NoError(t, s.InsertDownload(dl))
	err = s.InsertDownload(dl)
	assert.Error(t, err)
}
