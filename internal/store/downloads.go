package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/crane-dl/crane/internal/types"
)

const timeLayout = time.RFC3339

const selectDownloadColumns = `id, url, filename, save_path, total_size, downloaded_size,
	status, error_message, error_code, mime_type, category, resumable,
	connections, speed, source_domain, referrer, cookies, user_agent,
	queue_position, retry_count, created_at, started_at, completed_at,
	updated_at, headers`

func strPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func nullStr(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func intPtr(ni sql.NullInt64) *int {
	if !ni.Valid {
		return nil
	}
	v := int(ni.Int64)
	return &v
}

func nullIntAsInt64(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func int64Ptr(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	v := ni.Int64
	return &v
}

func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func timePtr(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := time.Parse(timeLayout, ns.String)
	if err != nil {
		return nil, fmt.Errorf("parse timestamp %q: %w", ns.String, err)
	}
	return &t, nil
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(timeLayout), Valid: true}
}

type downloadRow struct {
	id, url, filename, savePath                string
	totalSize                                  sql.NullInt64
	downloadedSize                             int64
	status                                     string
	errorMessage, errorCode, mimeType          sql.NullString
	category                                   string
	resumable                                  int64
	connections                                int64
	speed                                      float64
	sourceDomain, referrer, cookies, userAgent sql.NullString
	queuePosition                              sql.NullInt64
	retryCount                                 int64
	createdAt, updatedAt                       string
	startedAt, completedAt                     sql.NullString
	headers                                    sql.NullString
}

func scanDownloadRow(scan func(dest ...any) error) (*types.Download, error) {
	var r downloadRow
	err := scan(
		&r.id, &r.url, &r.filename, &r.savePath, &r.totalSize, &r.downloadedSize,
		&r.status, &r.errorMessage, &r.errorCode, &r.mimeType, &r.category, &r.resumable,
		&r.connections, &r.speed, &r.sourceDomain, &r.referrer, &r.cookies, &r.userAgent,
		&r.queuePosition, &r.retryCount, &r.createdAt, &r.startedAt, &r.completedAt,
		&r.updatedAt, &r.headers,
	)
	if err != nil {
		return nil, err
	}

	status, ok := types.ParseDownloadStatus(r.status)
	if !ok {
		return nil, fmt.Errorf("invalid download status %q", r.status)
	}

	createdAt, err := time.Parse(timeLayout, r.createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	updatedAt, err := time.Parse(timeLayout, r.updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	startedAt, err := timePtr(r.startedAt)
	if err != nil {
		return nil, err
	}
	completedAt, err := timePtr(r.completedAt)
	if err != nil {
		return nil, err
	}

	return &types.Download{
		ID:             r.id,
		URL:            r.url,
		Filename:       r.filename,
		SavePath:       r.savePath,
		TotalSize:      int64Ptr(r.totalSize),
		DownloadedSize: r.downloadedSize,
		Status:         status,
		ErrorMessage:   strPtr(r.errorMessage),
		ErrorCode:      strPtr(r.errorCode),
		MimeType:       strPtr(r.mimeType),
		Category:       types.ParseFileCategory(r.category),
		Resumable:      r.resumable != 0,
		Connections:    int(r.connections),
		Speed:          r.speed,
		SourceDomain:   strPtr(r.sourceDomain),
		Referrer:       strPtr(r.referrer),
		Cookies:        strPtr(r.cookies),
		UserAgent:      strPtr(r.userAgent),
		Headers:        strPtr(r.headers),
		QueuePosition:  int64Ptr(r.queuePosition),
		RetryCount:     int(r.retryCount),
		CreatedAt:      createdAt,
		StartedAt:      startedAt,
		CompletedAt:    completedAt,
		UpdatedAt:      updatedAt,
	}, nil
}

// InsertDownload inserts a new download row. updated_at is seeded from
// created_at, matching the row just created.
func (s *Store) InsertDownload(d *types.Download) error {
	_, err := s.exec(
		`INSERT INTO downloads (
			id, url, filename, save_path, total_size, downloaded_size,
			status, error_message, error_code, mime_type, category,
			resumable, connections, speed, source_domain, referrer,
			cookies, user_agent, queue_position, retry_count,
			created_at, started_at, completed_at, updated_at, headers
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.URL, d.Filename, d.SavePath, nullInt64(d.TotalSize), d.DownloadedSize,
		d.Status.String(), nullStr(d.ErrorMessage), nullStr(d.ErrorCode), nullStr(d.MimeType), d.Category.String(),
		boolToInt(d.Resumable), d.Connections, d.Speed, nullStr(d.SourceDomain), nullStr(d.Referrer),
		nullStr(d.Cookies), nullStr(d.UserAgent), nullInt64(d.QueuePosition), d.RetryCount,
		d.CreatedAt.Format(timeLayout), nullTime(d.StartedAt), nullTime(d.CompletedAt), d.CreatedAt.Format(timeLayout), nullStr(d.Headers),
	)
	if err != nil {
		return fmt.Errorf("insert download: %w", err)
	}
	return nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// GetDownload fetches a single download by id.
func (s *Store) GetDownload(id string) (*types.Download, error) {
	row := s.queryRow(fmt.Sprintf("SELECT %s FROM downloads WHERE id = ?", selectDownloadColumns), id)
	d, err := scanDownloadRow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, types.NewError(types.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get download: %w", err)
	}
	return d, nil
}

// ListDownloads returns all downloads, newest first.
func (s *Store) ListDownloads() ([]*types.Download, error) {
	rows, err := s.query(fmt.Sprintf("SELECT %s FROM downloads ORDER BY created_at DESC", selectDownloadColumns))
	if err != nil {
		return nil, fmt.Errorf("list downloads: %w", err)
	}
	defer rows.Close()
	return scanDownloadRows(rows)
}

// GetDownloadsByStatus returns downloads in the given status, ordered by
// queue position (rows without one last) then creation time (used for
// queue replay and listing).
func (s *Store) GetDownloadsByStatus(status types.DownloadStatus) ([]*types.Download, error) {
	rows, err := s.query(
		fmt.Sprintf("SELECT %s FROM downloads WHERE status = ? ORDER BY queue_position ASC NULLS LAST, created_at ASC", selectDownloadColumns),
		status.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("list downloads by status: %w", err)
	}
	defer rows.Close()
	return scanDownloadRows(rows)
}

func scanDownloadRows(rows *sql.Rows) ([]*types.Download, error) {
	var out []*types.Download
	for rows.Next() {
		d, err := scanDownloadRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// UpdateDownloadStatus sets status/error fields and updated_at, and also
// stamps started_at (Downloading) or completed_at (Completed) with the
// current time every time the row is set to that status.
func (s *Store) UpdateDownloadStatus(id string, status types.DownloadStatus, errorMessage, errorCode *string) error {
	now := time.Now().UTC()

	var startedAt, completedAt sql.NullString
	if status == types.StatusDownloading {
		startedAt = sql.NullString{String: now.Format(timeLayout), Valid: true}
	}
	if status == types.StatusCompleted {
		completedAt = sql.NullString{String: now.Format(timeLayout), Valid: true}
	}

	res, err := s.exec(
		`UPDATE downloads SET
			status = ?, error_message = ?, error_code = ?, updated_at = ?,
			started_at = COALESCE(?, started_at),
			completed_at = COALESCE(?, completed_at)
		WHERE id = ?`,
		status.String(), nullStr(errorMessage), nullStr(errorCode), now.Format(timeLayout),
		startedAt, completedAt, id,
	)
	if err != nil {
		return fmt.Errorf("update download status: %w", err)
	}
	return requireRowsAffected(res, id)
}

// UpdateDownloadProgress updates downloaded_size, speed, and updated_at.
func (s *Store) UpdateDownloadProgress(id string, downloadedSize int64, speed float64) error {
	res, err := s.exec(
		"UPDATE downloads SET downloaded_size = ?, speed = ?, updated_at = ? WHERE id = ?",
		downloadedSize, speed, time.Now().UTC().Format(timeLayout), id,
	)
	if err != nil {
		return fmt.Errorf("update download progress: %w", err)
	}
	return requireRowsAffected(res, id)
}

// DeleteDownload removes a download and, via ON DELETE CASCADE, its
// connections, speed history, and retry log.
func (s *Store) DeleteDownload(id string) error {
	res, err := s.exec("DELETE FROM downloads WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete download: %w", err)
	}
	return requireRowsAffected(res, id)
}

// UpdateQueuePosition sets (or, with nil, clears) the queue position.
func (s *Store) UpdateQueuePosition(id string, position *int64) error {
	res, err := s.exec(
		"UPDATE downloads SET queue_position = ?, updated_at = ? WHERE id = ?",
		nullInt64(position), time.Now().UTC().Format(timeLayout), id,
	)
	if err != nil {
		return fmt.Errorf("update queue position: %w", err)
	}
	return requireRowsAffected(res, id)
}

// GetNextQueued returns the queued download with the lowest queue
// position, or nil if none are queued.
func (s *Store) GetNextQueued() (*types.Download, error) {
	row := s.queryRow(fmt.Sprintf(
		"SELECT %s FROM downloads WHERE status = 'queued' ORDER BY queue_position ASC LIMIT 1",
		selectDownloadColumns,
	))
	d, err := scanDownloadRow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get next queued: %w", err)
	}
	return d, nil
}

// CountActiveDownloads counts downloads currently downloading or
// analysing.
func (s *Store) CountActiveDownloads() (int, error) {
	var count int64
	err := s.queryRow(
		"SELECT COUNT(*) FROM downloads WHERE status IN ('downloading', 'analysing')",
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active downloads: %w", err)
	}
	return int(count), nil
}

// GetMaxQueuePosition returns the highest queue_position among queued
// downloads, or nil if none are queued.
func (s *Store) GetMaxQueuePosition() (*int64, error) {
	var max sql.NullInt64
	err := s.queryRow("SELECT MAX(queue_position) FROM downloads WHERE status = 'queued'").Scan(&max)
	if err != nil {
		return nil, fmt.Errorf("get max queue position: %w", err)
	}
	return int64Ptr(max), nil
}

func requireRowsAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return types.NewError(types.ErrNotFound, id)
	}
	return nil
}
