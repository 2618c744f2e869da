package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/crane-dl/crane/internal/types"
)

// InsertRetry records a retry attempt for a download, timestamped now.
func (s *Store) InsertRetry(downloadID string, attempt int, errorMessage, errorCode *string) error {
	_, err := s.exec(
		"INSERT INTO retry_log (download_id, attempt, error_message, error_code, timestamp) VALUES (?, ?, ?, ?, ?)",
		downloadID, attempt, nullStr(errorMessage), nullStr(errorCode), time.Now().UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert retry: %w", err)
	}
	return nil
}

// GetRetries returns all retry entries for a download, oldest attempt first.
func (s *Store) GetRetries(downloadID string) ([]types.RetryEntry, error) {
	rows, err := s.query(
		"SELECT attempt, error_message, error_code, timestamp FROM retry_log WHERE download_id = ? ORDER BY attempt ASC",
		downloadID,
	)
	if err != nil {
		return nil, fmt.Errorf("get retries: %w", err)
	}
	defer rows.Close()

	var out []types.RetryEntry
	for rows.Next() {
		var r types.RetryEntry
		var ts string
		var msg, code sql.NullString
		if err := rows.Scan(&r.Attempt, &msg, &code, &ts); err != nil {
			return nil, err
		}
		t, err := time.Parse(timeLayout, ts)
		if err != nil {
			return nil, fmt.Errorf("parse retry timestamp: %w", err)
		}
		r.DownloadID = downloadID
		r.ErrorMessage = strPtr(msg)
		r.ErrorCode = strPtr(code)
		r.Timestamp = t
		out = append(out, r)
	}
	return out, rows.Err()
}
