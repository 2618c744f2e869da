package store

import (
	"database/sql"
	"fmt"

	"github.com/crane-dl/crane/internal/types"
)

// InsertConnections inserts the chunk plan for a download. Each
// connection's temp file is named deterministically from tempDir and its
// connection number, matching the naming the worker pool reads back from.
func (s *Store) InsertConnections(downloadID string, connections []types.ConnectionInfo, tempDir string) error {
	return s.withTx(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(
			`INSERT INTO connections (download_id, connection_num, range_start, range_end, downloaded, status, temp_file)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, c := range connections {
			tempFile := fmt.Sprintf("%s/chunk_%d", tempDir, c.ConnectionNum)
			if _, err := stmt.Exec(downloadID, c.ConnectionNum, c.RangeStart, c.RangeEnd, c.Downloaded, c.Status.String(), tempFile); err != nil {
				return fmt.Errorf("insert connection %d: %w", c.ConnectionNum, err)
			}
		}
		return nil
	})
}

// GetConnections returns all chunks for a download, ordered by
// connection_num.
func (s *Store) GetConnections(downloadID string) ([]types.ConnectionInfo, error) {
	rows, err := s.query(
		`SELECT connection_num, range_start, range_end, downloaded, status, temp_file
		 FROM connections WHERE download_id = ? ORDER BY connection_num`,
		downloadID,
	)
	if err != nil {
		return nil, fmt.Errorf("get connections: %w", err)
	}
	defer rows.Close()

	var out []types.ConnectionInfo
	for rows.Next() {
		var c types.ConnectionInfo
		var statusStr string
		var tempFile sql.NullString
		if err := rows.Scan(&c.ConnectionNum, &c.RangeStart, &c.RangeEnd, &c.Downloaded, &statusStr, &tempFile); err != nil {
			return nil, err
		}
		status, ok := types.ParseConnectionStatus(statusStr)
		if !ok {
			return nil, fmt.Errorf("invalid connection status %q", statusStr)
		}
		c.Status = status
		c.TempFile = tempFile.String
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateConnectionProgress updates how many bytes a single connection has
// downloaded.
func (s *Store) UpdateConnectionProgress(downloadID string, connectionNum int, downloaded int64) error {
	res, err := s.exec(
		"UPDATE connections SET downloaded = ? WHERE download_id = ? AND connection_num = ?",
		downloaded, downloadID, connectionNum,
	)
	if err != nil {
		return fmt.Errorf("update connection progress: %w", err)
	}
	return requireConnRowsAffected(res, downloadID, connectionNum)
}

// UpdateConnectionStatus updates a single connection's status.
func (s *Store) UpdateConnectionStatus(downloadID string, connectionNum int, status types.ConnectionStatus) error {
	res, err := s.exec(
		"UPDATE connections SET status = ? WHERE download_id = ? AND connection_num = ?",
		status.String(), downloadID, connectionNum,
	)
	if err != nil {
		return fmt.Errorf("update connection status: %w", err)
	}
	return requireConnRowsAffected(res, downloadID, connectionNum)
}

func requireConnRowsAffected(res sql.Result, downloadID string, connectionNum int) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return types.NewError(types.ErrNotFound, fmt.Sprintf("connection %d for download %s", connectionNum, downloadID))
	}
	return nil
}
