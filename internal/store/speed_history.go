package store

import (
	"fmt"
	"time"

	"github.com/crane-dl/crane/internal/types"
)

// InsertSpeedSample appends a speed measurement for a download, timestamped now.
func (s *Store) InsertSpeedSample(downloadID string, speed float64) error {
	_, err := s.exec(
		"INSERT INTO speed_history (download_id, speed, timestamp) VALUES (?, ?, ?)",
		downloadID, speed, time.Now().UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert speed sample: %w", err)
	}
	return nil
}

// GetSpeedHistory returns samples from the last `window` for a download,
// oldest first.
func (s *Store) GetSpeedHistory(downloadID string, window time.Duration) ([]types.SpeedSample, error) {
	cutoff := time.Now().UTC().Add(-window).Format(timeLayout)

	rows, err := s.query(
		"SELECT speed, timestamp FROM speed_history WHERE download_id = ? AND timestamp >= ? ORDER BY timestamp ASC",
		downloadID, cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("get speed history: %w", err)
	}
	defer rows.Close()

	var out []types.SpeedSample
	for rows.Next() {
		var speed float64
		var ts string
		if err := rows.Scan(&speed, &ts); err != nil {
			return nil, err
		}
		t, err := time.Parse(timeLayout, ts)
		if err != nil {
			return nil, fmt.Errorf("parse speed sample timestamp: %w", err)
		}
		out = append(out, types.SpeedSample{DownloadID: downloadID, Speed: speed, Timestamp: t})
	}
	return out, rows.Err()
}
