package utils

import "github.com/dustin/go-humanize"

// ConvertBytesToHumanReadable converts a byte count into a human-readable
// IEC string (e.g. "1.0 MiB").
func ConvertBytesToHumanReadable(bytes int64) string {
	if bytes < 0 {
		return humanize.IBytes(0)
	}
	return humanize.IBytes(uint64(bytes))
}

// ConvertSpeedToHumanReadable formats a bytes/sec rate as e.g. "1.2 MB/s".
func ConvertSpeedToHumanReadable(bytesPerSec float64) string {
	if bytesPerSec < 0 {
		bytesPerSec = 0
	}
	return humanize.Bytes(uint64(bytesPerSec)) + "/s"
}
