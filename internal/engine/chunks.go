package engine

import (
	"fmt"
	"path/filepath"

	"github.com/crane-dl/crane/internal/types"
)

// minChunkSize is the smallest byte range a connection is allowed to
// own; a file below connections*minChunkSize gets fewer, larger chunks
// instead of connections this file can't fill with meaningful work.
const minChunkSize = 262_144 // 256KiB

// tempDirSuffix names the scratch directory chunk files live in,
// sibling to the final destination, until the merge step consumes them.
const tempDirSuffix = ".crane_tmp"

// tempDirFor returns the chunk scratch directory for a destination path.
func tempDirFor(savePath string) string {
	return savePath + tempDirSuffix
}

// PlanChunks divides a file of totalSize bytes into up to
// requestedConnections contiguous byte ranges, each at least
// minChunkSize bytes (except when the file itself is smaller). Always
// returns at least one chunk.
func PlanChunks(totalSize int64, requestedConnections int) []types.ConnectionInfo {
	n := requestedConnections
	if byMinSize := int(totalSize / minChunkSize); byMinSize < n {
		n = byMinSize
	}
	if n < 1 {
		n = 1
	}

	chunkSize := totalSize / int64(n)
	chunks := make([]types.ConnectionInfo, n)
	for i := 0; i < n; i++ {
		start := int64(i) * chunkSize
		end := start + chunkSize - 1
		if i == n-1 {
			end = totalSize - 1
		}
		chunks[i] = types.ConnectionInfo{
			ConnectionNum: i,
			RangeStart:    start,
			RangeEnd:      end,
			Status:        types.ConnPending,
		}
	}
	return chunks
}

// chunkPath returns the scratch file path for one planned chunk.
func chunkPath(tempDir string, connectionNum int) string {
	return filepath.Join(tempDir, fmt.Sprintf("chunk_%d", connectionNum))
}
