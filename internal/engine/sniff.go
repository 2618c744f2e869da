package engine

import (
	"os"

	"github.com/h2non/filetype"
)

// sniffHeaderBytes is large enough for every magic-byte signature
// filetype.Match knows about.
const sniffHeaderBytes = 262

// sniffMimeType reads the first bytes of path and matches them against
// filetype's magic-byte signature table, returning "" when nothing
// matches or the file can't be read. Used to fill in a MIME type the
// server never declared, or only declared as a generic
// application/octet-stream.
func sniffMimeType(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	buf := make([]byte, sniffHeaderBytes)
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		return ""
	}

	kind, err := filetype.Match(buf[:n])
	if err != nil || kind == filetype.Unknown {
		return ""
	}
	return kind.MIME.Value
}
