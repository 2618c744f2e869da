// Package sanitize reduces caller- or server-supplied filenames to a
// single safe path component, defending against path traversal.
package sanitize

import (
	"path/filepath"
	"strings"
	"unicode"
)

// replacer turns any path separator that survives Base extraction (e.g.
// from a URL-decoded %2F, or a Windows-style path on a Unix build where
// filepath.Base never treated '\' as a separator) into an underscore.
var replacer = strings.NewReplacer("/", "_", "\\", "_")

// Sanitize reduces name to a single safe path component:
//  1. extract the last path component, discarding directories and
//     absolute prefixes;
//  2. replace any remaining '/' or '\' with '_';
//  3. strip leading '.' characters (hidden files);
//  4. drop control characters and null bytes;
//  5. if the result is empty, return "download".
//
// Sanitize is idempotent: Sanitize(Sanitize(x)) == Sanitize(x).
func Sanitize(name string) string {
	base := filepath.Base(name)
	// filepath.Base returns ".", "..", or "/" literally instead of Rust's
	// Path::file_name(), which yields None for all three — normalize them
	// to empty so they fall through to the "download" default below.
	switch base {
	case ".", "..", "/", string(filepath.Separator):
		base = ""
	}

	cleaned := replacer.Replace(base)
	cleaned = strings.TrimLeft(cleaned, ".")

	var b strings.Builder
	for _, r := range cleaned {
		if !unicode.IsControl(r) {
			b.WriteRune(r)
		}
	}

	// Dropping control characters can expose dots that step 3 could not
	// see (".\x00.x"), so trim them again to keep the result idempotent.
	result := strings.TrimLeft(b.String(), ".")
	if result == "" {
		return "download"
	}
	return result
}
