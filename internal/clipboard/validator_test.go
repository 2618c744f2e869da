package clipboard

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractURL_Valid(t *testing.T) {
	v := NewValidator()
	assert.Equal(t, "https://example.com/file.zip", v.ExtractURL("  https://example.com/file.zip  "))
}

func TestExtractURL_RejectsNonHTTP(t *testing.T) {
	v := NewValidator()
	assert.Equal(t, "", v.ExtractURL("ftp://example.com/file.zip"))
	assert.Equal(t, "", v.ExtractURL("not a url at all"))
}

func TestExtractURL_RejectsTooLong(t *testing.T) {
	v := NewValidator()
	longURL := "https://example.com/" + strings.Repeat("a", 3000)
	assert.Equal(t, "", v.ExtractURL(longURL))
}

func TestExtractURL_RejectsPrivateNetwork(t *testing.T) {
	v := NewValidator()
	assert.Equal(t, "", v.ExtractURL("http://127.0.0.1/secret"))
	assert.Equal(t, "", v.ExtractURL("http://169.254.169.254/latest/meta-data/"))
	assert.Equal(t, "", v.ExtractURL("http://localhost:8080/api"))
}

func TestExtractURL_RejectsNewlines(t *testing.T) {
	v := NewValidator()
	assert.Equal(t, "", v.ExtractURL("https://example.com/\nmalicious"))
}
