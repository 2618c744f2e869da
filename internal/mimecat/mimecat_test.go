package mimecat

import (
	"testing"

	"github.com/crane-dl/crane/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestCategorizeMime(t *testing.T) {
	cases := []struct {
		mime string
		want types.FileCategory
	}{
		{"application/pdf", types.CategoryDocuments},
		{"application/msword", types.CategoryDocuments},
		{"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", types.CategoryDocuments},
		{"text/plain", types.CategoryDocuments},
		{"text/html", types.CategoryOther},
		{"video/mp4", types.CategoryVideo},
		{"application/x-matroska", types.CategoryVideo},
		{"audio/mpeg", types.CategoryAudio},
		{"image/png", types.CategoryImages},
		{"application/zip", types.CategoryArchives},
		{"application/x-7z-compressed", types.CategoryArchives},
		{"application/x-msdownload", types.CategorySoftware},
		{"application/x-apple-diskimage", types.CategorySoftware},
		{"application/octet-stream", types.CategoryOther},
		{"Application/PDF", types.CategoryDocuments},
		{"application/epub+zip", types.CategoryDocuments},
		{"application/rtf", types.CategoryDocuments},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, CategorizeMime(c.mime), "mime %q", c.mime)
	}
}

func TestCategorizeExtension(t *testing.T) {
	cases := []struct {
		filename string
		want     types.FileCategory
	}{
		{"report.pdf", types.CategoryDocuments},
		{"movie.mp4", types.CategoryVideo},
		{"song.mp3", types.CategoryAudio},
		{"photo.png", types.CategoryImages},
		{"archive.zip", types.CategoryArchives},
		{"setup.exe", types.CategorySoftware},
		{"file.xyz", types.CategoryOther},
		{"README", types.CategoryOther},
		{"report.PDF", types.CategoryDocuments},
		{"archive.tar.gz", types.CategoryArchives},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, CategorizeExtension(c.filename), "filename %q", c.filename)
	}
}
