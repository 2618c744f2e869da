// Package mimecat classifies MIME types and file extensions into the
// closed category set used across the store and the shell's listings.
package mimecat

import (
	"strings"

	"github.com/crane-dl/crane/internal/types"
)

// CategorizeMime maps a MIME type (parameters already stripped by the
// caller) to a FileCategory, falling back to CategoryOther when nothing
// matches.
func CategorizeMime(mime string) types.FileCategory {
	m := strings.ToLower(mime)

	switch {
	case strings.HasPrefix(m, "application/pdf"):
		return types.CategoryDocuments
	case strings.HasPrefix(m, "application/msword"):
		return types.CategoryDocuments
	case strings.Contains(m, "spreadsheet") || strings.Contains(m, "excel"):
		return types.CategoryDocuments
	case strings.Contains(m, "presentation") || strings.Contains(m, "powerpoint"):
		return types.CategoryDocuments
	case strings.Contains(m, "document"):
		return types.CategoryDocuments
	case strings.HasPrefix(m, "text/") && !strings.Contains(m, "html"):
		return types.CategoryDocuments
	case m == "application/epub+zip":
		return types.CategoryDocuments
	case m == "application/rtf":
		return types.CategoryDocuments

	case strings.HasPrefix(m, "video/"):
		return types.CategoryVideo
	case m == "application/x-matroska":
		return types.CategoryVideo

	case strings.HasPrefix(m, "audio/"):
		return types.CategoryAudio

	case strings.HasPrefix(m, "image/"):
		return types.CategoryImages

	case m == "application/zip",
		m == "application/x-rar-compressed",
		m == "application/x-7z-compressed",
		m == "application/gzip", m == "application/x-gzip",
		m == "application/x-tar",
		m == "application/x-bzip2",
		m == "application/x-xz",
		m == "application/x-lzma",
		m == "application/zstd":
		return types.CategoryArchives

	case m == "application/x-executable",
		m == "application/x-msdos-program",
		m == "application/x-msdownload",
		m == "application/vnd.microsoft.portable-executable",
		m == "application/x-apple-diskimage",
		m == "application/vnd.debian.binary-package",
		m == "application/x-rpm",
		m == "application/x-msi",
		m == "application/x-iso9660-image":
		return types.CategorySoftware

	default:
		return types.CategoryOther
	}
}

var extCategories = map[string]types.FileCategory{
	"pdf": types.CategoryDocuments, "doc": types.CategoryDocuments, "docx": types.CategoryDocuments,
	"xls": types.CategoryDocuments, "xlsx": types.CategoryDocuments, "ppt": types.CategoryDocuments,
	"pptx": types.CategoryDocuments, "odt": types.CategoryDocuments, "ods": types.CategoryDocuments,
	"odp": types.CategoryDocuments, "rtf": types.CategoryDocuments, "txt": types.CategoryDocuments,
	"csv": types.CategoryDocuments, "epub": types.CategoryDocuments, "mobi": types.CategoryDocuments,

	"mp4": types.CategoryVideo, "mkv": types.CategoryVideo, "avi": types.CategoryVideo,
	"mov": types.CategoryVideo, "wmv": types.CategoryVideo, "flv": types.CategoryVideo,
	"webm": types.CategoryVideo, "m4v": types.CategoryVideo, "mpg": types.CategoryVideo,
	"mpeg": types.CategoryVideo, "3gp": types.CategoryVideo, "ts": types.CategoryVideo,

	"mp3": types.CategoryAudio, "flac": types.CategoryAudio, "wav": types.CategoryAudio,
	"aac": types.CategoryAudio, "ogg": types.CategoryAudio, "wma": types.CategoryAudio,
	"m4a": types.CategoryAudio, "opus": types.CategoryAudio, "aiff": types.CategoryAudio,

	"jpg": types.CategoryImages, "jpeg": types.CategoryImages, "png": types.CategoryImages,
	"gif": types.CategoryImages, "bmp": types.CategoryImages, "svg": types.CategoryImages,
	"webp": types.CategoryImages, "tiff": types.CategoryImages, "ico": types.CategoryImages,
	"heic": types.CategoryImages, "heif": types.CategoryImages, "avif": types.CategoryImages,
	"raw": types.CategoryImages,

	"zip": types.CategoryArchives, "rar": types.CategoryArchives, "7z": types.CategoryArchives,
	"tar": types.CategoryArchives, "gz": types.CategoryArchives, "bz2": types.CategoryArchives,
	"xz": types.CategoryArchives, "zst": types.CategoryArchives, "lz": types.CategoryArchives,
	"lzma": types.CategoryArchives, "cab": types.CategoryArchives, "tgz": types.CategoryArchives,

	"exe": types.CategorySoftware, "msi": types.CategorySoftware, "dmg": types.CategorySoftware,
	"pkg": types.CategorySoftware, "deb": types.CategorySoftware, "rpm": types.CategorySoftware,
	"appimage": types.CategorySoftware, "snap": types.CategorySoftware, "flatpak": types.CategorySoftware,
	"iso": types.CategorySoftware, "img": types.CategorySoftware,
}

// CategorizeExtension maps a filename's extension (the substring after
// the last '.', or the whole name if there is none) to a FileCategory.
func CategorizeExtension(filename string) types.FileCategory {
	ext := filename
	if i := strings.LastIndexByte(filename, '.'); i >= 0 {
		ext = filename[i+1:]
	}
	ext = strings.ToLower(ext)

	if cat, ok := extCategories[ext]; ok {
		return cat
	}
	return types.CategoryOther
}
