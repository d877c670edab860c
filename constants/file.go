package constants

import "strings"

// MaxUploadBytesDefault caps a single uploaded document (10 MiB).
const MaxUploadBytesDefault int64 = 10 * 1024 * 1024

// PDFMimeType is the only accepted upload content type.
const PDFMimeType = "application/pdf"

// AllowedExtensions holds the file extensions accepted for timetable ingestion.
var AllowedExtensions = map[string]struct{}{
	"pdf": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsAllowedExt reports whether ext (with or without dot) may be uploaded.
func IsAllowedExt(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}
