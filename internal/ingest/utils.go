package ingest

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joseph-ayodele/course-extractor/constants"
)

// AllowedExt checks if a file extension is in the allowed set.
func AllowedExt(ext string) bool {
	return constants.IsAllowedExt(ext)
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}

var reNameMeta = regexp.MustCompile(`^([A-Za-z]{2,5})[ _\-.]+(\d{6})\b`)

// MetaFromName reads "<SUBJECT>_<YYYYMM>" from the start of a file name.
func MetaFromName(name string) (subject, term string, ok bool) {
	m := reNameMeta.FindStringSubmatch(filepath.Base(name))
	if m == nil {
		return "", "", false
	}
	return strings.ToUpper(m[1]), m[2], true
}
