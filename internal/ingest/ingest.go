// Package ingest finds timetable documents on the local filesystem for batch runs.
package ingest

// Entry is one document found under a root, with the metadata it will be submitted with.
type Entry struct {
	Path        string
	Filename    string
	SubjectCode string
	TermYear    string
	Err         string
}

// DirStats summarizes a directory scan.
type DirStats struct {
	Scanned uint32
	Matched uint32
	Skipped uint32
	Failed  uint32
}

// Options controls a scan. SubjectCode and TermYear, when set, apply to every
// file; otherwise they are read from names like "CS_202409.pdf".
type Options struct {
	SubjectCode string
	TermYear    string
	SkipHidden  bool
}
