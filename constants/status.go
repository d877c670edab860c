package constants

// TaskStatus is the lifecycle state of a submission batch.
type TaskStatus string

// Stable values (these exact strings are persisted by the task stores).
const (
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// IsTerminal reports whether no further transitions happen.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// FileStatus is the lifecycle state of one uploaded document.
type FileStatus string

const (
	FileStatusQueued     FileStatus = "queued"     // registered, waiting for a worker
	FileStatusExtracting FileStatus = "extracting" // pdf -> text
	FileStatusParsing    FileStatus = "parsing"    // text -> records
	FileStatusDone       FileStatus = "done"       // terminal
	FileStatusFailed     FileStatus = "failed"     // terminal
)

// IsTerminal reports whether the file has resolved.
func (s FileStatus) IsTerminal() bool {
	return s == FileStatusDone || s == FileStatusFailed
}

// order gives each file state a rank so transitions only move forward.
var fileStatusOrder = map[FileStatus]int{
	FileStatusQueued:     0,
	FileStatusExtracting: 1,
	FileStatusParsing:    2,
	FileStatusDone:       3,
	FileStatusFailed:     3,
}

// CanTransition reports whether a file may move from s to next.
func (s FileStatus) CanTransition(next FileStatus) bool {
	if s.IsTerminal() {
		return false
	}
	from, ok := fileStatusOrder[s]
	if !ok {
		return false
	}
	to, ok := fileStatusOrder[next]
	if !ok {
		return false
	}
	return to > from
}
