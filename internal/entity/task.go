package entity

import (
	"math"
	"time"

	"github.com/joseph-ayodele/course-extractor/constants"
)

// Output kinds.
const (
	OutputCombined      = "combined"
	OutputUnderenrolled = "underenrolled"
	OutputWorkbook      = "workbook"
)

// OutputFile describes one stored artifact of a completed task.
type OutputFile struct {
	Kind      string `json:"kind"`
	Name      string `json:"name"`
	Key       string `json:"key"`
	SizeBytes int64  `json:"size"`
}

// Task is one submission batch and the unit stored by task stores.
type Task struct {
	ID                 string               `json:"task_id"`
	Status             constants.TaskStatus `json:"status"`
	Files              []FileTask           `json:"files"`
	Outputs            []OutputFile         `json:"outputs,omitempty"`
	CombinedCount      int                  `json:"combined_count"`
	UnderenrolledCount int                  `json:"underenrolled_count"`
	ErrorMessage       string               `json:"error,omitempty"`
	CreatedAt          time.Time            `json:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at"`
	FinishedAt         *time.Time           `json:"finished_at,omitempty"`
}

// Counts returns files resolved done, resolved failed, and not yet resolved.
func (t *Task) Counts() (processed, failed, pending int) {
	for _, f := range t.Files {
		switch f.Status {
		case constants.FileStatusDone:
			processed++
		case constants.FileStatusFailed:
			failed++
		default:
			pending++
		}
	}
	return processed, failed, pending
}

// Progress is the resolved share of files in percent, one decimal.
func (t *Task) Progress() float64 {
	if len(t.Files) == 0 {
		if t.Status.IsTerminal() {
			return 100
		}
		return 0
	}
	processed, failed, _ := t.Counts()
	p := float64(processed+failed) / float64(len(t.Files)) * 100
	return math.Round(p*10) / 10
}

// DroppedRecords sums entries rejected by validation across files.
func (t *Task) DroppedRecords() int {
	n := 0
	for _, f := range t.Files {
		n += f.Dropped
	}
	return n
}

// Output looks up an artifact by kind.
func (t *Task) Output(kind string) (OutputFile, bool) {
	for _, o := range t.Outputs {
		if o.Kind == kind {
			return o, true
		}
	}
	return OutputFile{}, false
}

// OutputByName looks up an artifact by its file name.
func (t *Task) OutputByName(name string) (OutputFile, bool) {
	for _, o := range t.Outputs {
		if o.Name == name {
			return o, true
		}
	}
	return OutputFile{}, false
}

// Clone returns a deep copy so stores never share slices with writers.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	out := *t
	out.Files = make([]FileTask, len(t.Files))
	for i, f := range t.Files {
		f.StartedAt = cloneTime(f.StartedAt)
		f.FinishedAt = cloneTime(f.FinishedAt)
		out.Files[i] = f
	}
	if t.Outputs != nil {
		out.Outputs = append([]OutputFile(nil), t.Outputs...)
	}
	out.FinishedAt = cloneTime(t.FinishedAt)
	return &out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
