package entity

import (
	"time"

	"github.com/joseph-ayodele/course-extractor/constants"
)

// Status is the polling snapshot of a task.
type Status struct {
	TaskID              string               `json:"task_id"`
	Status              constants.TaskStatus `json:"status"`
	Progress            float64              `json:"progress"`
	Processed           int                  `json:"processed"`
	Failed              int                  `json:"failed"`
	Pending             int                  `json:"pending"`
	Total               int                  `json:"total"`
	DroppedRecords      int                  `json:"dropped_records"`
	CombinedOutput      string               `json:"combined_output,omitempty"`
	UnderenrolledOutput string               `json:"underenrolled_output,omitempty"`
	Error               string               `json:"error,omitempty"`
	Files               []FileStatus         `json:"files"`
	CreatedAt           time.Time            `json:"created_at"`
	UpdatedAt           time.Time            `json:"updated_at"`
}

// FileStatus is the per-file breakdown inside Status.
type FileStatus struct {
	Filename    string               `json:"filename"`
	SubjectCode string               `json:"subject_code"`
	TermYear    string               `json:"term_year"`
	Status      constants.FileStatus `json:"status"`
	Records     int                  `json:"records"`
	Dropped     int                  `json:"dropped"`
	Attempts    int                  `json:"attempts"`
	Error       string               `json:"error,omitempty"`
}

// Snapshot derives the polling view of t.
func (t *Task) Snapshot() Status {
	processed, failed, pending := t.Counts()
	s := Status{
		TaskID:         t.ID,
		Status:         t.Status,
		Progress:       t.Progress(),
		Processed:      processed,
		Failed:         failed,
		Pending:        pending,
		Total:          len(t.Files),
		DroppedRecords: t.DroppedRecords(),
		Error:          t.ErrorMessage,
		Files:          make([]FileStatus, 0, len(t.Files)),
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
	if o, ok := t.Output(OutputCombined); ok {
		s.CombinedOutput = o.Key
	}
	if o, ok := t.Output(OutputUnderenrolled); ok {
		s.UnderenrolledOutput = o.Key
	}
	for _, f := range t.Files {
		s.Files = append(s.Files, FileStatus{
			Filename:    f.Filename,
			SubjectCode: f.SubjectCode,
			TermYear:    f.TermYear,
			Status:      f.Status,
			Records:     f.Records,
			Dropped:     f.Dropped,
			Attempts:    f.Attempts,
			Error:       f.ErrorMessage,
		})
	}
	return s
}
