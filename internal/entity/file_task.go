package entity

import (
	"time"

	"github.com/joseph-ayodele/course-extractor/constants"
)

// FileTask represents one uploaded timetable document inside a task.
type FileTask struct {
	Index        int                  `json:"index"`
	Filename     string               `json:"filename"`
	UploadKey    string               `json:"upload_key"`
	SizeBytes    int64                `json:"size_bytes"`
	ContentHash  string               `json:"sha256,omitempty"`
	SubjectCode  string               `json:"subject_code"`
	TermYear     string               `json:"term_year"`
	Status       constants.FileStatus `json:"status"`
	Records      int                  `json:"records"`
	Dropped      int                  `json:"dropped"`
	Attempts     int                  `json:"attempts"`
	Pages        int                  `json:"pages,omitempty"`
	TextMethod   string               `json:"text_method,omitempty"`
	ErrorMessage string               `json:"error,omitempty"`
	StartedAt    *time.Time           `json:"started_at,omitempty"`
	FinishedAt   *time.Time           `json:"finished_at,omitempty"`
}

