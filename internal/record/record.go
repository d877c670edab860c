// Package record defines the canonical course-section record and its validator.
package record

import (
	"regexp"
	"strconv"
)

// Record is one course section as it appears in the combined output.
type Record struct {
	CRN           string   `json:"crn"`
	SubjectCode   string   `json:"subject_code"`
	CourseNumber  string   `json:"course_number"`
	Title         string   `json:"title"`
	ScheduleType  string   `json:"schedule_type"`
	Modality      string   `json:"modality"`
	CreditHours   *float64 `json:"credit_hours"`
	Capacity      *int     `json:"capacity"`
	Enrolled      *int     `json:"enrolled"`
	Instructor    string   `json:"instructor"`
	DaysTime      string   `json:"days_time"`
	Location      string   `json:"location"`
	TermYear      string   `json:"term_year"`
	SourceFile    string   `json:"source_file"`
	IsCrossListed bool     `json:"is_cross_listed"`
}

// Key is the natural identity of a section.
type Key struct {
	CRN      string
	TermYear string
}

// Columns is the artifact column order; it matches the JSON field names.
var Columns = []string{
	"crn",
	"subject_code",
	"course_number",
	"title",
	"schedule_type",
	"modality",
	"credit_hours",
	"capacity",
	"enrolled",
	"instructor",
	"days_time",
	"location",
	"term_year",
	"source_file",
	"is_cross_listed",
}

var reCourseDigits = regexp.MustCompile(`\d+`)

func (r Record) Key() Key {
	return Key{CRN: r.CRN, TermYear: r.TermYear}
}

// NullCount counts optional fields that carry no value.
func (r Record) NullCount() int {
	n := 0
	for _, s := range []string{
		r.CourseNumber, r.Title, r.ScheduleType, r.Modality,
		r.Instructor, r.DaysTime, r.Location,
	} {
		if s == "" {
			n++
		}
	}
	if r.CreditHours == nil {
		n++
	}
	if r.Capacity == nil {
		n++
	}
	if r.Enrolled == nil {
		n++
	}
	return n
}

// CourseLevel returns the numeric part of the course number (5024 for "5024G").
func (r Record) CourseLevel() (int, bool) {
	m := reCourseDigits.FindString(r.CourseNumber)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Clone returns a deep copy.
func (r Record) Clone() Record {
	out := r
	if r.CreditHours != nil {
		v := *r.CreditHours
		out.CreditHours = &v
	}
	if r.Capacity != nil {
		v := *r.Capacity
		out.Capacity = &v
	}
	if r.Enrolled != nil {
		v := *r.Enrolled
		out.Enrolled = &v
	}
	return out
}

// Values renders the record in Columns order; null values become empty strings.
func (r Record) Values() []string {
	return []string{
		r.CRN,
		r.SubjectCode,
		r.CourseNumber,
		r.Title,
		r.ScheduleType,
		r.Modality,
		formatFloat(r.CreditHours),
		formatInt(r.Capacity),
		formatInt(r.Enrolled),
		r.Instructor,
		r.DaysTime,
		r.Location,
		r.TermYear,
		r.SourceFile,
		strconv.FormatBool(r.IsCrossListed),
	}
}

// Raw converts the record back into the loosely typed shape Validate accepts.
func (r Record) Raw() map[string]any {
	raw := make(map[string]any, len(Columns))
	for i, v := range r.Values() {
		raw[Columns[i]] = v
	}
	return raw
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// IntPtr is a small helper for building records in code.
func IntPtr(v int) *int { return &v }

// FloatPtr is a small helper for building records in code.
func FloatPtr(v float64) *float64 { return &v }
