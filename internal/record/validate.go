package record

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/joseph-ayodele/course-extractor/internal/common"
)

// ErrorKind classifies why an entry was rejected.
type ErrorKind string

const (
	MissingField ErrorKind = "missing_field"
	InvalidField ErrorKind = "invalid_field"
)

// ValidationError rejects one raw entry. It unwraps to common.ErrValidation.
type ValidationError struct {
	Kind  ErrorKind
	Field string
	Value any
}

func (e *ValidationError) Error() string {
	if e.Kind == MissingField {
		return fmt.Sprintf("record: missing required field %q", e.Field)
	}
	return fmt.Sprintf("record: invalid value %v for field %q", e.Value, e.Field)
}

func (e *ValidationError) Unwrap() error {
	return common.ErrValidation
}

var reCRN = regexp.MustCompile(`^[A-Z0-9][A-Z0-9-]*$`)

// Validate turns a loosely typed entry into a Record.
//
// crn, subject_code and term_year are required. capacity, enrolled and
// credit_hours become nil when absent or not numeric; negative counts are
// treated as absent. Unknown keys are ignored.
func Validate(raw map[string]any) (Record, error) {
	crn := strings.ToUpper(stringValue(raw["crn"]))
	if crn == "" {
		return Record{}, &ValidationError{Kind: MissingField, Field: "crn"}
	}
	if !reCRN.MatchString(crn) {
		return Record{}, &ValidationError{Kind: InvalidField, Field: "crn", Value: raw["crn"]}
	}
	subject := strings.ToUpper(stringValue(raw["subject_code"]))
	if subject == "" {
		return Record{}, &ValidationError{Kind: MissingField, Field: "subject_code"}
	}
	term := stringValue(raw["term_year"])
	if term == "" {
		return Record{}, &ValidationError{Kind: MissingField, Field: "term_year"}
	}

	return Record{
		CRN:           crn,
		SubjectCode:   subject,
		CourseNumber:  strings.ToUpper(stringValue(raw["course_number"])),
		Title:         stringValue(raw["title"]),
		ScheduleType:  stringValue(raw["schedule_type"]),
		Modality:      stringValue(raw["modality"]),
		CreditHours:   nonNegativeFloat(raw["credit_hours"]),
		Capacity:      nonNegativeInt(raw["capacity"]),
		Enrolled:      nonNegativeInt(raw["enrolled"]),
		Instructor:    stringValue(raw["instructor"]),
		DaysTime:      stringValue(raw["days_time"]),
		Location:      stringValue(raw["location"]),
		TermYear:      term,
		SourceFile:    stringValue(raw["source_file"]),
		IsCrossListed: boolValue(raw["is_cross_listed"]),
	}, nil
}
