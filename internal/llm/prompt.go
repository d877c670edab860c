package llm

import (
	"strings"

	"github.com/joseph-ayodele/course-extractor/constants"
)

// BuildSystemPrompt mandates the JSON envelope and maps timetable columns to record fields.
func BuildSystemPrompt() string {
	parts := []string{
		"You are a university timetable parser. Return ONLY a JSON object of the form {\"courses\": [ ... ]} with no prose and no code fences.",
		"Each element of \"courses\" is one course section with these keys: " + strings.Join(fieldKeys(), ", ") + ".",
		"The document columns are: " + strings.Join(constants.ExpectedHeaders, ", ") + ".",
		"Map them as follows: CRN -> crn; Course (for example \"CS 5024\") -> subject_code and course_number; Title -> title; " +
			"Schedule Type -> schedule_type; Modality -> modality; Cr Hrs -> credit_hours; Seats -> enrolled; Capacity -> capacity; " +
			"Instructor -> instructor; Days, Begin and End -> days_time (for example \"MW 10:00AM-11:15AM\"); Location -> location.",
		"credit_hours, capacity and enrolled are numbers. If Seats reads \"Full\", set enrolled equal to capacity.",
		"Use null for values that are not printed. Never invent CRNs.",
		"Emit one element per printed row; if a CRN is printed on several rows, repeat it.",
	}
	return strings.Join(parts, " ")
}

// BuildUserPrompt packages the document text with its submitted metadata.
// Text beyond maxChars is truncated; maxChars <= 0 disables truncation.
func BuildUserPrompt(text string, meta Metadata, maxChars int) string {
	var b strings.Builder
	if meta.SubjectCode != "" {
		b.WriteString("Subject code: ")
		b.WriteString(meta.SubjectCode)
		b.WriteString("\n")
	}
	if meta.TermYear != "" {
		b.WriteString("Term: ")
		b.WriteString(meta.TermYear)
		b.WriteString("\n")
	}
	if meta.SourceFile != "" {
		b.WriteString("Filename: ")
		b.WriteString(meta.SourceFile)
		b.WriteString("\n")
	}

	text = strings.TrimSpace(text)
	b.WriteString("\nTimetable text:\n")
	if maxChars > 0 && len(text) > maxChars {
		b.WriteString(text[:maxChars])
		b.WriteString("\n…(truncated)")
	} else {
		b.WriteString(text)
	}
	b.WriteString("\n\nReturn ONLY the JSON object.")
	return b.String()
}

func fieldKeys() []string {
	return []string{
		"crn", "subject_code", "course_number", "title", "schedule_type", "modality",
		"credit_hours", "capacity", "enrolled", "instructor", "days_time", "location",
	}
}
