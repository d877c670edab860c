package constants

import "strings"

const (
	// GraduateLevelThreshold is the lowest course number treated as graduate level.
	GraduateLevelThreshold = 5000
	// UnderenrolledThreshold is the enrollment below which a section is underenrolled.
	UnderenrolledThreshold = 6
)

// Output artifact suffixes; the task ID is prepended.
const (
	CombinedOutputSuffix      = "_all_graduate_courses.csv"
	UnderenrolledOutputSuffix = "_underenrolled_courses.csv"
	WorkbookOutputSuffix      = "_courses.xlsx"
)

// IgnoreCourses are titles that never count as underenrolled sections.
var IgnoreCourses = []string{
	"Research and Dissertation",
	"Project and Report",
	"Independent Study",
	"Research and Thesis",
	"Final Examination",
	"Seminar",
	"Capstone Project",
}

// EngineeringCodes are the subject codes the registrar publishes engineering timetables for.
var EngineeringCodes = []string{
	"AOE", "BC", "BSE", "CEE", "CHE", "CS", "ECE", "ENGE",
	"ENGR", "ESM", "ISE", "ME", "MINE", "MSE", "NSEG",
}

// ExpectedHeaders are the timetable column headers as printed in the documents.
var ExpectedHeaders = []string{
	"CRN", "Course", "Title", "Schedule Type", "Modality", "Cr Hrs", "Seats",
	"Capacity", "Instructor", "Days", "Begin", "End", "Location",
}

// IsEngineeringCode reports whether code is one of EngineeringCodes (case-insensitive).
func IsEngineeringCode(code string) bool {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, c := range EngineeringCodes {
		if c == code {
			return true
		}
	}
	return false
}

// IsIgnoredTitle reports whether title matches one of titles, ignoring case and surrounding space.
func IsIgnoredTitle(title string, titles []string) bool {
	title = strings.TrimSpace(title)
	for _, t := range titles {
		if strings.EqualFold(title, strings.TrimSpace(t)) {
			return true
		}
	}
	return false
}
