package llm

import (
	"regexp"
	"strings"
)

// keySynonyms maps column-style keys to record fields.
var keySynonyms = map[string]string{
	"course_reference_number": "crn",
	"subject":                 "subject_code",
	"subj":                    "subject_code",
	"number":                  "course_number",
	"course_no":               "course_number",
	"course_title":            "title",
	"type":                    "schedule_type",
	"cr_hrs":                  "credit_hours",
	"credits":                 "credit_hours",
	"credit":                  "credit_hours",
	"hours":                   "credit_hours",
	"seats":                   "enrolled",
	"enrollment":              "enrolled",
	"enrolment":               "enrolled",
	"cap":                     "capacity",
	"max_enrollment":          "capacity",
	"instructor_name":         "instructor",
	"instructors":             "instructor",
	"days_and_time":           "days_time",
	"room":                    "location",
	"term":                    "term_year",
}

var reCourse = regexp.MustCompile(`^([A-Za-z]{2,5})[\s-]*(\d{4}[A-Za-z]?)$`)

// normalizeEntry rewrites one generated entry into record field names.
// Existing canonical keys win over synonyms.
func normalizeEntry(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	aliased := make(map[string]any)
	for k, v := range in {
		key := strings.ToLower(strings.TrimSpace(k))
		key = strings.NewReplacer(" ", "_", "-", "_", ".", "").Replace(key)
		if canon, ok := keySynonyms[key]; ok {
			if _, seen := aliased[canon]; !seen {
				aliased[canon] = v
			}
			continue
		}
		out[key] = v
	}
	for k, v := range aliased {
		if isBlank(out[k]) {
			out[k] = v
		}
	}

	if course, ok := out["course"].(string); ok {
		if m := reCourse.FindStringSubmatch(strings.TrimSpace(course)); m != nil {
			if isBlank(out["subject_code"]) {
				out["subject_code"] = strings.ToUpper(m[1])
			}
			if isBlank(out["course_number"]) {
				out["course_number"] = strings.ToUpper(m[2])
			}
		} else if isBlank(out["course_number"]) {
			out["course_number"] = course
		}
		delete(out, "course")
	}

	if s, ok := out["enrolled"].(string); ok && strings.EqualFold(strings.TrimSpace(s), "full") {
		out["enrolled"] = out["capacity"]
	}

	if isBlank(out["days_time"]) {
		if dt := joinSchedule(out["days"], out["begin"], out["end"]); dt != "" {
			out["days_time"] = dt
		}
	}
	delete(out, "days")
	delete(out, "begin")
	delete(out, "end")
	return out
}

func joinSchedule(days, begin, end any) string {
	d, _ := days.(string)
	b, _ := begin.(string)
	e, _ := end.(string)
	d, b, e = strings.TrimSpace(d), strings.TrimSpace(b), strings.TrimSpace(e)
	span := b
	if b != "" && e != "" {
		span = b + "-" + e
	}
	return strings.TrimSpace(d + " " + span)
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}
