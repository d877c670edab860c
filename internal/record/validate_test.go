package record

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/course-extractor/internal/common"
)

func TestValidateRequiredFields(t *testing.T) {
	cases := []struct {
		name  string
		raw   map[string]any
		field string
	}{
		{"missing crn", map[string]any{"subject_code": "CS", "term_year": "202409"}, "crn"},
		{"blank crn", map[string]any{"crn": "   ", "subject_code": "CS", "term_year": "202409"}, "crn"},
		{"null crn", map[string]any{"crn": "null", "subject_code": "CS", "term_year": "202409"}, "crn"},
		{"missing subject", map[string]any{"crn": "10001", "term_year": "202409"}, "subject_code"},
		{"missing term", map[string]any{"crn": "10001", "subject_code": "CS"}, "term_year"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Validate(tc.raw)
			require.Error(t, err)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, MissingField, verr.Kind)
			assert.Equal(t, tc.field, verr.Field)
			assert.True(t, errors.Is(err, common.ErrValidation))
		})
	}
}

func TestValidateInvalidCRN(t *testing.T) {
	_, err := Validate(map[string]any{"crn": map[string]any{"x": 1}, "subject_code": "CS", "term_year": "202409"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, MissingField, verr.Kind)

	_, err = Validate(map[string]any{"crn": "100 01", "subject_code": "CS", "term_year": "202409"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, InvalidField, verr.Kind)
}

func TestValidateNormalizesAndCoerces(t *testing.T) {
	rec, err := Validate(map[string]any{
		"crn":           " 12345a ",
		"subject_code":  "cs",
		"course_number": "5024g",
		"title":         "Advanced Topics",
		"credit_hours":  "3",
		"capacity":      float64(40),
		"enrolled":      "12",
		"instructor":    "n/a",
		"term_year":     float64(202409),
		"unknown_key":   "ignored",
	})
	require.NoError(t, err)

	assert.Equal(t, "12345A", rec.CRN)
	assert.Equal(t, "CS", rec.SubjectCode)
	assert.Equal(t, "5024G", rec.CourseNumber)
	assert.Equal(t, "202409", rec.TermYear)
	assert.Equal(t, "", rec.Instructor)
	require.NotNil(t, rec.CreditHours)
	assert.Equal(t, 3.0, *rec.CreditHours)
	require.NotNil(t, rec.Capacity)
	assert.Equal(t, 40, *rec.Capacity)
	require.NotNil(t, rec.Enrolled)
	assert.Equal(t, 12, *rec.Enrolled)
}

func TestValidateDropsBadCountsToNull(t *testing.T) {
	for _, v := range []any{"Full", "abc", -3, float64(-1), true, map[string]any{}, nil, ""} {
		rec, err := Validate(map[string]any{
			"crn": "10001", "subject_code": "CS", "term_year": "202409",
			"capacity": v, "enrolled": v,
		})
		require.NoError(t, err, "value %v", v)
		assert.Nil(t, rec.Capacity, "value %v", v)
		assert.Nil(t, rec.Enrolled, "value %v", v)
	}
}

func TestValidateRoundTripThroughRaw(t *testing.T) {
	in := Record{
		CRN: "10001", SubjectCode: "ECE", CourseNumber: "5105", Title: "Networks",
		CreditHours: FloatPtr(3), Capacity: IntPtr(30), Enrolled: IntPtr(4),
		TermYear: "202409", SourceFile: "ece.pdf", IsCrossListed: true,
	}
	out, err := Validate(in.Raw())
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestNullCountAndCourseLevel(t *testing.T) {
	r := Record{CRN: "1", SubjectCode: "CS", TermYear: "202409"}
	assert.Equal(t, 10, r.NullCount())

	_, ok := r.CourseLevel()
	assert.False(t, ok)

	r.CourseNumber = "5024G"
	r.Enrolled = IntPtr(0)
	assert.Equal(t, 8, r.NullCount())
	level, ok := r.CourseLevel()
	assert.True(t, ok)
	assert.Equal(t, 5024, level)
}
