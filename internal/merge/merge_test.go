package merge

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/course-extractor/internal/record"
)

func rec(crn, term string, enrolled *int, source string) record.Record {
	return record.Record{CRN: crn, SubjectCode: "CS", TermYear: term, Enrolled: enrolled, SourceFile: source}
}

func TestMergeTwoFileScenario(t *testing.T) {
	in := []record.Record{
		rec("10001", "202409", record.IntPtr(3), "A"),
		rec("10002", "202409", record.IntPtr(40), "A"),
		rec("10001", "202409", record.IntPtr(3), "B"),
	}

	res := Merge(in, Options{})
	require.Len(t, res.Combined, 2)
	assert.Equal(t, "10001", res.Combined[0].CRN)
	assert.True(t, res.Combined[0].IsCrossListed)
	assert.Equal(t, "A; B", res.Combined[0].SourceFile)
	assert.False(t, res.Combined[1].IsCrossListed)

	require.Len(t, res.Underenrolled, 1)
	assert.Equal(t, "10001", res.Underenrolled[0].CRN)
	assert.Equal(t, 1, res.Collapsed)
}

func TestMergeSameFileDuplicateIsCrossListed(t *testing.T) {
	res := Merge([]record.Record{
		rec("10001", "202409", nil, "A"),
		rec("10001", "202409", nil, "A"),
	}, Options{})
	require.Len(t, res.Combined, 1)
	assert.True(t, res.Combined[0].IsCrossListed)
	assert.Equal(t, "A", res.Combined[0].SourceFile)
}

func TestMergePrefersMostCompleteRow(t *testing.T) {
	sparse := rec("10001", "202409", nil, "A")
	full := rec("10001", "202409", record.IntPtr(12), "B")
	full.Title = "Compilers"
	full.Instructor = "Ryder"

	res := Merge([]record.Record{sparse, full}, Options{})
	require.Len(t, res.Combined, 1)
	assert.Equal(t, "Compilers", res.Combined[0].Title)
	require.NotNil(t, res.Combined[0].Enrolled)
	assert.Equal(t, 12, *res.Combined[0].Enrolled)
}

func TestMergeTermYearIsPartOfIdentity(t *testing.T) {
	res := Merge([]record.Record{
		rec("10001", "202409", nil, "A"),
		rec("10001", "202501", nil, "A"),
	}, Options{})
	require.Len(t, res.Combined, 2)
	assert.False(t, res.Combined[0].IsCrossListed)
	assert.False(t, res.Combined[1].IsCrossListed)
}

func TestMergeZeroRecords(t *testing.T) {
	res := Merge(nil, DefaultOptions())
	assert.NotNil(t, res.Combined)
	assert.NotNil(t, res.Underenrolled)
	assert.Empty(t, res.Combined)
	assert.Empty(t, res.Underenrolled)
}

func TestMergeIsIdempotent(t *testing.T) {
	in := []record.Record{
		rec("10001", "202409", record.IntPtr(3), "A"),
		rec("10002", "202409", record.IntPtr(40), "A"),
		rec("10001", "202409", record.IntPtr(3), "B"),
		rec("9", "202409", nil, "C"),
	}
	first := Merge(in, DefaultOptions())

	// Re-ingest through the loose shape the CSV reader produces.
	var reread []record.Record
	for _, r := range first.Combined {
		v, err := record.Validate(r.Raw())
		require.NoError(t, err)
		reread = append(reread, v)
	}
	second := Merge(reread, DefaultOptions())

	if diff := cmp.Diff(first.Combined, second.Combined); diff != "" {
		t.Fatalf("combined changed on re-merge (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(first.Underenrolled, second.Underenrolled); diff != "" {
		t.Fatalf("underenrolled changed on re-merge (-first +second):\n%s", diff)
	}
}

func TestMergeUniqueKeysAndUnderenrollmentLaw(t *testing.T) {
	in := []record.Record{
		rec("3", "202409", record.IntPtr(0), "A"),
		rec("2", "202409", nil, "A"),
		rec("1", "202409", record.IntPtr(6), "A"),
		rec("3", "202409", record.IntPtr(5), "B"),
		rec("4", "202409", record.IntPtr(5), "B"),
	}
	res := Merge(in, Options{})

	seen := map[record.Key]bool{}
	for _, r := range res.Combined {
		assert.False(t, seen[r.Key()], "duplicate key %v", r.Key())
		seen[r.Key()] = true
	}
	for _, r := range res.Underenrolled {
		require.NotNil(t, r.Enrolled)
		assert.Less(t, *r.Enrolled, 6)
	}
	for _, r := range res.Combined {
		if r.Enrolled == nil {
			for _, u := range res.Underenrolled {
				assert.NotEqual(t, r.Key(), u.Key())
			}
		}
	}
	assert.Len(t, res.Underenrolled, 2)
}

func TestMergeKeepsUnknownEnrollmentWithoutGraduateFilter(t *testing.T) {
	in := []record.Record{
		{CRN: "1", SubjectCode: "CS", CourseNumber: "3114", TermYear: "202409"},
		{CRN: "2", SubjectCode: "CS", CourseNumber: "5024", TermYear: "202409"},
		{CRN: "3", SubjectCode: "CS", TermYear: "202409", Enrolled: record.IntPtr(2)},
		{CRN: "4", SubjectCode: "CS", CourseNumber: "1064", TermYear: "202409", Enrolled: record.IntPtr(30)},
	}

	res := Merge(in, Options{GraduateOnly: false})
	assert.Zero(t, res.Filtered)

	combined := map[record.Key]bool{}
	for _, r := range res.Combined {
		combined[r.Key()] = true
	}
	for _, r := range in {
		if r.Enrolled == nil {
			assert.True(t, combined[r.Key()], "record %s missing from combined output", r.CRN)
		}
	}
	require.Len(t, res.Underenrolled, 1)
	assert.Equal(t, "3", res.Underenrolled[0].CRN)

	grad := Merge(in, Options{GraduateOnly: true})
	assert.Equal(t, 2, grad.Filtered)
	require.Len(t, grad.Combined, 2)
}

func TestMergeSingleRowNeverCrossListedByItself(t *testing.T) {
	r := rec("10001", "202409", record.IntPtr(3), "A")
	res := Merge([]record.Record{r}, Options{})
	require.Len(t, res.Combined, 1)
	assert.False(t, res.Combined[0].IsCrossListed)
}

func TestMergeOrdering(t *testing.T) {
	mk := func(subject, number, crn string) record.Record {
		return record.Record{CRN: crn, SubjectCode: subject, CourseNumber: number, TermYear: "202409"}
	}
	res := Merge([]record.Record{
		mk("ECE", "5000", "1"),
		mk("CS", "5944", "20"),
		mk("CS", "5024", "100"),
		mk("CS", "5024", "99"),
		mk("CS", "", "5"),
	}, Options{})

	var got []string
	for _, r := range res.Combined {
		got = append(got, r.SubjectCode+" "+r.CourseNumber+" "+r.CRN)
	}
	assert.Equal(t, []string{"CS 5024 99", "CS 5024 100", "CS 5944 20", "CS  5", "ECE 5000 1"}, got)
}

func TestMergeGraduateFilterAndIgnoredTitles(t *testing.T) {
	under := record.Record{CRN: "1", SubjectCode: "CS", CourseNumber: "3114", TermYear: "202409", Enrolled: record.IntPtr(2)}
	grad := record.Record{CRN: "2", SubjectCode: "CS", CourseNumber: "5024", TermYear: "202409", Enrolled: record.IntPtr(2)}
	seminar := record.Record{CRN: "3", SubjectCode: "CS", CourseNumber: "5944", Title: "Seminar", TermYear: "202409", Enrolled: record.IntPtr(1)}
	unknown := record.Record{CRN: "4", SubjectCode: "CS", TermYear: "202409", Enrolled: record.IntPtr(1)}

	res := Merge([]record.Record{under, grad, seminar, unknown}, DefaultOptions())
	assert.Equal(t, 1, res.Filtered)
	require.Len(t, res.Combined, 3)

	var underCRNs []string
	for _, r := range res.Underenrolled {
		underCRNs = append(underCRNs, r.CRN)
	}
	assert.Equal(t, []string{"2", "4"}, underCRNs)
}

func TestMergeDoesNotMutateInput(t *testing.T) {
	in := []record.Record{rec("1", "202409", record.IntPtr(1), "A"), rec("1", "202409", record.IntPtr(1), "B")}
	_ = Merge(in, Options{})
	assert.False(t, in[0].IsCrossListed)
	assert.Equal(t, "A", in[0].SourceFile)
}
