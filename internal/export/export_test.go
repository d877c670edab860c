package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/course-extractor/internal/common"
	"github.com/joseph-ayodele/course-extractor/internal/entity"
	"github.com/joseph-ayodele/course-extractor/internal/merge"
	"github.com/joseph-ayodele/course-extractor/internal/record"
)

func sample() []record.Record {
	return []record.Record{
		{CRN: "10001", SubjectCode: "CS", CourseNumber: "5024", Title: "Compilers, Advanced", CreditHours: record.FloatPtr(3), Capacity: record.IntPtr(30), Enrolled: record.IntPtr(3), TermYear: "202409", SourceFile: "A; B", IsCrossListed: true},
		{CRN: "10002", SubjectCode: "CS", TermYear: "202409", SourceFile: "A"},
	}
}

func TestRenderCSVHeaderAndRows(t *testing.T) {
	b, err := RenderCSV(sample())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(record.Columns, ","), lines[0])
	assert.Equal(t, `10001,CS,5024,"Compilers, Advanced",,,3,30,3,,,,202409,A; B,true`, lines[1])
	assert.Equal(t, "10002,CS,,,,,,,,,,,202409,A,false", lines[2])
}

func TestRenderCSVEmpty(t *testing.T) {
	b, err := RenderCSV(nil)
	require.NoError(t, err)
	assert.Equal(t, strings.Join(record.Columns, ",")+"\n", string(b))
}

func TestReadCSVRoundTrip(t *testing.T) {
	b, err := RenderCSV(sample())
	require.NoError(t, err)

	recs, dropped, err := ReadCSV(bytes.NewReader(append(b, []byte(",CS,,,,,,,,,,,202409,A,false\n")...)))
	require.NoError(t, err)
	assert.Equal(t, 1, dropped)
	assert.Equal(t, sample(), recs)
}

func TestReadCSVEmptyInput(t *testing.T) {
	_, _, err := ReadCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, common.ErrInput)
}

func TestRenderWorkbookSheets(t *testing.T) {
	b, err := RenderWorkbook(sample(), sample()[:1])
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	assert.Equal(t, []string{"Graduate Courses", "Underenrolled"}, f.GetSheetList())
	v, err := f.GetCellValue("Graduate Courses", "A2")
	require.NoError(t, err)
	assert.Equal(t, "10001", v)
	rows, err := f.GetRows("Underenrolled")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestServiceRenderNames(t *testing.T) {
	res := merge.Merge(sample(), merge.Options{})
	arts, err := NewService(true, nil).Render("task1", res)
	require.NoError(t, err)
	require.Len(t, arts, 3)
	assert.Equal(t, entity.OutputCombined, arts[0].Kind)
	assert.Equal(t, "task1_all_graduate_courses.csv", arts[0].Name)
	assert.Equal(t, "task1_underenrolled_courses.csv", arts[1].Name)
	assert.Equal(t, "task1_courses.xlsx", arts[2].Name)

	arts, err = NewService(false, nil).Render("task1", res)
	require.NoError(t, err)
	assert.Len(t, arts, 2)
}
