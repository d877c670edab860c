package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/course-extractor/internal/record"
)

const (
	sheetCombined      = "Graduate Courses"
	sheetUnderenrolled = "Underenrolled"
)

// RenderWorkbook returns an XLSX workbook with one sheet per record set.
func RenderWorkbook(combined, underenrolled []record.Record) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	// The default sheet is renamed rather than left empty.
	if err := f.SetSheetName("Sheet1", sheetCombined); err != nil {
		return nil, fmt.Errorf("xlsx rename sheet: %w", err)
	}
	if _, err := f.NewSheet(sheetUnderenrolled); err != nil {
		return nil, fmt.Errorf("xlsx new sheet: %w", err)
	}
	activeIndex, _ := f.GetSheetIndex(sheetCombined)
	f.SetActiveSheet(activeIndex)

	for sheet, recs := range map[string][]record.Record{
		sheetCombined:      combined,
		sheetUnderenrolled: underenrolled,
	} {
		if err := writeSheet(f, sheet, recs); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet string, recs []record.Record) error {
	for i, h := range record.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("xlsx header: %w", err)
		}
	}

	for row, r := range recs {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row+2)
			_ = f.SetCellValue(sheet, cell, v)
		}
		for col, v := range r.Values() {
			write(col+1, v)
		}
		// numeric cells stay numeric so the sheet can sort and sum
		if r.CreditHours != nil {
			write(7, *r.CreditHours)
		}
		if r.Capacity != nil {
			write(8, *r.Capacity)
		}
		if r.Enrolled != nil {
			write(9, *r.Enrolled)
		}
		write(15, r.IsCrossListed)
	}

	// Widen a few columns
	_ = f.SetColWidth(sheet, "A", "C", 12) // crn, subject, number
	_ = f.SetColWidth(sheet, "D", "D", 40) // title
	_ = f.SetColWidth(sheet, "J", "L", 24) // instructor, days_time, location
	_ = f.SetColWidth(sheet, "N", "N", 36) // source_file
	if err := f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return fmt.Errorf("xlsx panes: %w", err)
	}
	return nil
}
