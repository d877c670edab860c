package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/joseph-ayodele/course-extractor/internal/common"
	"github.com/joseph-ayodele/course-extractor/internal/record"
)

// RenderCSV produces CSV bytes with a header row of record.Columns.
// An empty record set still yields the header.
func RenderCSV(recs []record.Record) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(record.Columns); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, r := range recs {
		if err := writer.Write(r.Values()); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// ReadCSV parses a combined artifact back into records. Headers are matched by
// name so column order may differ; rows that fail validation are counted and skipped.
func ReadCSV(r io.Reader) ([]record.Record, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, 0, common.InputError("csv is empty")
		}
		return nil, 0, fmt.Errorf("read csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(header[i], "\uFEFF")))
	}

	var out []record.Record
	dropped := 0
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read csv row: %w", err)
		}
		raw := make(map[string]any, len(header))
		for i, h := range header {
			if i < len(row) {
				raw[h] = row[i]
			}
		}
		rec, err := record.Validate(raw)
		if err != nil {
			dropped++
			continue
		}
		out = append(out, rec)
	}
	return out, dropped, nil
}
