package table

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/querylens/querylens-engine/pkg/apperrors"
)

// temporalLayouts are the date/timestamp formats recognized during type
// inference, most specific first.
var temporalLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
	"2006/01/02",
}

// Read parses raw file content into a Table. The filename extension
// selects the parser: .csv or .xlsx. Anything else is rejected.
func Read(content []byte, filename string) (*Table, error) {
	switch {
	case strings.HasSuffix(strings.ToLower(filename), ".csv"):
		return ReadCSV(content)
	case strings.HasSuffix(strings.ToLower(filename), ".xlsx"):
		return ReadXLSX(content)
	default:
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnsupportedFile, filename)
	}
}

// ReadCSV parses CSV content. The first record is the header row.
func ReadCSV(content []byte) (*Table, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csv file is empty")
	}

	return buildTable(records[0], records[1:])
}

// ReadXLSX parses the first sheet of a spreadsheet. Exported sheets often
// carry title rows above the real header; when more than half of the
// header cells are blank the reader retries with the next row as header,
// up to 5 rows down.
func ReadXLSX(content []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("spreadsheet has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheets[0])
	}

	// GetRows trims trailing empty cells, so pad every row to the widest
	// row before judging which one is the header.
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	for i, row := range rows {
		if len(row) < width {
			padded := make([]string, width)
			copy(padded, row)
			rows[i] = padded
		}
	}

	headerIdx := 0
	for skip := 0; skip < 5 && skip < len(rows); skip++ {
		if countBlank(rows[skip])*2 <= width {
			headerIdx = skip
			break
		}
	}

	return buildTable(rows[headerIdx], rows[headerIdx+1:])
}

func countBlank(cells []string) int {
	blank := 0
	for _, c := range cells {
		if strings.TrimSpace(c) == "" {
			blank++
		}
	}
	return blank
}

// buildTable assembles a typed Table from a header row and data records.
// Fully-empty rows and fully-empty columns are dropped, then each column's
// semantic type is inferred from its non-empty values.
func buildTable(header []string, records [][]string) (*Table, error) {
	width := len(header)
	for _, rec := range records {
		if len(rec) > width {
			width = len(rec)
		}
	}
	if width == 0 {
		return nil, fmt.Errorf("no columns found")
	}

	names := make([]string, width)
	for i := range names {
		if i < len(header) {
			names[i] = strings.TrimSpace(header[i])
		}
		if names[i] == "" {
			names[i] = fmt.Sprintf("column_%d", i+1)
		}
	}

	// Normalize record widths and drop fully-empty rows.
	var cells [][]string
	for _, rec := range records {
		row := make([]string, width)
		empty := true
		for i := 0; i < width && i < len(rec); i++ {
			row[i] = strings.TrimSpace(rec[i])
			if row[i] != "" {
				empty = false
			}
		}
		if !empty {
			cells = append(cells, row)
		}
	}

	// Drop columns with no header data and no values.
	keep := make([]int, 0, width)
	for c := 0; c < width; c++ {
		hasValue := false
		for _, row := range cells {
			if row[c] != "" {
				hasValue = true
				break
			}
		}
		if hasValue || (c < len(header) && strings.TrimSpace(header[c]) != "") {
			keep = append(keep, c)
		}
	}
	if len(keep) == 0 {
		return nil, fmt.Errorf("no columns found")
	}

	cols := make([]Column, len(keep))
	for i, c := range keep {
		cols[i] = Column{Name: names[c], Type: inferColumnType(cells, c)}
	}

	rows := make([][]any, len(cells))
	for r, rec := range cells {
		row := make([]any, len(keep))
		for i, c := range keep {
			row[i] = convertCell(rec[c], cols[i].Type)
		}
		rows[r] = row
	}

	return &Table{cols: cols, rows: rows}, nil
}

// inferColumnType classifies a column from its non-empty values: numeric
// if every value parses as a number, temporal if every value parses as a
// known date layout, otherwise text. A column with no values is unknown.
func inferColumnType(cells [][]string, col int) ColumnType {
	seen, numeric, temporal := 0, 0, 0
	for _, row := range cells {
		v := row[col]
		if v == "" {
			continue
		}
		seen++
		if _, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", ""), 64); err == nil {
			numeric++
			continue
		}
		if isTemporal(v) {
			temporal++
		}
	}
	switch {
	case seen == 0:
		return ColumnUnknown
	case numeric == seen:
		return ColumnNumeric
	case temporal == seen:
		return ColumnTemporal
	default:
		return ColumnText
	}
}

func isTemporal(v string) bool {
	for _, layout := range temporalLayouts {
		if _, err := time.Parse(layout, v); err == nil {
			return true
		}
	}
	return false
}

func convertCell(v string, t ColumnType) any {
	if v == "" {
		return nil
	}
	if t == ColumnNumeric {
		f, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", ""), 64)
		if err != nil {
			return nil
		}
		return f
	}
	return v
}
