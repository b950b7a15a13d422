// =============================================================================
// Ledger Reconciler - XLSX Table Loader
// =============================================================================
//
// This module reads one worksheet of an XLSX workbook into a types.Table.
//
// SHEET LAYOUT:
//   Row 1 holds the column headers; data starts on row 2.
//
//   | Policy No          | Ins Tax Invoice         | Total Premium(AED) |
//   |--------------------|-------------------------|--------------------|
//   | OIGM2024001 (EBP)  | DNMD0012/SHMIU25000012  | 1,250.00           |
//
// CELL TYPES:
//   - Cells stored as numbers become float64
//   - Numbers whose cell style has a date number format become time.Time
//   - Boolean cells become bool
//   - Everything else is kept as text
//   - Empty cells are absent (nil)
//
// HEADER CLEANING:
//   Blank, repeated and ".N"-suffixed headers are dropped (types.CleanHeaders).
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/ledger-reconciler/internal/types"
)

// =============================================================================
// OPTIONS
// =============================================================================

// Options controls which part of the workbook is read.
type Options struct {
	// Sheet is the worksheet to read. Empty means the first sheet.
	Sheet string

	// HeaderRow is the row holding the headers (0-based).
	// Default: 0 (Row 1)
	HeaderRow int
}

// DefaultOptions returns the default loader options.
func DefaultOptions() Options {
	return Options{HeaderRow: 0}
}

// =============================================================================
// LOADER FUNCTIONS
// =============================================================================

// Load reads the first worksheet of an XLSX file.
//
// PARAMETERS:
//   - path: The workbook path.
//   - name: The logical sheet name recorded on the table.
//
// RETURNS:
//   - The loaded table.
//   - An error if the file cannot be opened or read.
func Load(path, name string) (*types.Table, error) {
	return LoadWithOptions(path, name, DefaultOptions())
}

// LoadWithOptions reads a worksheet using custom options.
func LoadWithOptions(path, name string, opts Options) (*types.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := opts.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	if sheet == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read rows of sheet %q: %w", sheet, err)
	}

	cells := newCellReader(f, sheet)

	table := &types.Table{Name: name, SourceFile: path}
	if len(rows) <= opts.HeaderRow {
		return table, nil
	}

	headers := rows[opts.HeaderRow]
	kept := types.CleanHeaders(headers)
	for _, idx := range kept {
		table.Columns = append(table.Columns, headers[idx])
	}

	for r := opts.HeaderRow + 1; r < len(rows); r++ {
		raw := rows[r]
		if isRowEmpty(raw) {
			continue
		}

		row := make(types.Row, len(kept))
		for _, idx := range kept {
			var value types.Value
			if idx < len(raw) && raw[idx] != "" {
				value, err = cells.value(idx, r, raw[idx])
				if err != nil {
					return nil, err
				}
			}
			row[headers[idx]] = value
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// cellReader converts raw cell strings of one worksheet.
type cellReader struct {
	f        *excelize.File
	sheet    string
	date1904 bool

	// dateStyles caches whether a style ID formats numbers as dates.
	dateStyles map[int]bool
}

func newCellReader(f *excelize.File, sheet string) *cellReader {
	c := &cellReader{f: f, sheet: sheet, dateStyles: make(map[int]bool)}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		c.date1904 = *props.Date1904
	}
	return c
}

// value converts a raw cell string according to the stored cell type.
// col and row are 0-based.
func (c *cellReader) value(col, row int, raw string) (types.Value, error) {
	ref, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return nil, fmt.Errorf("invalid cell position %d,%d: %w", col, row, err)
	}

	cellType, err := c.f.GetCellType(c.sheet, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to read type of cell %s: %w", ref, err)
	}

	switch cellType {
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			break
		}
		isDate, err := c.isDate(ref)
		if err != nil {
			return nil, err
		}
		if isDate {
			if t, err := excelize.ExcelDateToTime(n, c.date1904); err == nil {
				return t, nil
			}
		}
		return n, nil
	case excelize.CellTypeDate:
		for _, layout := range isoLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return t, nil
			}
		}
	case excelize.CellTypeBool:
		return raw == "1" || strings.EqualFold(raw, "true"), nil
	}

	return raw, nil
}

// isoLayouts are the forms of an ISO 8601 date cell value.
var isoLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// isDate reports whether the style of cell ref has a date number format.
func (c *cellReader) isDate(ref string) (bool, error) {
	id, err := c.f.GetCellStyle(c.sheet, ref)
	if err != nil {
		return false, fmt.Errorf("failed to read style of cell %s: %w", ref, err)
	}
	if id == 0 {
		return false, nil
	}
	if isDate, ok := c.dateStyles[id]; ok {
		return isDate, nil
	}

	style, err := c.f.GetStyle(id)
	if err != nil {
		return false, fmt.Errorf("failed to read style %d: %w", id, err)
	}
	isDate := isDateNumFmt(style.NumFmt)
	if style.CustomNumFmt != nil {
		isDate = isDateFormat(*style.CustomNumFmt)
	}
	c.dateStyles[id] = isDate
	return isDate, nil
}

// isDateNumFmt reports whether a built-in number format ID is a date or
// time format.
func isDateNumFmt(id int) bool {
	switch {
	case id >= 14 && id <= 22,
		id >= 27 && id <= 36,
		id >= 45 && id <= 47,
		id >= 50 && id <= 58:
		return true
	}
	return false
}

// isDateFormat reports whether a number format code renders dates. Quoted
// literals, escaped characters and bracketed sections ("[Red]", "[$-409]")
// are ignored; any remaining y, d or m token marks a date.
func isDateFormat(code string) bool {
	code = strings.ToLower(code)
	if section, _, ok := strings.Cut(code, ";"); ok {
		code = section
	}

	var (
		quoted  bool
		bracket bool
		escaped bool
	)
	for _, r := range code {
		switch {
		case escaped:
			escaped = false
		case quoted:
			quoted = r != '"'
		case bracket:
			bracket = r != ']'
		case r == '\\':
			escaped = true
		case r == '"':
			quoted = true
		case r == '[':
			bracket = true
		case r == 'y' || r == 'd' || r == 'm':
			return true
		}
	}
	return false
}

// isRowEmpty checks if a row contains only empty cells.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
