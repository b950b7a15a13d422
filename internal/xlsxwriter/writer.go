// =============================================================================
// Ledger Reconciler - XLSX Writer Module
// =============================================================================
//
// This module writes the reconciled tables to a single multi-sheet workbook.
//
// WORKBOOK STRUCTURE:
//
//   FAEU      <- primary table, title upper-cased
//   Sukoon    <- one worksheet per secondary table, first letter upper-cased
//   ...
//
//   Row 1 of every worksheet is the bold header row; rows follow in table
//   order. Every table column is written, in table order. Date cells carry
//   a date number format so they read back as dates.
//
// =============================================================================

package xlsxwriter

import (
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/ledger-reconciler/internal/types"
)

// MaxTitleLength is the longest worksheet title a workbook accepts.
const MaxTitleLength = 31

// Number format codes for date cells.
const (
	dateFormat     = "yyyy-mm-dd"
	dateTimeFormat = "yyyy-mm-dd hh:mm:ss"
)

// Sheet is one worksheet to write.
type Sheet struct {
	Title string
	Table *types.Table
}

// titleInvalid replaces characters a worksheet title cannot contain.
var titleInvalid = strings.NewReplacer(
	":", "_", "\\", "_", "/", "_", "?", "_", "*", "_", "[", "_", "]", "_",
)

// PrimaryTitle returns the worksheet title for the primary table.
func PrimaryTitle(name string) string {
	return SanitizeTitle(strings.ToUpper(name))
}

// SecondaryTitle returns the worksheet title for a secondary table.
func SecondaryTitle(name string) string {
	return SanitizeTitle(types.Capitalize(name))
}

// SanitizeTitle makes name usable as a worksheet title.
func SanitizeTitle(name string) string {
	name = titleInvalid.Replace(strings.TrimSpace(name))
	if name == "" {
		name = "Sheet"
	}
	if r := []rune(name); len(r) > MaxTitleLength {
		name = string(r[:MaxTitleLength])
	}
	return name
}

// Write saves sheets as one workbook at path, overwriting any existing file.
//
// RETURNS:
//   - An error if two sheets share a title or the workbook cannot be saved.
func Write(path string, sheets []Sheet) error {
	if len(sheets) == 0 {
		return fmt.Errorf("no sheets to write")
	}

	f := excelize.NewFile()
	defer f.Close()

	st, err := newStyles(f)
	if err != nil {
		return err
	}

	defaultSheet := f.GetSheetName(0)
	seen := make(map[string]struct{}, len(sheets))

	for i, s := range sheets {
		title := SanitizeTitle(s.Title)
		key := strings.ToLower(title)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("duplicate worksheet title %q", title)
		}
		seen[key] = struct{}{}

		if i == 0 {
			if err := f.SetSheetName(defaultSheet, title); err != nil {
				return fmt.Errorf("failed to name worksheet %q: %w", title, err)
			}
		} else if _, err := f.NewSheet(title); err != nil {
			return fmt.Errorf("failed to create worksheet %q: %w", title, err)
		}

		if err := writeSheet(f, title, s.Table, st); err != nil {
			return fmt.Errorf("failed to write worksheet %q: %w", title, err)
		}
	}

	f.SetActiveSheet(0)

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

// styles are the cell style IDs shared by every worksheet.
type styles struct {
	header   int
	date     int
	dateTime int
}

func newStyles(f *excelize.File) (styles, error) {
	var (
		st  styles
		err error
	)
	if st.header, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err != nil {
		return st, fmt.Errorf("failed to create header style: %w", err)
	}
	date, dateTime := dateFormat, dateTimeFormat
	if st.date, err = f.NewStyle(&excelize.Style{CustomNumFmt: &date}); err != nil {
		return st, fmt.Errorf("failed to create date style: %w", err)
	}
	if st.dateTime, err = f.NewStyle(&excelize.Style{CustomNumFmt: &dateTime}); err != nil {
		return st, fmt.Errorf("failed to create date style: %w", err)
	}
	return st, nil
}

// cell wraps dates in a styled cell; other values are written as is.
func (st styles) cell(v types.Value) any {
	t, ok := v.(time.Time)
	if !ok {
		return v
	}
	if types.HasClock(t) {
		return excelize.Cell{StyleID: st.dateTime, Value: t}
	}
	return excelize.Cell{StyleID: st.date, Value: t}
}

// writeSheet streams one table into an existing worksheet.
func writeSheet(f *excelize.File, title string, t *types.Table, st styles) error {
	sw, err := f.NewStreamWriter(title)
	if err != nil {
		return err
	}

	header := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = excelize.Cell{StyleID: st.header, Value: c}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	for r, row := range t.Rows {
		values := make([]any, len(t.Columns))
		for i, c := range t.Columns {
			values[i] = st.cell(row[c])
		}

		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, values); err != nil {
			return err
		}
	}

	return sw.Flush()
}
