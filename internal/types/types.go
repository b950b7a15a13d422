// =============================================================================
// Ledger Reconciler - Shared Types
// =============================================================================
//
// This package contains the tabular types shared by the loaders, the matching
// engine, the remarks engine and the writer. Keeping them here avoids import
// cycles between those packages.
//
// VALUE MODEL:
//   A cell Value is one of:
//     nil      - absent / missing cell
//     string   - text cell
//     float64  - numeric cell
//     time.Time - date cell (XLSX cells with a date number format)
//     bool     - only used for internal flags (e.g. _has_match)
//
// =============================================================================

package types

import (
	"strconv"
	"strings"
	"time"
)

// Layouts used to render date cells as text.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
)

// =============================================================================
// VALUE HELPERS
// =============================================================================

// Value is a single cell value. See the package comment for allowed types.
type Value = any

// IsEmpty reports whether a value is absent or the empty string.
// Numeric zero is NOT empty.
func IsEmpty(v Value) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	default:
		return false
	}
}

// IsNumeric reports whether a value holds a number.
func IsNumeric(v Value) bool {
	switch v.(type) {
	case float64, float32, int, int64, int32:
		return true
	default:
		return false
	}
}

// Text renders a value as text.
//
// RETURNS:
//   - "" for absent values
//   - the shortest decimal representation for numbers (1000, not 1000.0)
//   - "true"/"false" for booleans
//   - DateLayout for dates at midnight, DateTimeLayout otherwise
func Text(v Value) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		if HasClock(val) {
			return val.Format(DateTimeLayout)
		}
		return val.Format(DateLayout)
	default:
		return ""
	}
}

// HasClock reports whether t carries a time of day.
func HasClock(t time.Time) bool {
	h, m, s := t.Clock()
	return h != 0 || m != 0 || s != 0 || t.Nanosecond() != 0
}

// Truthy reports whether a value should be read as a true flag.
func Truthy(v Value) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(val))
		return err == nil && b
	case float64:
		return val != 0
	default:
		return false
	}
}

// =============================================================================
// ROW
// =============================================================================

// Row maps a column name to its cell value.
type Row map[string]Value

// Get returns the value stored under column and whether the column exists.
func (r Row) Get(column string) (Value, bool) {
	v, ok := r[column]
	return v, ok
}

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// =============================================================================
// TABLE
// =============================================================================

// Table is an ordered sequence of rows over a fixed, ordered column set.
type Table struct {
	// Name is the logical sheet name this table was loaded for.
	Name string

	// Columns holds the header names in source order.
	Columns []string

	// Rows holds the data rows in source order.
	Rows []Row

	// SourceFile is the path the table was loaded from, if any.
	SourceFile string
}

// NewTable creates an empty table with the given columns.
func NewTable(name string, columns ...string) *Table {
	return &Table{
		Name:    name,
		Columns: append([]string(nil), columns...),
	}
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// HasColumn reports whether the header contains column.
func (t *Table) HasColumn(column string) bool {
	for _, c := range t.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// Append adds a row built from values in column order.
// Missing trailing values are left absent.
func (t *Table) Append(values ...Value) {
	row := make(Row, len(t.Columns))
	for i, col := range t.Columns {
		if i < len(values) {
			row[col] = values[i]
		} else {
			row[col] = nil
		}
	}
	t.Rows = append(t.Rows, row)
}

// Get returns the value of column in row i, or nil when out of range.
func (t *Table) Get(i int, column string) Value {
	if i < 0 || i >= len(t.Rows) {
		return nil
	}
	return t.Rows[i][column]
}

// SetColumn writes one value per row into column, adding the column to the
// header if it is new. values must have exactly Len() entries.
func (t *Table) SetColumn(column string, values []Value) {
	if !t.HasColumn(column) {
		t.Columns = append(t.Columns, column)
	}
	for i, row := range t.Rows {
		if i < len(values) {
			row[column] = values[i]
		}
	}
}

// DropColumns removes the named columns from the header and every row.
func (t *Table) DropColumns(columns ...string) {
	drop := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		drop[c] = struct{}{}
	}

	kept := t.Columns[:0:0]
	for _, c := range t.Columns {
		if _, ok := drop[c]; !ok {
			kept = append(kept, c)
		}
	}
	t.Columns = kept

	for _, row := range t.Rows {
		for c := range drop {
			delete(row, c)
		}
	}
}

// Column returns every value of column in row order.
func (t *Table) Column(column string) []Value {
	out := make([]Value, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[column]
	}
	return out
}

// Clone returns a copy of the table whose rows can be modified independently.
func (t *Table) Clone() *Table {
	out := &Table{
		Name:       t.Name,
		Columns:    append([]string(nil), t.Columns...),
		Rows:       make([]Row, len(t.Rows)),
		SourceFile: t.SourceFile,
	}
	for i, row := range t.Rows {
		out.Rows[i] = row.Clone()
	}
	return out
}
