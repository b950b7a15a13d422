// =============================================================================
// Ledger Reconciler - CSV Table Loader
// =============================================================================
//
// This module reads statement exports saved as CSV into a types.Table. It
// handles:
//   - Different delimiters (comma, pipe, tab, semicolon)
//   - Legacy single-byte encodings (Windows-1252, ISO-8859-1)
//   - Quoted fields, ragged rows and blank lines
//
// TYPE INFERENCE:
//   A column whose non-empty values all parse as numbers is loaded as
//   float64; any other column keeps its text. Empty cells and the usual
//   missing-value markers ("NA", "N/A", "NULL", ...) are absent (nil).
//
// HEADER CLEANING:
//   Blank, repeated and ".N"-suffixed headers are dropped (types.CleanHeaders).
//
// =============================================================================

package csvparser

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/ginjaninja78/ledger-reconciler/internal/types"
)

// =============================================================================
// SETTINGS
// =============================================================================

// Settings controls how a CSV file is read.
type Settings struct {
	// Delimiter separates fields. Accepts a character or a name
	// ("tab", "pipe", "semicolon"). Default: ","
	Delimiter string

	// Encoding is the file's character encoding: "UTF-8", "Windows-1252"
	// or "ISO-8859-1". Default: "UTF-8"
	Encoding string
}

// DefaultSettings returns comma-separated UTF-8.
func DefaultSettings() Settings {
	return Settings{Delimiter: ",", Encoding: "UTF-8"}
}

// missingMarkers are cell texts read as absent values.
var missingMarkers = map[string]struct{}{
	"":     {},
	"NA":   {},
	"N/A":  {},
	"#N/A": {},
	"NULL": {},
	"null": {},
	"NaN":  {},
	"nan":  {},
}

// =============================================================================
// LOADER FUNCTIONS
// =============================================================================

// Load reads a CSV file into a table.
//
// PARAMETERS:
//   - path: The CSV file.
//   - name: The logical sheet name recorded on the table.
//   - settings: Delimiter and encoding.
//
// RETURNS:
//   - The loaded table with numeric columns converted.
//   - An error if the file cannot be read or has no header row.
func Load(path, name string, settings Settings) (*types.Table, error) {
	p, err := NewStreamingParser(path, settings)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	headers := p.Headers()
	var raw [][]string
	for p.Next() {
		raw = append(raw, p.Record())
	}
	if err := p.Err(); err != nil {
		return nil, err
	}

	table := &types.Table{Name: name, Columns: headers, SourceFile: path}
	numeric := inferNumericColumns(len(headers), raw)

	for _, record := range raw {
		row := make(types.Row, len(headers))
		for i, header := range headers {
			row[header] = convert(record[i], numeric[i])
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

// configureReader applies the delimiter and the lenient parsing options.
func configureReader(reader *csv.Reader, settings Settings) {
	switch settings.Delimiter {
	case "\\t", "tab", "TAB":
		reader.Comma = '\t'
	case "|", "pipe", "PIPE":
		reader.Comma = '|'
	case ";", "semicolon":
		reader.Comma = ';'
	default:
		if len(settings.Delimiter) > 0 {
			reader.Comma = rune(settings.Delimiter[0])
		} else {
			reader.Comma = ','
		}
	}

	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
}

// decoder wraps r with the decoder for the named encoding.
func decoder(r io.Reader, encoding string) (io.Reader, error) {
	switch strings.ToUpper(strings.TrimSpace(encoding)) {
	case "", "UTF-8", "UTF8":
		return r, nil
	case "WINDOWS-1252", "CP1252":
		return transform.NewReader(r, charmap.Windows1252.NewDecoder()), nil
	case "ISO-8859-1", "LATIN1", "LATIN-1":
		return transform.NewReader(r, charmap.ISO8859_1.NewDecoder()), nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", encoding)
	}
}

// inferNumericColumns reports, per column, whether every present value is
// a number. Columns with no present values stay text.
func inferNumericColumns(width int, rows [][]string) []bool {
	numeric := make([]bool, width)
	seen := make([]bool, width)
	for i := range numeric {
		numeric[i] = true
	}

	for _, record := range rows {
		for i := 0; i < width; i++ {
			if !numeric[i] || isMissing(record[i]) {
				continue
			}
			seen[i] = true
			if _, ok := parseNumber(record[i]); !ok {
				numeric[i] = false
			}
		}
	}

	for i := range numeric {
		numeric[i] = numeric[i] && seen[i]
	}
	return numeric
}

func convert(cell string, numeric bool) types.Value {
	if isMissing(cell) {
		return nil
	}
	if numeric {
		n, _ := parseNumber(cell)
		return n
	}
	return cell
}

func isMissing(cell string) bool {
	_, ok := missingMarkers[strings.TrimSpace(cell)]
	return ok
}

// parseNumber accepts plain decimal and exponent notation only.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if strings.ContainsAny(s, "xXpP_") {
		return 0, false
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// isRowEmpty checks if a row contains only empty values.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// =============================================================================
// STREAMING PARSER
// =============================================================================

// StreamingParser reads a CSV file one record at a time. Records are
// projected onto the cleaned header set and padded to its width.
//
// USAGE:
//
//	parser, err := NewStreamingParser(path, settings)
//	if err != nil {
//	    return err
//	}
//	defer parser.Close()
//
//	for parser.Next() {
//	    record := parser.Record()
//	    // Process the record...
//	}
//
//	if err := parser.Err(); err != nil {
//	    return err
//	}
type StreamingParser struct {
	file      *os.File
	reader    *csv.Reader
	headers   []string
	kept      []int
	current   []string
	rowNumber int
	err       error
}

// NewStreamingParser opens path and reads its header row.
func NewStreamingParser(path string, settings Settings) (*StreamingParser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	src, err := decoder(bufio.NewReader(file), settings.Encoding)
	if err != nil {
		file.Close()
		return nil, err
	}

	reader := csv.NewReader(src)
	configureReader(reader, settings)

	p := &StreamingParser{file: file, reader: reader}
	if err := p.readHeaders(); err != nil {
		file.Close()
		return nil, err
	}

	return p, nil
}

// readHeaders reads the first non-empty record as the header row.
func (p *StreamingParser) readHeaders() error {
	for {
		row, err := p.reader.Read()
		if err == io.EOF {
			return fmt.Errorf("CSV file is empty")
		}
		if err != nil {
			return fmt.Errorf("error reading header row: %w", err)
		}
		p.rowNumber++

		if isRowEmpty(row) {
			continue
		}

		// A UTF-8 byte order mark would otherwise stick to the first header.
		row[0] = strings.TrimPrefix(row[0], "\ufeff")

		p.kept = types.CleanHeaders(row)
		for _, idx := range p.kept {
			p.headers = append(p.headers, row[idx])
		}
		return nil
	}
}

// Next advances to the next non-empty record.
func (p *StreamingParser) Next() bool {
	for p.err == nil {
		row, err := p.reader.Read()
		if err == io.EOF {
			return false
		}
		if err != nil {
			p.err = fmt.Errorf("error reading row %d: %w", p.rowNumber+1, err)
			return false
		}
		p.rowNumber++

		if isRowEmpty(row) {
			continue
		}

		p.current = make([]string, len(p.kept))
		for i, idx := range p.kept {
			if idx < len(row) {
				p.current[i] = row[idx]
			}
		}
		return true
	}
	return false
}

// Record returns the current record, aligned with Headers.
func (p *StreamingParser) Record() []string {
	return p.current
}

// Headers returns the cleaned headers.
func (p *StreamingParser) Headers() []string {
	return p.headers
}

// RowNumber returns the current row number (1-indexed).
func (p *StreamingParser) RowNumber() int {
	return p.rowNumber
}

// Err returns any error that occurred during parsing.
func (p *StreamingParser) Err() error {
	return p.err
}

// Close closes the underlying file.
func (p *StreamingParser) Close() error {
	return p.file.Close()
}
