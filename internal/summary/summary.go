// Package summary reports the outcome of a reconciliation run: per sheet
// row totals, availability counts, remark counts, and the remark by
// transaction type breakdown.
package summary

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"

	"github.com/ginjaninja78/ledger-reconciler/internal/config"
	"github.com/ginjaninja78/ledger-reconciler/internal/rules"
	"github.com/ginjaninja78/ledger-reconciler/internal/types"
)

// Count is the number of rows holding one value.
type Count struct {
	Label string
	Count int
}

// ColumnCounts are the value counts of one column.
type ColumnCounts struct {
	Column string
	Counts []Count
}

// BreakdownRow counts rows with one (remark, transaction type) pair.
type BreakdownRow struct {
	Remark    string
	TransType string
	Count     int
}

// Breakdown groups primary remarks by the transaction type matched against
// one secondary sheet.
type Breakdown struct {
	Sheet string
	Rows  []BreakdownRow
}

// Sheet summarizes one table.
type Sheet struct {
	Name    string
	Primary bool
	Rows    int

	// Availability holds one entry per secondary sheet (primary only).
	Availability []ColumnCounts

	// Remarks is nil when the sheet has no remarks column.
	Remarks *ColumnCounts

	// Breakdowns is filled for the primary sheet only.
	Breakdowns []Breakdown
}

// Summary describes a complete run.
type Summary struct {
	RunID   string
	Output  string
	DryRun  bool
	Elapsed time.Duration
	Skipped []string
	Sheets  []Sheet
}

// Build computes the summary of the final tables.
//
// PARAMETERS:
//   - schema: The reconciliation schema (column names).
//   - primary: The primary table.
//   - secondaries: The secondary tables that took part in the run.
func Build(schema *config.Schema, primary rules.Sheet, secondaries []rules.Sheet) *Summary {
	s := &Summary{}

	ps := Sheet{Name: primary.Name, Primary: true, Rows: primary.Table.Len()}
	for _, sec := range secondaries {
		out := schema.Output(sec.Name)
		if out.Availability != "" && primary.Table.HasColumn(out.Availability) {
			ps.Availability = append(ps.Availability, ColumnCounts{
				Column: out.Availability,
				Counts: CountValues(primary.Table, out.Availability),
			})
		}
	}

	ps.Remarks = remarkCounts(schema, primary)
	if ps.Remarks != nil {
		for _, sec := range secondaries {
			out := schema.Output(sec.Name)
			if out.TransType == "" || !primary.Table.HasColumn(out.TransType) {
				continue
			}
			ps.Breakdowns = append(ps.Breakdowns, Breakdown{
				Sheet: sec.Name,
				Rows:  breakdown(primary.Table, ps.Remarks.Column, out.TransType),
			})
		}
	}
	s.Sheets = append(s.Sheets, ps)

	for _, sec := range secondaries {
		s.Sheets = append(s.Sheets, Sheet{
			Name:    sec.Name,
			Rows:    sec.Table.Len(),
			Remarks: remarkCounts(schema, sec),
		})
	}

	return s
}

func remarkCounts(schema *config.Schema, sheet rules.Sheet) *ColumnCounts {
	column := config.DefaultOutputColumn
	if rs, ok := schema.RuleSet(sheet.Name); ok {
		column = rs.OutputColumn
	}
	if !sheet.Table.HasColumn(column) {
		return nil
	}
	return &ColumnCounts{Column: column, Counts: CountValues(sheet.Table, column)}
}

// CountValues counts the rows per value of column, most frequent first and
// ties by label. Absent values are counted under "".
func CountValues(t *types.Table, column string) []Count {
	counts := make(map[string]int)
	for _, row := range t.Rows {
		counts[types.Text(row[column])]++
	}

	out := make([]Count, 0, len(counts))
	for label, n := range counts {
		out = append(out, Count{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// breakdown counts (remark, transaction type) pairs, skipping rows with no
// transaction type.
func breakdown(t *types.Table, remarkColumn, transTypeColumn string) []BreakdownRow {
	type pair struct{ remark, transType string }
	counts := make(map[pair]int)

	for _, row := range t.Rows {
		tt := types.Text(row[transTypeColumn])
		if tt == "" {
			continue
		}
		counts[pair{types.Text(row[remarkColumn]), tt}]++
	}

	out := make([]BreakdownRow, 0, len(counts))
	for p, n := range counts {
		out = append(out, BreakdownRow{Remark: p.remark, TransType: p.transType, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Remark != out[j].Remark {
			return out[i].Remark < out[j].Remark
		}
		return out[i].TransType < out[j].TransType
	})
	return out
}

// =============================================================================
// RENDERING
// =============================================================================

// Print renders the summary to w.
func Print(w io.Writer, s *Summary) error {
	r := lipgloss.NewRenderer(w)
	title := r.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	section := r.NewStyle().Bold(true)
	muted := r.NewStyle().Foreground(lipgloss.Color("#888888"))
	warn := r.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))

	fmt.Fprintln(w, title.Render("=== Reconciliation Summary ==="))
	if s.RunID != "" {
		fmt.Fprintln(w, muted.Render(fmt.Sprintf("Run %s (%s)", s.RunID, s.Elapsed.Round(time.Millisecond))))
	}
	for _, name := range s.Skipped {
		fmt.Fprintln(w, warn.Render(fmt.Sprintf("Skipped sheet %q: no source file found", name)))
	}

	for _, sheet := range s.Sheets {
		fmt.Fprintln(w)
		fmt.Fprintln(w, section.Render(fmt.Sprintf("%s Sheet", strings.ToUpper(sheet.Name))))
		fmt.Fprintf(w, "  Total rows: %d\n", sheet.Rows)

		var counts []ColumnCounts
		counts = append(counts, sheet.Availability...)
		if sheet.Remarks != nil {
			counts = append(counts, *sheet.Remarks)
		}
		if len(counts) > 0 {
			if err := renderCounts(w, counts); err != nil {
				return err
			}
		}

		for _, b := range sheet.Breakdowns {
			if len(b.Rows) == 0 {
				continue
			}
			fmt.Fprintln(w, section.Render(fmt.Sprintf("  Breakdown by %s Transaction Type", types.Capitalize(b.Sheet))))
			if err := renderBreakdown(w, b); err != nil {
				return err
			}
		}
	}

	fmt.Fprintln(w)
	switch {
	case s.DryRun:
		fmt.Fprintln(w, muted.Render("Dry run: no output written."))
	case s.Output != "":
		fmt.Fprintln(w, muted.Render("Output: "+s.Output))
	}
	fmt.Fprintln(w, title.Render("Reconciliation complete!"))
	return nil
}

func renderCounts(w io.Writer, columns []ColumnCounts) error {
	table := tablewriter.NewTable(w)
	table.Header("Column", "Value", "Rows")
	for _, c := range columns {
		for _, n := range c.Counts {
			label := n.Label
			if label == "" {
				label = "(empty)"
			}
			if err := table.Append(c.Column, label, n.Count); err != nil {
				return err
			}
		}
	}
	return table.Render()
}

func renderBreakdown(w io.Writer, b Breakdown) error {
	table := tablewriter.NewTable(w)
	table.Header("Remark", "Via", "Rows")
	for _, row := range b.Rows {
		if err := table.Append(row.Remark, row.TransType, row.Count); err != nil {
			return err
		}
	}
	return table.Render()
}
