// Package matching computes, for every primary row and every secondary
// sheet, whether the row's composite keys appear in that sheet.
//
// Availability is tracked per (primary row, secondary sheet) pair. For each
// pair the row's candidate keys are tried in priority order and the first
// one present in the sheet's key set decides the match and the reported
// transaction type. Two row-level aggregates are kept for the remarks
// engine: the first key that matched in any sheet (in sheet order) and
// whether the row matched anywhere.
package matching

import (
	"fmt"

	"github.com/ginjaninja78/ledger-reconciler/internal/config"
	"github.com/ginjaninja78/ledger-reconciler/internal/keys"
	"github.com/ginjaninja78/ledger-reconciler/internal/types"
)

// Internal columns written to the primary table. They are read by the
// remarks engine and dropped before the output is written.
const (
	MatchedKeyColumn = "_matched_key"
	HasMatchColumn   = "_has_match"
)

// Availability labels.
const (
	Yes = "Yes"
	No  = "No"
)

// InternalColumns lists the columns the engine adds for internal use.
var InternalColumns = []string{MatchedKeyColumn, HasMatchColumn}

// Source is one secondary sheet taking part in matching.
type Source struct {
	Name   string
	Table  *types.Table
	Config *config.SheetConfig
}

// Record is the match outcome of one primary row against one secondary sheet.
type Record struct {
	Available bool
	TransType string
	Key       string
}

// Result holds the outcome for every primary row.
type Result struct {
	// Sheets lists the secondary sheet names in processing order.
	Sheets []string

	// Records[sheet][row] is the record of primary row `row` against `sheet`.
	Records map[string][]Record

	// MatchedKeys[row] is the first key matched in any sheet, or "".
	MatchedKeys []string

	// HasMatch[row] is true when the row matched at least one sheet.
	HasMatch []bool
}

// Match runs the matching phase.
//
// PARAMETERS:
//   - primary: The primary table.
//   - primaryCfg: The primary sheet configuration (keys and labels).
//   - secondaries: Secondary sheets in processing order.
//
// RETURNS:
//   - The per-row, per-sheet match result. Neither input table is modified.
//   - An error if a secondary source is incomplete.
func Match(primary *types.Table, primaryCfg *config.SheetConfig, secondaries []Source) (*Result, error) {
	keySets := make(map[string]map[string]struct{}, len(secondaries))
	res := &Result{
		Records:     make(map[string][]Record, len(secondaries)),
		MatchedKeys: make([]string, primary.Len()),
		HasMatch:    make([]bool, primary.Len()),
	}

	for _, src := range secondaries {
		if src.Table == nil || src.Config == nil {
			return nil, fmt.Errorf("secondary sheet %s has no table or configuration", src.Name)
		}
		keySets[src.Name] = keys.Set(src.Table, src.Config)
		res.Sheets = append(res.Sheets, src.Name)
		res.Records[src.Name] = make([]Record, primary.Len())
	}

	for i, row := range primary.Rows {
		candidates := keys.Generate(row, primaryCfg)

		for _, name := range res.Sheets {
			rec := matchSheet(candidates, keySets[name], primaryCfg)
			res.Records[name][i] = rec

			if rec.Available {
				res.HasMatch[i] = true
				if res.MatchedKeys[i] == "" {
					res.MatchedKeys[i] = rec.Key
				}
			}
		}
	}

	return res, nil
}

// matchSheet scans candidates in priority order against one key set.
func matchSheet(candidates []keys.Key, set map[string]struct{}, cfg *config.SheetConfig) Record {
	for _, k := range candidates {
		if _, ok := set[k.Composite]; ok {
			return Record{
				Available: true,
				TransType: cfg.TransTypeLabel(k.Column),
				Key:       k.Composite,
			}
		}
	}
	return Record{}
}

// Apply writes the result onto the primary table: the configured
// availability and transaction-type columns for each secondary sheet, and
// the internal aggregate columns.
func (r *Result) Apply(t *types.Table, outputs map[string]config.OutputColumns) {
	matched := make([]types.Value, len(r.MatchedKeys))
	hasMatch := make([]types.Value, len(r.HasMatch))
	for i := range r.MatchedKeys {
		matched[i] = r.MatchedKeys[i]
		hasMatch[i] = r.HasMatch[i]
	}
	t.SetColumn(MatchedKeyColumn, matched)
	t.SetColumn(HasMatchColumn, hasMatch)

	for _, name := range r.Sheets {
		out, ok := outputs[name]
		if !ok {
			continue
		}
		records := r.Records[name]

		if out.Availability != "" {
			values := make([]types.Value, len(records))
			for i, rec := range records {
				values[i] = No
				if rec.Available {
					values[i] = Yes
				}
			}
			t.SetColumn(out.Availability, values)
		}

		if out.TransType != "" {
			values := make([]types.Value, len(records))
			for i, rec := range records {
				values[i] = rec.TransType
			}
			t.SetColumn(out.TransType, values)
		}
	}
}

// Counts returns how many primary rows are available against each sheet.
func (r *Result) Counts() map[string]int {
	out := make(map[string]int, len(r.Sheets))
	for _, name := range r.Sheets {
		n := 0
		for _, rec := range r.Records[name] {
			if rec.Available {
				n++
			}
		}
		out[name] = n
	}
	return out
}

// Unmatched returns the number of primary rows with no match anywhere.
func (r *Result) Unmatched() int {
	n := 0
	for _, ok := range r.HasMatch {
		if !ok {
			n++
		}
	}
	return n
}
