package rules

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ginjaninja78/ledger-reconciler/internal/config"
	"github.com/ginjaninja78/ledger-reconciler/internal/keys"
	"github.com/ginjaninja78/ledger-reconciler/internal/matching"
	"github.com/ginjaninja78/ledger-reconciler/internal/types"
	"github.com/ginjaninja78/ledger-reconciler/pkg/errors"
)

// Sheet is a loaded table under its schema name.
type Sheet struct {
	Name  string
	Table *types.Table
}

// Stats summarizes one remarks pass.
type Stats struct {
	// Applied is false when the sheet has no rule set.
	Applied bool

	// OutputColumn is the column the remarks were written to.
	OutputColumn string

	// Rows is the number of rows classified.
	Rows int

	// Matched is the number of rows with a resolved counterpart row.
	Matched int

	// SelfDuplicates counts keys repeated within the target sheet.
	SelfDuplicates int

	// ByRemark counts rows per assigned remark.
	ByRemark map[string]int
}

type sheetIndex struct {
	name  string
	index *keys.Index
}

// ApplyRemarks classifies every row of target and writes the remark into
// the rule set's output column.
//
// PARAMETERS:
//   - target: The table to classify. It is modified in place.
//   - sheetName: The schema name of target.
//   - schema: The reconciliation schema.
//   - sheets: Every loaded sheet in load order (primary first). Sheets
//     other than sheetName are indexed for counterpart resolution in
//     this order.
//   - logger: Receives diagnostics such as duplicate keys.
//
// RETURNS:
//   - Statistics for the pass. Stats.Applied is false and target is
//     unchanged when the sheet has no rule set.
//   - A *errors.ConfigError if a sheet involved has no configuration.
func ApplyRemarks(target *types.Table, sheetName string, schema *config.Schema, sheets []Sheet, logger zerolog.Logger) (Stats, error) {
	rs, ok := schema.RuleSet(sheetName)
	if !ok {
		return Stats{}, nil
	}

	targetCfg, ok := schema.Sheet(sheetName)
	if !ok {
		return Stats{}, errors.NewConfigError("schema",
			fmt.Sprintf("remarks rules reference undefined sheet %q", sheetName), errors.ErrNotFound)
	}

	// Indices are rebuilt on every pass so they see columns written by
	// earlier phases.
	var external []sheetIndex
	for _, s := range sheets {
		if s.Name == sheetName {
			continue
		}
		cfg, ok := schema.Sheet(s.Name)
		if !ok {
			return Stats{}, errors.NewConfigError("schema",
				fmt.Sprintf("sheet %q is loaded but not defined", s.Name), errors.ErrNotFound)
		}
		external = append(external, sheetIndex{name: s.Name, index: keys.BuildIndex(s.Table, cfg)})
	}

	self := keys.BuildIndex(target, targetCfg)
	if self.Duplicates() > 0 {
		logger.Debug().
			Str("sheet", sheetName).
			Int("duplicates", self.Duplicates()).
			Msg("Duplicate composite keys in sheet; first row wins")
	}

	eval := NewEvaluator(schema, sheetName)
	stats := Stats{
		Applied:        true,
		OutputColumn:   rs.OutputColumn,
		Rows:           target.Len(),
		SelfDuplicates: self.Duplicates(),
		ByRemark:       make(map[string]int),
	}

	remarks := make([]types.Value, target.Len())
	for i, row := range target.Rows {
		matched := resolveMatched(row, targetCfg, external)
		if matched != nil {
			stats.Matched++
		}

		remark := classify(eval, rs, Context{Row: row, Matched: matched})
		remarks[i] = remark
		stats.ByRemark[remark]++
	}

	target.SetColumn(rs.OutputColumn, remarks)

	logger.Debug().
		Str("sheet", sheetName).
		Int("rows", stats.Rows).
		Int("matched", stats.Matched).
		Msg("Applied remarks")

	return stats, nil
}

// classify returns the remark of the first rule that holds, or the default.
func classify(eval *Evaluator, rs *config.RuleSet, ctx Context) string {
	for _, rule := range rs.Rules {
		if eval.EvaluateAll(rule.Conditions, rule.ConditionLogic, ctx) {
			return rule.Remark
		}
	}
	return rs.DefaultRemark
}

// resolveMatched finds the counterpart row. Sheets are probed in order and
// within a sheet the row's keys in priority order. A row the matching engine
// annotated falls back to its recorded matched key.
func resolveMatched(row types.Row, cfg *config.SheetConfig, external []sheetIndex) types.Row {
	candidates := keys.Generate(row, cfg)

	for _, ext := range external {
		for _, k := range candidates {
			if m, ok := ext.index.Lookup(k.Composite); ok {
				return m
			}
		}
	}

	fallback := types.Text(row[matching.MatchedKeyColumn])
	if fallback == "" {
		return nil
	}
	for _, ext := range external {
		if m, ok := ext.index.Lookup(fallback); ok {
			return m
		}
	}
	return nil
}
