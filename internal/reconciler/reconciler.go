// =============================================================================
// Ledger Reconciler - Reconciler Module
// =============================================================================
//
// This module orchestrates one reconciliation run, from source discovery to
// the output workbook.
//
// RECONCILIATION PIPELINE:
//   1. Validate the schema (error-severity findings are fatal)
//   2. Resolve the primary and secondary source files
//   3. Load every table (any load failure is fatal, nothing is written)
//   4. Match primary rows against each secondary sheet
//   5. Apply remarks to each secondary sheet, in order
//   6. Apply remarks to the primary sheet
//   7. Drop internal columns
//   8. Write the output workbook (skipped on dry run)
//
// A secondary sheet with no source file is skipped with a warning. The
// context is checked between phases.
//
// =============================================================================

package reconciler

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ginjaninja78/ledger-reconciler/internal/config"
	"github.com/ginjaninja78/ledger-reconciler/internal/csvparser"
	"github.com/ginjaninja78/ledger-reconciler/internal/matching"
	"github.com/ginjaninja78/ledger-reconciler/internal/rules"
	"github.com/ginjaninja78/ledger-reconciler/internal/summary"
	"github.com/ginjaninja78/ledger-reconciler/internal/types"
	"github.com/ginjaninja78/ledger-reconciler/internal/validation"
	"github.com/ginjaninja78/ledger-reconciler/internal/xlsxparser"
	"github.com/ginjaninja78/ledger-reconciler/internal/xlsxwriter"
	"github.com/ginjaninja78/ledger-reconciler/pkg/errors"
	"github.com/ginjaninja78/ledger-reconciler/pkg/utils"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of a run.
type Result struct {
	// RunID identifies the run in logs and output names.
	RunID string

	// OutputFile is the written workbook. Empty on dry run.
	OutputFile string

	// Primary is the reconciled primary table.
	Primary rules.Sheet

	// Secondaries are the reconciled secondary tables in processing order.
	Secondaries []rules.Sheet

	// Skipped lists secondary sheets without a source file.
	Skipped []string

	// Stats contains per-phase statistics.
	Stats ProcessingStats

	// Summary is the console report of the final tables.
	Summary *summary.Summary
}

// ProcessingStats contains statistics about the run.
type ProcessingStats struct {
	// Sources maps each loaded sheet to its source file.
	Sources map[string]string

	// MatchedRows maps each secondary sheet to the number of primary rows
	// available in it.
	MatchedRows map[string]int

	// UnmatchedRows is the number of primary rows matched nowhere.
	UnmatchedRows int

	// Remarks holds the remarks pass statistics per sheet.
	Remarks map[string]rules.Stats

	// ProcessingTime is the time taken by the run.
	ProcessingTime time.Duration
}

// =============================================================================
// RECONCILER STRUCTURE
// =============================================================================

// Reconciler runs a schema against source files.
type Reconciler struct {
	schema   *config.Schema
	settings *config.Settings
	logger   zerolog.Logger
}

// source is a resolved sheet file.
type source struct {
	name string
	path string
}

// New creates a Reconciler.
//
// PARAMETERS:
//   - schema: The parsed reconciliation schema.
//   - settings: Source paths, output path and CSV encoding.
//   - logger: Receives progress and diagnostics.
func New(schema *config.Schema, settings *config.Settings, logger zerolog.Logger) *Reconciler {
	return &Reconciler{schema: schema, settings: settings, logger: logger}
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run executes the reconciliation pipeline.
//
// RETURNS:
//   - The result, with the reconciled tables and their summary.
//   - A *errors.ConfigError for an invalid schema, a *errors.LoadError for
//     an unreadable source, or the context error if ctx is done.
func (r *Reconciler) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	runID := uuid.New().String()
	logger := r.logger.With().Str("run_id", runID).Logger()

	result := &Result{
		RunID: runID,
		Stats: ProcessingStats{
			Sources: make(map[string]string),
			Remarks: make(map[string]rules.Stats),
		},
	}

	// =========================================================================
	// STEP 1: VALIDATE SCHEMA
	// =========================================================================

	if err := r.validate(logger); err != nil {
		return nil, err
	}

	primaryName := r.schema.Matching.PrimarySheet
	primaryCfg, _ := r.schema.Sheet(primaryName)

	// =========================================================================
	// STEP 2: RESOLVE SOURCES
	// =========================================================================

	secondaries, skipped := r.resolveSecondaries()
	result.Skipped = skipped
	for _, name := range r.unusedSecondaryPaths() {
		logger.Warn().Str("sheet", name).Str("path", r.settings.SecondaryPaths[name]).
			Msg("Source given for a sheet that is not a secondary sheet of the schema; ignoring")
	}
	for _, name := range skipped {
		logger.Warn().Str("sheet", name).Str("input_dir", r.settings.InputDir).
			Msg("No source file for secondary sheet; skipping")
	}

	// =========================================================================
	// STEP 3: LOAD TABLES
	// =========================================================================

	primary, err := r.load(source{name: primaryName, path: r.settings.PrimaryPath}, logger)
	if err != nil {
		return nil, err
	}
	result.Primary = rules.Sheet{Name: primaryName, Table: primary}
	result.Stats.Sources[primaryName] = r.settings.PrimaryPath

	for _, src := range secondaries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		table, err := r.load(src, logger)
		if err != nil {
			return nil, err
		}
		result.Secondaries = append(result.Secondaries, rules.Sheet{Name: src.name, Table: table})
		result.Stats.Sources[src.name] = src.path
	}

	// =========================================================================
	// STEP 4: MATCHING
	// =========================================================================

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sources := make([]matching.Source, 0, len(result.Secondaries))
	for _, s := range result.Secondaries {
		cfg, _ := r.schema.Sheet(s.Name)
		sources = append(sources, matching.Source{Name: s.Name, Table: s.Table, Config: cfg})
	}

	matched, err := matching.Match(primary, primaryCfg, sources)
	if err != nil {
		return nil, fmt.Errorf("matching failed: %w", err)
	}
	matched.Apply(primary, r.schema.Matching.OutputColumns)

	result.Stats.MatchedRows = matched.Counts()
	result.Stats.UnmatchedRows = matched.Unmatched()
	for name, n := range result.Stats.MatchedRows {
		logger.Info().Str("sheet", name).Int("matched", n).Int("rows", primary.Len()).
			Msg("Matched primary rows")
	}

	// =========================================================================
	// STEP 5-6: REMARKS
	// =========================================================================

	all := append([]rules.Sheet{result.Primary}, result.Secondaries...)
	order := append(append([]rules.Sheet{}, result.Secondaries...), result.Primary)

	for _, s := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stats, err := rules.ApplyRemarks(s.Table, s.Name, r.schema, all, logger)
		if err != nil {
			return nil, err
		}
		if !stats.Applied {
			logger.Debug().Str("sheet", s.Name).Msg("No remarks rules for sheet")
			continue
		}
		result.Stats.Remarks[s.Name] = stats
		logger.Info().Str("sheet", s.Name).Int("rows", stats.Rows).Int("matched", stats.Matched).
			Msg("Applied remarks")
	}

	// =========================================================================
	// STEP 7: DROP INTERNAL COLUMNS
	// =========================================================================

	for _, s := range all {
		s.Table.DropColumns(matching.InternalColumns...)
	}

	// =========================================================================
	// STEP 8: WRITE OUTPUT
	// =========================================================================

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if r.settings.DryRun {
		logger.Info().Msg("Dry run; output not written")
	} else {
		path, err := r.write(runID, result)
		if err != nil {
			return nil, err
		}
		result.OutputFile = path
		logger.Info().Str("path", path).Msg("Wrote output workbook")
	}

	// =========================================================================
	// COMPLETE
	// =========================================================================

	result.Stats.ProcessingTime = time.Since(start)

	result.Summary = summary.Build(r.schema, result.Primary, result.Secondaries)
	result.Summary.RunID = runID
	result.Summary.Output = result.OutputFile
	result.Summary.DryRun = r.settings.DryRun
	result.Summary.Skipped = result.Skipped
	result.Summary.Elapsed = result.Stats.ProcessingTime

	return result, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// validate runs the schema checks. Warnings are logged; the first
// error-severity finding aborts the run.
func (r *Reconciler) validate(logger zerolog.Logger) error {
	res := validation.NewValidator(r.schema).ValidateAll()

	for _, finding := range res.Errors {
		if finding.Severity == validation.SeverityWarning {
			logger.Warn().Str("path", finding.Path).Msg(finding.Message)
		}
	}

	if first := res.FirstError(); first != nil {
		return errors.NewConfigError("schema", "invalid schema",
			errors.NewValidationError(first.Path, first.Message))
	}
	return nil
}

// resolveSecondaries finds the source file of each secondary sheet: the
// explicit settings entry, else {input_dir}/{name}.xlsx, else .csv.
//
// RETURNS:
//   - The resolved sources in schema order, duplicates removed.
//   - The names of sheets with no source.
func (r *Reconciler) resolveSecondaries() ([]source, []string) {
	var (
		found   []source
		skipped []string
	)
	seen := make(map[string]bool)

	for _, name := range r.schema.Matching.SecondarySheets {
		if seen[name] {
			continue
		}
		seen[name] = true

		if path, ok := r.settings.SecondaryPaths[name]; ok && path != "" {
			found = append(found, source{name: name, path: path})
			continue
		}
		if path, ok := utils.DiscoverSource(r.settings.InputDir, name); ok {
			found = append(found, source{name: name, path: path})
			continue
		}
		skipped = append(skipped, name)
	}

	return found, skipped
}

// unusedSecondaryPaths returns the explicitly configured secondary sources
// whose sheet is not a secondary sheet of the schema, sorted.
func (r *Reconciler) unusedSecondaryPaths() []string {
	var unused []string
	for _, name := range r.settings.SecondaryNames() {
		if !slices.Contains(r.schema.Matching.SecondarySheets, name) {
			unused = append(unused, name)
		}
	}
	return unused
}

// load reads one source by extension.
func (r *Reconciler) load(src source, logger zerolog.Logger) (*types.Table, error) {
	var (
		table *types.Table
		err   error
	)

	switch utils.SourceFormat(src.path) {
	case "xlsx":
		table, err = xlsxparser.Load(src.path, src.name)
	case "csv":
		settings := csvparser.DefaultSettings()
		settings.Encoding = r.settings.CSVEncoding
		table, err = csvparser.Load(src.path, src.name, settings)
	default:
		err = fmt.Errorf("unsupported source format: %w", errors.ErrInvalidInput)
	}
	if err != nil {
		return nil, errors.NewLoadError(src.name, src.path, err)
	}

	logger.Info().Str("sheet", src.name).Str("path", src.path).Int("rows", table.Len()).
		Msg("Loaded sheet")
	return table, nil
}

// write saves the primary sheet followed by each secondary sheet.
func (r *Reconciler) write(runID string, result *Result) (string, error) {
	path := utils.GenerateOutputFileName(r.settings.Output, map[string]string{"uuid": runID})
	if err := utils.EnsureParentDir(path); err != nil {
		return "", err
	}

	sheets := []xlsxwriter.Sheet{{
		Title: xlsxwriter.PrimaryTitle(result.Primary.Name),
		Table: result.Primary.Table,
	}}
	for _, s := range result.Secondaries {
		sheets = append(sheets, xlsxwriter.Sheet{
			Title: xlsxwriter.SecondaryTitle(s.Name),
			Table: s.Table,
		})
	}

	if err := xlsxwriter.Write(path, sheets); err != nil {
		return "", fmt.Errorf("failed to write output: %w", err)
	}
	return path, nil
}
