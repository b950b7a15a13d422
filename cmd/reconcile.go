// =============================================================================
// Ledger Reconciler - Reconcile Command
// =============================================================================
//
// This file defines the 'reconcile' command, which runs the full pipeline and
// prints the summary.
//
// COMMAND USAGE:
//   reconciler reconcile [schema] [output] [flags]
//
// FLAGS:
//   --primary       : Primary source file (default faeu.xlsx)
//   --secondary     : Secondary source, name=path (repeatable)
//   --input-dir     : Where secondary sources are auto-discovered
//   --output        : Output workbook ({uuid}, {timestamp}, {date} expand)
//   --csv-encoding  : Encoding of CSV sources
//   --preset        : Use a built-in schema instead of a schema file
//   --dry-run       : Run every phase but do not write the workbook
//
// Every flag can also be set through RECONCILER_<KEY> environment variables
// or a .env file, e.g. RECONCILER_INPUT_DIR=./statements.
//
// =============================================================================

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/ledger-reconciler/internal/config"
	"github.com/ginjaninja78/ledger-reconciler/internal/logging"
	"github.com/ginjaninja78/ledger-reconciler/internal/reconciler"
	"github.com/ginjaninja78/ledger-reconciler/internal/summary"
)

// reconcileCmd represents the 'reconcile' command.
var reconcileCmd = &cobra.Command{
	Use:   "reconcile [schema] [output]",
	Short: "Reconcile the primary ledger against the secondary ledgers",
	Long: `The reconcile command loads the primary and secondary sources named by the
schema, matches primary rows against each secondary sheet, applies the remarks
rules and writes every table to one workbook.

Secondary sheets without an explicit --secondary path are looked up as
{input-dir}/{sheet}.xlsx, then {input-dir}/{sheet}.csv. Sheets with no source
are skipped with a warning.

A schema that fails validation, or a source that cannot be read, stops the run
before anything is written.`,
	Args: cobra.MaximumNArgs(2),

	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			settings.Set(config.KeySchema, args[0])
		}
		if len(args) > 1 {
			settings.Set(config.KeyOutput, args[1])
		}
		return runReconcile(cmd)
	},
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	flags := reconcileCmd.Flags()
	flags.String("primary", "faeu.xlsx", "Primary source file")
	flags.StringToString("secondary", nil, "Secondary source as name=path (repeatable)")
	flags.String("input-dir", ".", "Directory searched for {sheet}.xlsx / {sheet}.csv")
	flags.StringP("output", "o", "reconciliation_output_general.xlsx", "Output workbook path")
	flags.String("csv-encoding", "UTF-8", "CSV source encoding (UTF-8, Windows-1252, ISO-8859-1)")
	flags.String("preset", "", "Use a built-in schema ("+joinNames(config.PresetNames())+")")
	flags.Bool("dry-run", false, "Run every phase but do not write the output workbook")

	bind := map[string]string{
		config.KeyPrimary:     "primary",
		config.KeySecondary:   "secondary",
		config.KeyInputDir:    "input-dir",
		config.KeyOutput:      "output",
		config.KeyCSVEncoding: "csv-encoding",
		config.KeyPreset:      "preset",
		config.KeyDryRun:      "dry-run",
	}
	for key, flag := range bind {
		_ = settings.BindPFlag(key, flags.Lookup(flag))
	}
}

// runReconcile loads settings and schema, runs the reconciler and prints
// the summary.
func runReconcile(cmd *cobra.Command) error {
	logger := logging.FromContext(cmd.Context())

	s, err := config.LoadSettings(settings)
	if err != nil {
		return err
	}

	schema, err := loadSchema(s)
	if err != nil {
		return err
	}

	logger.Info().
		Str("schema", schemaSource(s)).
		Str("primary", s.PrimaryPath).
		Bool("dry_run", s.DryRun).
		Msg("Starting reconciliation")

	result, err := reconciler.New(schema, s, *logger).Run(cmd.Context())
	if err != nil {
		return err
	}

	return summary.Print(cmd.OutOrStdout(), result.Summary)
}

// loadSchema reads the preset named in s, or else the schema file.
func loadSchema(s *config.Settings) (*config.Schema, error) {
	if s.Preset != "" {
		return config.LoadPreset(s.Preset)
	}
	return config.LoadSchema(s.SchemaPath)
}

func schemaSource(s *config.Settings) string {
	if s.Preset != "" {
		return "preset:" + s.Preset
	}
	return s.SchemaPath
}
