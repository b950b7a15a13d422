// =============================================================================
// Ledger Reconciler - Validate Command
// =============================================================================
//
// COMMAND USAGE:
//   reconciler validate [schema] [flags]
//
// Loads the schema and reports every finding. No source file is read. Exits
// non-zero when any error-severity finding is present (or any finding at all
// with --strict).
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/ledger-reconciler/internal/config"
	"github.com/ginjaninja78/ledger-reconciler/internal/validation"
)

var (
	validateLogFile string
	validateStrict  bool
	validatePreset  string
)

// validateCmd represents the 'validate' command.
var validateCmd = &cobra.Command{
	Use:   "validate [schema]",
	Short: "Check a reconciliation schema without reading any source",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := settings.GetString(config.KeySchema)
		if len(args) > 0 {
			path = args[0]
		}
		return runValidate(cmd, path)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateLogFile, "log-file", "", "Also write the findings to this file")
	validateCmd.Flags().BoolVar(&validateStrict, "strict", false, "Treat warnings as errors")
	validateCmd.Flags().StringVar(&validatePreset, "preset", "", "Validate a built-in schema")
}

func runValidate(cmd *cobra.Command, path string) error {
	var (
		schema *config.Schema
		err    error
	)
	if validatePreset != "" {
		path = "preset:" + validatePreset
		schema, err = config.LoadPreset(validatePreset)
	} else {
		schema, err = config.LoadSchema(path)
	}
	if err != nil {
		return err
	}

	opts := validation.DefaultValidationOptions()
	opts.TreatWarningsAsErrors = validateStrict
	result := validation.NewValidatorWithOptions(schema, opts).ValidateAll()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Schema: %s\n", path)
	fmt.Fprintf(out, "Rules checked: %d\n\n", result.RulesValidated)
	fmt.Fprint(out, validation.FormatErrors(result.Errors))
	fmt.Fprintln(out)

	if validateLogFile != "" {
		if err := validation.WriteErrorLog(result.Errors, validateLogFile); err != nil {
			return err
		}
	}

	if !result.IsValid {
		return fmt.Errorf("schema is invalid: %d error(s), %d warning(s)", result.ErrorCount, result.WarningCount)
	}
	fmt.Fprintln(out, "Schema is valid.")
	return nil
}
