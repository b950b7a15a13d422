// =============================================================================
// Ledger Reconciler - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. Every other command
// is attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (reconciler)
//   ├── reconcileCmd (reconciler reconcile)
//   ├── validateCmd  (reconciler validate)
//   ├── presetCmd    (reconciler preset)
//   └── versionCmd   (reconciler version)
//
// CONFIGURATION:
//   The root command is responsible for:
//   1. Setting up global flags (--verbose, --log-level, --log-format)
//   2. Loading .env files and binding RECONCILER_* environment variables
//   3. Setting up logging
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ginjaninja78/ledger-reconciler/internal/config"
	"github.com/ginjaninja78/ledger-reconciler/internal/logging"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// settings resolves run settings from flags, environment and defaults.
var settings = config.NewViper()

// verbose enables debug logging when set to true.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "reconciler",
	Short: "Ledger Reconciler - match and classify broker and insurer ledgers",
	Long: `Ledger Reconciler matches a primary ledger against one or more secondary
ledgers on a composite policy|document key, then classifies every row with an
ordered, declarative rule set.

Key Features:
  - Schema-driven: sheets, keys, normalizations and rules live in one file
  - XLSX and CSV sources, auto-discovered by sheet name
  - One multi-sheet XLSX workbook as output
  - Schema diagnostics before any file is read

Example Usage:
  reconciler reconcile reconcil.json                # Run with a schema file
  reconciler reconcile --preset faeu-insurer        # Run with a built-in schema
  reconciler validate reconcil.json                 # Check a schema only`,

	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config.LoadEnvFiles()

		logger, err := newLogger(settings)
		if err != nil {
			return err
		}
		cmd.SetContext(logging.WithLogger(cmd.Context(), &logger))
		return nil
	},

	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. It is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	flags := rootCmd.PersistentFlags()

	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-format", "auto", "Log format (auto, console, json)")

	_ = settings.BindPFlag(config.KeyLogLevel, flags.Lookup("log-level"))
	_ = settings.BindPFlag(config.KeyLogFormat, flags.Lookup("log-format"))
}

// newLogger builds the run logger from the logging settings.
func newLogger(v *viper.Viper) (zerolog.Logger, error) {
	cfg := logging.DefaultConfig()
	cfg.Level = v.GetString(config.KeyLogLevel)
	cfg.Format = v.GetString(config.KeyLogFormat)
	if verbose {
		cfg.Level = "debug"
	}
	return logging.NewLoggerFromConfig(cfg)
}
