// =============================================================================
// Ledger Reconciler - Main Entry Point
// =============================================================================
//
// USAGE:
//   reconciler reconcile [schema] [output] - Run a reconciliation
//   reconciler validate [schema]           - Check a schema without reading sources
//   reconciler preset [name]               - Print or write a built-in schema
//   reconciler version                     - Display the application version
//
// ARCHITECTURE:
//   - cmd/      : CLI command definitions (Cobra)
//   - internal/ : Schema model, loaders, matching, rules, writer, orchestrator
//   - pkg/      : Typed errors and file utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/ledger-reconciler/cmd"
)

func main() {
	cmd.Execute()
}
