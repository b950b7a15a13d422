package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/ledger-reconciler/internal/config"
)

var presetOutput string

// presetCmd prints or writes a built-in schema.
var presetCmd = &cobra.Command{
	Use:   "preset [name]",
	Short: "List built-in schemas, or print one",
	Long: `Without a name, lists the built-in schemas. With a name, prints that schema
to stdout, or writes it to --output so it can be edited and passed to
'reconciler reconcile'.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		if len(args) == 0 {
			for _, name := range config.PresetNames() {
				fmt.Fprintln(out, name)
			}
			return nil
		}

		data, err := config.Preset(args[0])
		if err != nil {
			return err
		}
		if presetOutput == "" {
			_, err = out.Write(data)
			return err
		}
		if err := os.WriteFile(presetOutput, data, 0o644); err != nil {
			return fmt.Errorf("failed to write preset: %w", err)
		}
		fmt.Fprintf(out, "Wrote %s to %s\n", args[0], presetOutput)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(presetCmd)
	presetCmd.Flags().StringVarP(&presetOutput, "output", "o", "", "Write the schema to this file")
}

func joinNames(names []string) string {
	return strings.Join(names, ", ")
}
