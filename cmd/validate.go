package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/fbrzx/dw-simulator/internal/schema"
)

var validateCmd = &cobra.Command{
	Use:   "validate <schema file>",
	Short: "Validate an experiment schema",
	Long: `Parse a JSON or YAML experiment schema and check every structural rule:
identifiers, type-gated constraints, foreign key integrity and circular
dependencies. All violations are reported together.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read schema file: %w", err)
		}

		exp, err := schema.Parse(data)
		if err != nil {
			var vErr *schema.ValidationError
			if errors.As(err, &vErr) {
				color.Red("❌ Schema has %d violation(s):", len(vErr.Violations))
				for _, violation := range vErr.Violations {
					color.Yellow("  • %s", violation)
				}
				return fmt.Errorf("schema validation failed")
			}
			return err
		}

		color.Green("✅ Schema %q is valid (%d tables)", exp.Name, len(exp.Tables))
		for _, tbl := range exp.Tables {
			for _, warning := range tbl.Warnings {
				color.Yellow("⚠️  table %s: %s", tbl.Name, warning)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
