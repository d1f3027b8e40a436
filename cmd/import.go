package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/fbrzx/dw-simulator/internal/config"
	"github.com/fbrzx/dw-simulator/internal/ddl"
)

var (
	importOut  string
	importName string
)

var importCmd = &cobra.Command{
	Use:   "import <ddl file>",
	Short: "Import SQL DDL into an experiment schema",
	Long: `Parse CREATE TABLE statements and derive an experiment schema from them,
including foreign keys, uniqueness and composite primary keys (which get a
sequential surrogate key). The result is written as schema JSON.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		sqlText, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read DDL file: %w", err)
		}

		name := importName
		if name == "" {
			name = ddl.NormalizeName(filepath.Base(args[0]))
		}

		exp, err := ddl.Import(string(sqlText), name, cfg.DefaultRows)
		if err != nil {
			return err
		}

		out := importOut
		if out == "" {
			out = name + ".schema.json"
		}

		data, err := json.MarshalIndent(exp, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode schema: %w", err)
		}
		if err := os.WriteFile(out, append(data, '\n'), 0644); err != nil {
			return fmt.Errorf("failed to write schema file: %w", err)
		}

		color.Green("✅ Imported %d table(s) into %s", len(exp.Tables), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().StringVarP(&importOut, "out", "o", "", "Output schema file (default <experiment>.schema.json)")
	importCmd.Flags().StringVar(&importName, "name", "", "Experiment name (default derived from the DDL file name)")
}
