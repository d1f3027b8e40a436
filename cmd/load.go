package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/fbrzx/dw-simulator/internal/config"
	"github.com/fbrzx/dw-simulator/internal/generate"
	"github.com/fbrzx/dw-simulator/internal/schema"
	"github.com/fbrzx/dw-simulator/internal/warehouse"
)

var loadDrop bool

var loadCmd = &cobra.Command{
	Use:   "load <schema file> <output dir>",
	Short: "Create physical tables and load generated batches",
	Long: `Create the experiment's physical tables in the configured warehouse
backend and load every batch file from a previous generation run, in
dependency order. PostgreSQL uses the COPY protocol; MySQL and SQLite use
multi-row INSERTs.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read schema file: %w", err)
		}
		exp, err := schema.Parse(data)
		if err != nil {
			return err
		}

		result, err := generate.ResultFromDir(args[1], exp)
		if err != nil {
			return err
		}

		url, err := cfg.GetWarehouseURL()
		if err != nil {
			return err
		}

		adapter, err := warehouse.New(cfg.Warehouse.Provider)
		if err != nil {
			return err
		}

		ctx := context.Background()
		if err := adapter.Connect(ctx, url); err != nil {
			return fmt.Errorf("failed to connect to warehouse: %w", err)
		}
		defer adapter.Close()

		if loadDrop {
			color.Yellow("🗑️  Dropping existing tables for experiment %s...", exp.Name)
			if err := adapter.DropExperiment(ctx, exp); err != nil {
				return err
			}
		}

		color.Cyan("📋 Creating %d physical table(s)...", len(exp.Tables))
		if err := adapter.CreateTables(ctx, exp); err != nil {
			return err
		}

		loaded, err := adapter.LoadBatches(ctx, exp, result)
		if err != nil {
			return err
		}

		color.Green("✅ Loaded %d rows into %s", loaded, cfg.Warehouse.Provider)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loadCmd)
	loadCmd.Flags().BoolVar(&loadDrop, "drop", false, "Drop existing physical tables first")
}
