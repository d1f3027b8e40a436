package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/fbrzx/dw-simulator/internal/config"
	"github.com/fbrzx/dw-simulator/internal/generate"
	"github.com/fbrzx/dw-simulator/internal/registry"
	"github.com/fbrzx/dw-simulator/internal/schema"
)

var (
	generateSeed    int64
	generateSeedSet bool
	generateOut     string
	generateRows    []string
)

var generateCmd = &cobra.Command{
	Use:   "generate <schema file>",
	Short: "Generate synthetic datasets for an experiment",
	Long: `Generate constraint-respecting synthetic data for every table in the
schema, in dependency order, batch by batch. Output is one parquet file per
batch under <output root>/<table>/. A fixed --seed reproduces a run exactly.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read schema file: %w", err)
		}
		exp, err := schema.Parse(data)
		if err != nil {
			return err
		}
		for _, tbl := range exp.Tables {
			for _, warning := range tbl.Warnings {
				color.Yellow("⚠️  table %s: %s", tbl.Name, warning)
			}
		}

		overrides, err := parseRowOverrides(generateRows)
		if err != nil {
			return err
		}

		reg, err := registry.Open(cfg.RegistryPath)
		if err != nil {
			return err
		}
		defer reg.Close()

		req := generate.Request{
			Schema:       exp,
			OutputRoot:   generateOut,
			RowOverrides: overrides,
		}
		if generateSeedSet {
			req.Seed = &generateSeed
		}

		// Ctrl-C aborts at the next batch boundary and the run record
		// is marked ABORTED.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		runner := generate.NewRunner(generate.NewEngine(cfg), reg)
		result, run, err := runner.Run(ctx, req)
		if err != nil {
			var active *registry.ErrRunActive
			if errors.As(err, &active) {
				color.Red("❌ %s", active.Error())
				return fmt.Errorf("experiment is busy")
			}
			return err
		}

		color.Green("\n✅ Run %s completed (seed %d)", run.ID, result.Seed)
		color.Cyan("📁 Output: %s", result.OutputRoot)
		for _, tr := range result.Tables {
			fmt.Printf("   %-24s %8d rows  %d file(s)\n", tr.Name, tr.Rows, len(tr.Files))
		}
		return nil
	},
}

func parseRowOverrides(pairs []string) (map[string]int, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	overrides := make(map[string]int, len(pairs))
	for _, pair := range pairs {
		name, value, found := strings.Cut(pair, "=")
		if !found {
			return nil, fmt.Errorf("invalid --rows value %q, expected table=count", pair)
		}
		count, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("invalid row count in %q: %w", pair, err)
		}
		overrides[name] = count
	}
	return overrides, nil
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().Int64Var(&generateSeed, "seed", 0, "Fixed random seed for reproducible output")
	generateCmd.Flags().StringVarP(&generateOut, "out", "o", "", "Output directory (default derived from experiment name and timestamp)")
	generateCmd.Flags().StringArrayVar(&generateRows, "rows", nil, "Per-table row count override, table=count (repeatable)")
	generateCmd.PreRun = func(cmd *cobra.Command, args []string) {
		generateSeedSet = cmd.Flags().Changed("seed")
	}
}
