package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/fbrzx/dw-simulator/internal/config"
	"github.com/fbrzx/dw-simulator/internal/registry"
)

var runsExperiment string

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List generation runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		reg, err := registry.Open(cfg.RegistryPath)
		if err != nil {
			return err
		}
		defer reg.Close()

		runs, err := reg.List(context.Background(), runsExperiment)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			color.Yellow("No generation runs recorded")
			return nil
		}

		for _, run := range runs {
			statusColor := color.New(color.FgCyan)
			switch run.Status {
			case registry.StatusCompleted:
				statusColor = color.New(color.FgGreen)
			case registry.StatusFailed:
				statusColor = color.New(color.FgRed)
			case registry.StatusAborted:
				statusColor = color.New(color.FgYellow)
			}

			fmt.Printf("%s  %-20s  %s  started %s",
				run.ID, run.Experiment,
				statusColor.Sprintf("%-9s", run.Status),
				run.StartedAt.Format(time.RFC3339))
			if run.CompletedAt != nil {
				fmt.Printf("  finished %s", run.CompletedAt.Format(time.RFC3339))
			}
			fmt.Println()

			if run.Status == registry.StatusFailed && run.Error != "" {
				// Show the first line of the diagnostic; the full trace
				// stays in the registry.
				firstLine, _, _ := strings.Cut(run.Error, "\n")
				fmt.Printf("    error: %s\n", firstLine)
			}
		}
		return nil
	},
}

var abortCmd = &cobra.Command{
	Use:   "abort <run id>",
	Short: "Mark a stuck RUNNING run as ABORTED",
	Long: `Reconcile a run whose process died without recording a terminal state.
Only RUNNING runs can be aborted; terminal states are permanent.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		reg, err := registry.Open(cfg.RegistryPath)
		if err != nil {
			return err
		}
		defer reg.Close()

		if err := reg.Abort(context.Background(), args[0]); err != nil {
			return err
		}
		color.Green("✅ Run %s marked ABORTED", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(abortCmd)
	runsCmd.Flags().StringVar(&runsExperiment, "experiment", "", "Filter runs by experiment name")
}
