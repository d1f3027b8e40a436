package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/fbrzx/dw-simulator/internal/api"
	"github.com/fbrzx/dw-simulator/internal/config"
	"github.com/fbrzx/dw-simulator/internal/generate"
	"github.com/fbrzx/dw-simulator/internal/registry"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the simulator over HTTP",
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

		addr := serveAddr
		if addr == "" {
			addr = cfg.ListenAddr
		}

		runner := generate.NewRunner(generate.NewEngine(cfg), reg)
		server := api.NewServer(runner, reg)

		color.Cyan("🌐 Listening on %s", addr)
		return server.Router().Run(addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config, :8080)")
}
